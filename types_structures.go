// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

// This file contains types defined in section 10 (Structures) in
// part 2 of the library spec.

const (
	// MaxDataSize is the maximum length of a Data buffer.
	MaxDataSize = 64

	// MaxEncryptedSecretSize is the maximum length of an EncryptedSecret
	// buffer.
	MaxEncryptedSecretSize = 256

	// MaxPrivateSize is the maximum length of a Private buffer.
	MaxPrivateSize = 1024
)

// Digest corresponds to the TPM2B_DIGEST type.
type Digest []byte

// Nonce corresponds to the TPM2B_NONCE type.
type Nonce Digest

// Auth corresponds to the TPM2B_AUTH type.
type Auth Digest

// Name corresponds to the TPM2B_NAME type.
type Name []byte

// Algorithm returns the nameAlg of the algorithmically computed name, or
// HashAlgorithmNull if the name is empty or is a raw handle.
func (n Name) Algorithm() HashAlgorithmId {
	if len(n) < 2 {
		return HashAlgorithmNull
	}
	a := HashAlgorithmId(uint16(n[0])<<8 | uint16(n[1]))
	if !a.Supported() {
		return HashAlgorithmNull
	}
	return a
}

// Digest returns the algorithmically computed digest part of the name. It
// will panic if the name does not contain one - use Algorithm to check this
// first.
func (n Name) Digest() Digest {
	if n.Algorithm() == HashAlgorithmNull {
		panic("name does not contain a digest")
	}
	return Digest(n[2:])
}

// Data corresponds to the TPM2B_DATA type. Despite sharing the shape of
// Private and EncryptedSecret, it is a distinct nominal type so that values
// cannot be accidentally passed where a different buffer kind is expected.
type Data []byte

// Private corresponds to the TPM2B_PRIVATE type, and contains the wrapped
// private area of an object.
type Private []byte

// EncryptedSecret corresponds to the TPM2B_ENCRYPTED_SECRET type.
type EncryptedSecret []byte

// Sized buffer types returned by the TPM carry a declared length that must
// be validated against the fixed maximum for the type before any bytes are
// copied out of the response.
func makeSizedBuffer(kind string, max int, buf []byte) ([]byte, error) {
	if len(buf) > max {
		return nil, &BufferTooLargeError{Type: kind, Length: len(buf), Max: max}
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

// NewData constructs a Data buffer from the supplied bytes. The contents
// are copied. It returns a *BufferTooLargeError and copies nothing if the
// supplied buffer is longer than MaxDataSize.
func NewData(buf []byte) (Data, error) {
	b, err := makeSizedBuffer("TPM2B_DATA", MaxDataSize, buf)
	if err != nil {
		return nil, err
	}
	return Data(b), nil
}

// NewPrivate constructs a Private buffer from the supplied bytes. The
// contents are copied. It returns a *BufferTooLargeError and copies nothing
// if the supplied buffer is longer than MaxPrivateSize.
func NewPrivate(buf []byte) (Private, error) {
	b, err := makeSizedBuffer("TPM2B_PRIVATE", MaxPrivateSize, buf)
	if err != nil {
		return nil, err
	}
	return Private(b), nil
}

// NewEncryptedSecret constructs an EncryptedSecret buffer from the supplied
// bytes. The contents are copied. It returns a *BufferTooLargeError and
// copies nothing if the supplied buffer is longer than
// MaxEncryptedSecretSize.
func NewEncryptedSecret(buf []byte) (EncryptedSecret, error) {
	b, err := makeSizedBuffer("TPM2B_ENCRYPTED_SECRET", MaxEncryptedSecretSize, buf)
	if err != nil {
		return nil, err
	}
	return EncryptedSecret(b), nil
}
