// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import (
	"crypto"
	"fmt"
	"hash"
	"io"

	"github.com/canonical/go-tpm2-esys/mu"
)

// This file contains types defined in section 11 (Algorithm Parameters
// and Structures) in part 2 of the library spec.

// AlgorithmId corresponds to the TPM_ALG_ID type.
type AlgorithmId uint16

const (
	AlgorithmError    AlgorithmId = 0x0000 // TPM_ALG_ERROR
	AlgorithmRSA      AlgorithmId = 0x0001 // TPM_ALG_RSA
	AlgorithmSHA1     AlgorithmId = 0x0004 // TPM_ALG_SHA1
	AlgorithmHMAC     AlgorithmId = 0x0005 // TPM_ALG_HMAC
	AlgorithmAES      AlgorithmId = 0x0006 // TPM_ALG_AES
	AlgorithmXOR      AlgorithmId = 0x000a // TPM_ALG_XOR
	AlgorithmSHA256   AlgorithmId = 0x000b // TPM_ALG_SHA256
	AlgorithmSHA384   AlgorithmId = 0x000c // TPM_ALG_SHA384
	AlgorithmSHA512   AlgorithmId = 0x000d // TPM_ALG_SHA512
	AlgorithmNull     AlgorithmId = 0x0010 // TPM_ALG_NULL
	AlgorithmSM4      AlgorithmId = 0x0013 // TPM_ALG_SM4
	AlgorithmCamellia AlgorithmId = 0x0026 // TPM_ALG_CAMELLIA
	AlgorithmCTR      AlgorithmId = 0x0040 // TPM_ALG_CTR
	AlgorithmOFB      AlgorithmId = 0x0041 // TPM_ALG_OFB
	AlgorithmCBC      AlgorithmId = 0x0042 // TPM_ALG_CBC
	AlgorithmCFB      AlgorithmId = 0x0043 // TPM_ALG_CFB
	AlgorithmECB      AlgorithmId = 0x0044 // TPM_ALG_ECB
)

// HashAlgorithmId corresponds to the TPMI_ALG_HASH type.
type HashAlgorithmId AlgorithmId

const (
	HashAlgorithmNull   HashAlgorithmId = HashAlgorithmId(AlgorithmNull)   // TPM_ALG_NULL
	HashAlgorithmSHA1   HashAlgorithmId = HashAlgorithmId(AlgorithmSHA1)   // TPM_ALG_SHA1
	HashAlgorithmSHA256 HashAlgorithmId = HashAlgorithmId(AlgorithmSHA256) // TPM_ALG_SHA256
	HashAlgorithmSHA384 HashAlgorithmId = HashAlgorithmId(AlgorithmSHA384) // TPM_ALG_SHA384
	HashAlgorithmSHA512 HashAlgorithmId = HashAlgorithmId(AlgorithmSHA512) // TPM_ALG_SHA512
)

var hashAlgs = map[HashAlgorithmId]crypto.Hash{
	HashAlgorithmSHA1:   crypto.SHA1,
	HashAlgorithmSHA256: crypto.SHA256,
	HashAlgorithmSHA384: crypto.SHA384,
	HashAlgorithmSHA512: crypto.SHA512,
}

// GetHash returns the equivalent crypto.Hash for this algorithm. It will
// return zero if the algorithm does not have an equivalent go hash.
func (a HashAlgorithmId) GetHash() crypto.Hash {
	return hashAlgs[a]
}

// Supported indicates whether this hash algorithm has an equivalent go
// hash.
func (a HashAlgorithmId) Supported() bool {
	return a.GetHash() != crypto.Hash(0)
}

// Available indicates whether the equivalent go hash is linked into the
// current binary.
func (a HashAlgorithmId) Available() bool {
	return a.GetHash().Available()
}

// NewHash constructs a new hash.Hash for this algorithm. It will panic if
// the algorithm is not available - use Available to check this first.
func (a HashAlgorithmId) NewHash() hash.Hash {
	return a.GetHash().New()
}

// Size returns the digest size for this algorithm. It will panic if the
// algorithm is not supported - use Supported to check this first.
func (a HashAlgorithmId) Size() int {
	return a.GetHash().Size()
}

// SymAlgorithmId corresponds to the TPMI_ALG_SYM type.
type SymAlgorithmId AlgorithmId

const (
	SymAlgorithmAES      SymAlgorithmId = SymAlgorithmId(AlgorithmAES)      // TPM_ALG_AES
	SymAlgorithmXOR      SymAlgorithmId = SymAlgorithmId(AlgorithmXOR)      // TPM_ALG_XOR
	SymAlgorithmNull     SymAlgorithmId = SymAlgorithmId(AlgorithmNull)     // TPM_ALG_NULL
	SymAlgorithmSM4      SymAlgorithmId = SymAlgorithmId(AlgorithmSM4)      // TPM_ALG_SM4
	SymAlgorithmCamellia SymAlgorithmId = SymAlgorithmId(AlgorithmCamellia) // TPM_ALG_CAMELLIA
)

// SymObjectAlgorithmId corresponds to the TPMI_ALG_SYM_OBJECT type, the
// subset of symmetric algorithms that can be used to define an object's
// symmetric mode.
type SymObjectAlgorithmId AlgorithmId

const (
	SymObjectAlgorithmAES      SymObjectAlgorithmId = SymObjectAlgorithmId(AlgorithmAES)      // TPM_ALG_AES
	SymObjectAlgorithmNull     SymObjectAlgorithmId = SymObjectAlgorithmId(AlgorithmNull)     // TPM_ALG_NULL
	SymObjectAlgorithmSM4      SymObjectAlgorithmId = SymObjectAlgorithmId(AlgorithmSM4)      // TPM_ALG_SM4
	SymObjectAlgorithmCamellia SymObjectAlgorithmId = SymObjectAlgorithmId(AlgorithmCamellia) // TPM_ALG_CAMELLIA
)

// SymModeId corresponds to the TPMI_ALG_SYM_MODE type.
type SymModeId AlgorithmId

const (
	SymModeNull SymModeId = SymModeId(AlgorithmNull) // TPM_ALG_NULL
	SymModeCTR  SymModeId = SymModeId(AlgorithmCTR)  // TPM_ALG_CTR
	SymModeOFB  SymModeId = SymModeId(AlgorithmOFB)  // TPM_ALG_OFB
	SymModeCBC  SymModeId = SymModeId(AlgorithmCBC)  // TPM_ALG_CBC
	SymModeCFB  SymModeId = SymModeId(AlgorithmCFB)  // TPM_ALG_CFB
	SymModeECB  SymModeId = SymModeId(AlgorithmECB)  // TPM_ALG_ECB
)

// SymDefObject corresponds to the TPMT_SYM_DEF_OBJECT type, and is used to
// define an object's symmetric algorithm. It is a tagged type - if
// Algorithm is SymObjectAlgorithmNull then the KeyBits and Mode fields have
// no meaning and are omitted from the wire representation.
type SymDefObject struct {
	Algorithm SymObjectAlgorithmId // Symmetric algorithm
	KeyBits   uint16               // Symmetric key size in bits
	Mode      SymModeId            // Symmetric mode
}

// IsNull indicates whether this definition selects no algorithm.
func (d SymDefObject) IsNull() bool {
	return d.Algorithm == SymObjectAlgorithmNull
}

// Marshal implements mu.CustomMarshaller.
func (d SymDefObject) Marshal(w io.Writer) error {
	if d.IsNull() {
		_, err := mu.MarshalToWriter(w, d.Algorithm)
		return err
	}
	_, err := mu.MarshalToWriter(w, d.Algorithm, d.KeyBits, d.Mode)
	return err
}

// Unmarshal implements mu.CustomUnmarshaller.
func (d *SymDefObject) Unmarshal(r io.Reader) error {
	if _, err := mu.UnmarshalFromReader(r, &d.Algorithm); err != nil {
		return err
	}
	switch d.Algorithm {
	case SymObjectAlgorithmNull:
		d.KeyBits = 0
		d.Mode = SymModeId(AlgorithmError)
		return nil
	case SymObjectAlgorithmAES, SymObjectAlgorithmSM4, SymObjectAlgorithmCamellia:
		_, err := mu.UnmarshalFromReader(r, &d.KeyBits, &d.Mode)
		return err
	default:
		return fmt.Errorf("invalid symmetric algorithm selector value: %v", d.Algorithm)
	}
}

// BlockSize returns the block size of the symmetric cipher associated with
// this algorithm, or an error if there is no registered go cipher for it.
func (a SymAlgorithmId) BlockSize() (int, error) {
	c, ok := symmetricAlgs[a]
	if !ok {
		return 0, fmt.Errorf("unavailable cipher algorithm %v", a)
	}
	return c.blockSize, nil
}

func symDefObjectOrNull(d *SymDefObject) *SymDefObject {
	if d == nil {
		return &SymDefObject{Algorithm: SymObjectAlgorithmNull}
	}
	return d
}
