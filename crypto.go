// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"golang.org/x/xerrors"
)

// NewCipherFunc creates a new block cipher from the supplied key.
type NewCipherFunc func([]byte) (cipher.Block, error)

type symmetricCipher struct {
	fn        NewCipherFunc
	blockSize int
}

var (
	symmetricAlgs = map[SymAlgorithmId]*symmetricCipher{
		SymAlgorithmAES: &symmetricCipher{aes.NewCipher, aes.BlockSize},
	}
)

// RegisterCipher allows a go block cipher implementation to be registered for the
// specified algorithm, so binaries don't need to link against every implementation.
func RegisterCipher(alg SymAlgorithmId, fn NewCipherFunc, blockSize int) {
	symmetricAlgs[alg] = &symmetricCipher{fn, blockSize}
}

// Available indicates whether the TPM symmetric cipher has a registered go
// implementation.
func (a SymAlgorithmId) Available() bool {
	_, ok := symmetricAlgs[a]
	return ok
}

// NewCipher constructs a new symmetric cipher with the supplied key, if
// there is a go implementation registered.
func (a SymAlgorithmId) NewCipher(key []byte) (cipher.Block, error) {
	c, ok := symmetricAlgs[a]
	if !ok {
		return nil, errors.New("unavailable cipher")
	}
	return c.fn(key)
}

// CryptSymmetricEncrypt encrypts the supplied data in place using the
// specified algorithm and key. The TPM uses CFB cipher mode for all secret
// sharing.
func CryptSymmetricEncrypt(alg SymAlgorithmId, key, iv, data []byte) error {
	switch alg {
	case SymAlgorithmXOR, SymAlgorithmNull:
		return errors.New("unsupported symmetric algorithm")
	default:
		c, err := alg.NewCipher(key)
		if err != nil {
			return xerrors.Errorf("cannot create cipher: %w", err)
		}
		s := cipher.NewCFBEncrypter(c, iv)
		s.XORKeyStream(data, data)
		return nil
	}
}

// CryptSymmetricDecrypt decrypts the supplied data in place using the
// specified algorithm and key.
func CryptSymmetricDecrypt(alg SymAlgorithmId, key, iv, data []byte) error {
	switch alg {
	case SymAlgorithmXOR, SymAlgorithmNull:
		return errors.New("unsupported symmetric algorithm")
	default:
		c, err := alg.NewCipher(key)
		if err != nil {
			return xerrors.Errorf("cannot create cipher: %w", err)
		}
		s := cipher.NewCFBDecrypter(c, iv)
		s.XORKeyStream(data, data)
		return nil
	}
}
