// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

/*
Package util contains helpers for creating and consuming TPM duplication
blobs outside of the TPM.
*/
package util

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"errors"
	"hash"
	"io/ioutil"

	"golang.org/x/xerrors"

	esys "github.com/canonical/go-tpm2-esys"
	"github.com/canonical/go-tpm2-esys/internal"
	"github.com/canonical/go-tpm2-esys/mu"
)

func checkSymmetricAlg(symmetricAlg *esys.SymDefObject) error {
	if symmetricAlg == nil || symmetricAlg.IsNull() {
		return errors.New("symmetric algorithm is required")
	}
	if !esys.SymAlgorithmId(symmetricAlg.Algorithm).Available() {
		return errors.New("symmetric algorithm is not available")
	}
	return nil
}

// UnwrapOuter removes the outer wrapper from the supplied duplication blob.
// The hashAlg and symmetricAlg arguments describe the name algorithm and
// symmetric parameters of the object that protects the blob, name is the
// name of the wrapped object and seed is the symmetric seed that was
// protected to the new parent.
func UnwrapOuter(hashAlg esys.HashAlgorithmId, symmetricAlg *esys.SymDefObject, name esys.Name, seed, data []byte) ([]byte, error) {
	if !hashAlg.Available() {
		return nil, errors.New("digest algorithm is not available")
	}
	if err := checkSymmetricAlg(symmetricAlg); err != nil {
		return nil, err
	}

	r := bytes.NewReader(data)

	var integrity []byte
	if _, err := mu.UnmarshalFromReader(r, &integrity); err != nil {
		return nil, xerrors.Errorf("cannot unpack integrity digest: %w", err)
	}

	data, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("cannot unpack wrapper: %w", err)
	}

	hmacKey := internal.KDFa(hashAlg.GetHash(), seed, []byte(esys.IntegrityKey), nil, nil, hashAlg.Size()*8)
	h := hmac.New(func() hash.Hash { return hashAlg.NewHash() }, hmacKey)
	h.Write(data)
	h.Write(name)

	if !hmac.Equal(h.Sum(nil), integrity) {
		return nil, errors.New("integrity digest is invalid")
	}

	symKey := internal.KDFa(hashAlg.GetHash(), seed, []byte(esys.StorageKey), name, nil, int(symmetricAlg.KeyBits))

	blockSize, err := esys.SymAlgorithmId(symmetricAlg.Algorithm).BlockSize()
	if err != nil {
		return nil, xerrors.Errorf("cannot determine block size: %w", err)
	}
	if err := esys.CryptSymmetricDecrypt(esys.SymAlgorithmId(symmetricAlg.Algorithm), symKey, make([]byte, blockSize), data); err != nil {
		return nil, xerrors.Errorf("cannot remove wrapper: %w", err)
	}

	return data, nil
}

// ProduceOuterWrap applies an outer wrapper to the supplied payload,
// producing a blob in the same form as the duplicate parameter returned
// from Context.Duplicate when a new parent is in use. The hashAlg and
// symmetricAlg arguments describe the name algorithm and symmetric
// parameters of the protecting object, name is the name of the wrapped
// object and seed is the symmetric seed shared with the protector.
func ProduceOuterWrap(hashAlg esys.HashAlgorithmId, symmetricAlg *esys.SymDefObject, name esys.Name, seed, data []byte) ([]byte, error) {
	if !hashAlg.Available() {
		return nil, errors.New("digest algorithm is not available")
	}
	if err := checkSymmetricAlg(symmetricAlg); err != nil {
		return nil, err
	}

	symKey := internal.KDFa(hashAlg.GetHash(), seed, []byte(esys.StorageKey), name, nil, int(symmetricAlg.KeyBits))

	blockSize, err := esys.SymAlgorithmId(symmetricAlg.Algorithm).BlockSize()
	if err != nil {
		return nil, xerrors.Errorf("cannot determine block size: %w", err)
	}
	if err := esys.CryptSymmetricEncrypt(esys.SymAlgorithmId(symmetricAlg.Algorithm), symKey, make([]byte, blockSize), data); err != nil {
		return nil, xerrors.Errorf("cannot apply wrapper: %w", err)
	}

	hmacKey := internal.KDFa(hashAlg.GetHash(), seed, []byte(esys.IntegrityKey), nil, nil, hashAlg.Size()*8)
	h := hmac.New(func() hash.Hash { return hashAlg.NewHash() }, hmacKey)
	h.Write(data)
	h.Write(name)

	integrity := h.Sum(nil)

	return mu.MustMarshalToBytes(integrity, mu.RawBytes(data)), nil
}

// ProduceInnerWrap applies an inner wrapper to the supplied payload with
// the symmetric algorithm described by symmetricAlg, prepending an
// integrity digest computed with the name algorithm of the supplied name.
// If innerSymKey is empty, a key of the appropriate size is created and
// returned.
func ProduceInnerWrap(symmetricAlg *esys.SymDefObject, name esys.Name, innerSymKey esys.Data, data []byte) (esys.Data, []byte, error) {
	if err := checkSymmetricAlg(symmetricAlg); err != nil {
		return nil, nil, err
	}

	nameAlg := name.Algorithm()
	if !nameAlg.Available() {
		return nil, nil, errors.New("name algorithm is not available")
	}

	h := nameAlg.NewHash()
	h.Write(data)
	h.Write(name)

	innerIntegrity := h.Sum(nil)

	data = mu.MustMarshalToBytes(innerIntegrity, mu.RawBytes(data))

	if len(innerSymKey) == 0 {
		innerSymKey = make(esys.Data, symmetricAlg.KeyBits/8)
		if _, err := rand.Read(innerSymKey); err != nil {
			return nil, nil, xerrors.Errorf("cannot read random bytes for key: %w", err)
		}
	} else if len(innerSymKey) != int(symmetricAlg.KeyBits/8) {
		return nil, nil, errors.New("the supplied symmetric key has the wrong length")
	}

	blockSize, err := esys.SymAlgorithmId(symmetricAlg.Algorithm).BlockSize()
	if err != nil {
		return nil, nil, xerrors.Errorf("cannot determine block size: %w", err)
	}
	if err := esys.CryptSymmetricEncrypt(esys.SymAlgorithmId(symmetricAlg.Algorithm), innerSymKey, make([]byte, blockSize), data); err != nil {
		return nil, nil, xerrors.Errorf("cannot apply wrapper: %w", err)
	}

	return innerSymKey, data, nil
}

// UnwrapInner removes an inner wrapper applied with the supplied symmetric
// algorithm and key, and verifies the integrity digest against the supplied
// name.
func UnwrapInner(symmetricAlg *esys.SymDefObject, name esys.Name, innerSymKey esys.Data, data []byte) ([]byte, error) {
	if err := checkSymmetricAlg(symmetricAlg); err != nil {
		return nil, err
	}

	nameAlg := name.Algorithm()
	if !nameAlg.Available() {
		return nil, errors.New("name algorithm is not available")
	}

	blockSize, err := esys.SymAlgorithmId(symmetricAlg.Algorithm).BlockSize()
	if err != nil {
		return nil, xerrors.Errorf("cannot determine block size: %w", err)
	}
	if err := esys.CryptSymmetricDecrypt(esys.SymAlgorithmId(symmetricAlg.Algorithm), innerSymKey, make([]byte, blockSize), data); err != nil {
		return nil, xerrors.Errorf("cannot remove wrapper: %w", err)
	}

	r := bytes.NewReader(data)

	var innerIntegrity []byte
	if _, err := mu.UnmarshalFromReader(r, &innerIntegrity); err != nil {
		return nil, xerrors.Errorf("cannot unpack integrity digest: %w", err)
	}

	data, err = ioutil.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("cannot unpack wrapper: %w", err)
	}

	h := nameAlg.NewHash()
	h.Write(data)
	h.Write(name)

	if !bytes.Equal(h.Sum(nil), innerIntegrity) {
		return nil, errors.New("integrity digest is invalid")
	}

	return data, nil
}
