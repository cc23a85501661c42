// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import (
	"golang.org/x/xerrors"
)

// Duplicate executes the TPM2_Duplicate command in order to duplicate the
// object associated with objectToDuplicate so that it may be used in a
// different hierarchy. The new parent is specified by the newParentHandle
// argument, which may be HandleNull for no new parent.
//
// Authorization of objectToDuplicate is supplied by the session in the
// primary slot of this Context (see SetSessions), which must be a policy
// session with the TPM2_PolicyDuplicationSelect assertion. If the primary
// slot is empty, a *MissingSessionError is returned and nothing is
// submitted to the TPM.
//
// If symmetricAlg is provided and is not SymObjectAlgorithmNull, the
// sensitive area of the duplicated object is wrapped with the specified
// inner symmetric key. In this case, encryptionKeyIn can be used to
// provide the symmetric key. If it is not provided, a symmetric key is
// created by the TPM and returned in the first return value. When
// symmetricAlg is nil or SymObjectAlgorithmNull, the returned key is
// empty.
//
// On success, the private area of the duplicated object is returned along
// with a seed encrypted to the public area of the new parent. The seed is
// empty if newParentHandle is HandleNull.
func (c *Context) Duplicate(objectToDuplicate, newParentHandle Handle, encryptionKeyIn Data, symmetricAlg *SymDefObject) (Data, Private, EncryptedSecret, error) {
	if len(encryptionKeyIn) > MaxDataSize {
		return nil, nil, nil, &BufferTooLargeError{Type: "TPM2B_DATA", Length: len(encryptionKeyIn), Max: MaxDataSize}
	}

	sessions, err := c.sessionsForAuthCommand()
	if err != nil {
		return nil, nil, nil, err
	}

	var encryptionKeyOut []byte
	var duplicate []byte
	var outSymSeed []byte

	if err := c.RunCommand(CommandDuplicate, sessions,
		objectToDuplicate, newParentHandle, Delimiter,
		encryptionKeyIn, symDefObjectOrNull(symmetricAlg), Delimiter,
		Delimiter,
		&encryptionKeyOut, &duplicate, &outSymSeed); err != nil {
		return nil, nil, nil, err
	}

	key, err := NewData(encryptionKeyOut)
	if err != nil {
		return nil, nil, nil, &InvalidResponseError{CommandDuplicate, xerrors.Errorf("invalid encryptionKeyOut payload: %w", err)}
	}
	priv, err := NewPrivate(duplicate)
	if err != nil {
		return nil, nil, nil, &InvalidResponseError{CommandDuplicate, xerrors.Errorf("invalid duplicate payload: %w", err)}
	}
	seed, err := NewEncryptedSecret(outSymSeed)
	if err != nil {
		return nil, nil, nil, &InvalidResponseError{CommandDuplicate, xerrors.Errorf("invalid outSymSeed payload: %w", err)}
	}

	return key, priv, seed, nil
}
