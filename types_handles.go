// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

// This file contains types defined in section 7 (Handles) in
// part 2 of the library spec.

// Handle corresponds to the TPM_HANDLE type, and is a numeric identifier
// that references a resource on the TPM. A Handle is only meaningful within
// the context it was obtained from - the resource it references is owned by
// the TPM and is created and flushed by commands outside the scope of this
// package.
type Handle uint32

const (
	// HandleOwner corresponds to the owner hierarchy.
	HandleOwner Handle = 0x40000001

	// HandleNull corresponds to the null hierarchy, and is also used to
	// indicate the absence of an optional handle.
	HandleNull Handle = 0x40000007

	// HandlePW is a permanent handle for a pseudo password session.
	HandlePW Handle = 0x40000009

	// HandleEndorsement corresponds to the endorsement hierarchy.
	HandleEndorsement Handle = 0x4000000b

	// HandlePlatform corresponds to the platform hierarchy.
	HandlePlatform Handle = 0x4000000c

	// HandleUnassigned is a handle that will never reference a resource.
	HandleUnassigned Handle = 0xffffffff
)

// Type returns the type of the handle.
func (h Handle) Type() HandleType {
	return HandleType(h >> 24)
}

// HandleType corresponds to the TPM_HT type, and is used to identify the
// type of a Handle.
type HandleType uint8

const (
	HandleTypePCR           HandleType = 0x00 // TPM_HT_PCR
	HandleTypeNVIndex       HandleType = 0x01 // TPM_HT_NV_INDEX
	HandleTypeHMACSession   HandleType = 0x02 // TPM_HT_HMAC_SESSION
	HandleTypePolicySession HandleType = 0x03 // TPM_HT_POLICY_SESSION
	HandleTypePermanent     HandleType = 0x40 // TPM_HT_PERMANENT
	HandleTypeTransient     HandleType = 0x80 // TPM_HT_TRANSIENT
	HandleTypePersistent    HandleType = 0x81 // TPM_HT_PERSISTENT
)

// BaseHandle returns the first handle for the handle type.
func (h HandleType) BaseHandle() Handle {
	return Handle(h) << 24
}
