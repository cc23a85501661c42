// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

// This file contains types defined in section 6 (Constants) in
// part 2 of the library spec.

// CommandCode corresponds to the TPM_CC type.
type CommandCode uint32

const (
	CommandContextLoad       CommandCode = 0x00000161 // TPM_CC_ContextLoad
	CommandContextSave       CommandCode = 0x00000162 // TPM_CC_ContextSave
	CommandDuplicate         CommandCode = 0x0000014b // TPM_CC_Duplicate
	CommandFlushContext      CommandCode = 0x00000165 // TPM_CC_FlushContext
	CommandGetCapability     CommandCode = 0x0000017a // TPM_CC_GetCapability
	CommandImport            CommandCode = 0x00000156 // TPM_CC_Import
	CommandLoad              CommandCode = 0x00000157 // TPM_CC_Load
	CommandPolicyCommandCode CommandCode = 0x0000016c // TPM_CC_PolicyCommandCode
	CommandRewrap            CommandCode = 0x00000152 // TPM_CC_Rewrap
	CommandStartAuthSession  CommandCode = 0x00000176 // TPM_CC_StartAuthSession
	CommandStartup           CommandCode = 0x00000144 // TPM_CC_Startup
)

// ResponseCode corresponds to the TPM_RC type.
type ResponseCode uint32

// Success is the response code returned when a command completes
// successfully.
const Success ResponseCode = 0x00000000

const (
	// The lower 7-bits of format-zero error codes are the error number.
	responseCodeE0 ResponseCode = 0x7f

	// The lower 6-bits of format-one error codes are the error number.
	responseCodeE1 ResponseCode = 0x3f

	// Bit 6 of format-one errors is zero for errors associated with a handle
	// or session, or one for errors associated with a parameter.
	responseCodeP ResponseCode = 1 << 6

	// Bit 7 indicates whether the error is a format-zero (0) or format-one (1) code.
	responseCodeF ResponseCode = 1 << 7

	// Bit 8 of format-zero errors is zero for TPM1.2 errors and one for TPM2 errors.
	responseCodeV ResponseCode = 1 << 8

	// Bit 10 of format-zero errors is zero for TCG defined errors and one for
	// vendor defined errors.
	responseCodeT ResponseCode = 1 << 10

	// Bit 11 of format-zero errors is zero for errors and one for warnings.
	responseCodeS ResponseCode = 1 << 11

	responseCodeIndex      uint8 = 0xf
	responseCodeIndexShift uint8 = 8

	// Bits 8 to 11 of format-one errors represent the parameter number if P is
	// set or the handle or session number otherwise.
	responseCodeN ResponseCode = ResponseCode(responseCodeIndex) << responseCodeIndexShift

	// Bit 11 of format-one errors associated with a handle or session is zero
	// for errors associated with a handle and one for errors associated with
	// a session.
	responseCodeSession ResponseCode = 1 << 11
)

// E returns the E field of the response code, corresponding to the error
// number.
func (rc ResponseCode) E() uint8 {
	if rc.F() {
		return uint8(rc & responseCodeE1)
	}
	return uint8(rc & responseCodeE0)
}

// F returns the F field of the response code, corresponding to the format.
// If it is set, this is a format-one response code. If it is not set, this
// is a format-zero response code.
func (rc ResponseCode) F() bool {
	return rc&responseCodeF != 0
}

// V returns the V field of the response code. If this is set in a
// format-zero response code, then it is a TPM2 code. If it is not set, then
// it is a TPM1.2 code.
func (rc ResponseCode) V() bool {
	return rc&responseCodeV != 0
}

// T returns the T field of the response code. If this is set in a
// format-zero response code, then the code is defined by the TPM vendor.
func (rc ResponseCode) T() bool {
	return rc&responseCodeT != 0
}

// S returns the S field of the response code. If this is set in a
// format-zero response code, then the code indicates a warning rather than
// an error.
func (rc ResponseCode) S() bool {
	return rc&responseCodeS != 0
}

// P returns the P field of the response code. If this is set in a
// format-one response code, then the code is associated with a command
// parameter. If it is not set, then the code is associated with a command
// handle or session.
func (rc ResponseCode) P() bool {
	return rc&responseCodeP != 0
}

// N returns the N field of the response code. If the P field is set in a
// format-one response code, then this indicates the parameter number from
// 0x1 to 0xf. If the P field is not set, then the lower 3 bits indicate the
// handle or session number.
func (rc ResponseCode) N() uint8 {
	return uint8(rc & responseCodeN >> responseCodeIndexShift)
}

// StructTag corresponds to the TPM_ST type.
type StructTag uint16

const (
	TagRspCommand StructTag = 0x00c4 // TPM_ST_RSP_COMMAND
	TagNoSessions StructTag = 0x8001 // TPM_ST_NO_SESSIONS
	TagSessions   StructTag = 0x8002 // TPM_ST_SESSIONS
)

const (
	// DuplicateString is used as the label for secret sharing used by
	// object duplication.
	DuplicateString = "DUPLICATE"

	// IntegrityKey is used as the label for the HMAC key derivation
	// used for outer wrappers.
	IntegrityKey = "INTEGRITY"

	// StorageKey is used as the label for the symmetric key derivation
	// used for encrypting and decrypting outer wrappers.
	StorageKey = "STORAGE"
)
