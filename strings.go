// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import (
	"fmt"
)

var commandCodeNames = map[CommandCode]string{
	CommandContextLoad:       "TPM_CC_ContextLoad",
	CommandContextSave:       "TPM_CC_ContextSave",
	CommandDuplicate:         "TPM_CC_Duplicate",
	CommandFlushContext:      "TPM_CC_FlushContext",
	CommandGetCapability:     "TPM_CC_GetCapability",
	CommandImport:            "TPM_CC_Import",
	CommandLoad:              "TPM_CC_Load",
	CommandPolicyCommandCode: "TPM_CC_PolicyCommandCode",
	CommandRewrap:            "TPM_CC_Rewrap",
	CommandStartAuthSession:  "TPM_CC_StartAuthSession",
	CommandStartup:           "TPM_CC_Startup",
}

func (c CommandCode) String() string {
	if name, ok := commandCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("TPM_CC_%08x", uint32(c))
}

var errorCodeNames = map[ErrorCode]string{
	ErrorInitialize:      "TPM_RC_INITIALIZE",
	ErrorFailure:         "TPM_RC_FAILURE",
	ErrorSequence:        "TPM_RC_SEQUENCE",
	ErrorDisabled:        "TPM_RC_DISABLED",
	ErrorExclusive:       "TPM_RC_EXCLUSIVE",
	ErrorAuthType:        "TPM_RC_AUTH_TYPE",
	ErrorAuthMissing:     "TPM_RC_AUTH_MISSING",
	ErrorPolicy:          "TPM_RC_POLICY",
	ErrorPCR:             "TPM_RC_PCR",
	ErrorPCRChanged:      "TPM_RC_PCR_CHANGED",
	ErrorUpgrade:         "TPM_RC_UPGRADE",
	ErrorTooManyContexts: "TPM_RC_TOO_MANY_CONTEXTS",
	ErrorAuthUnavailable: "TPM_RC_AUTH_UNAVAILABLE",
	ErrorReboot:          "TPM_RC_REBOOT",
	ErrorUnbalanced:      "TPM_RC_UNBALANCED",
	ErrorCommandSize:     "TPM_RC_COMMAND_SIZE",
	ErrorCommandCode:     "TPM_RC_COMMAND_CODE",
	ErrorAuthsize:        "TPM_RC_AUTHSIZE",
	ErrorAuthContext:     "TPM_RC_AUTH_CONTEXT",
	ErrorNoResult:        "TPM_RC_NO_RESULT",
	ErrorSensitive:       "TPM_RC_SENSITIVE",
	ErrorAsymmetric:      "TPM_RC_ASYMMETRIC",
	ErrorAttributes:      "TPM_RC_ATTRIBUTES",
	ErrorHash:            "TPM_RC_HASH",
	ErrorValue:           "TPM_RC_VALUE",
	ErrorHierarchy:       "TPM_RC_HIERARCHY",
	ErrorKeySize:         "TPM_RC_KEY_SIZE",
	ErrorMGF:             "TPM_RC_MGF",
	ErrorMode:            "TPM_RC_MODE",
	ErrorType:            "TPM_RC_TYPE",
	ErrorHandle:          "TPM_RC_HANDLE",
	ErrorKDF:             "TPM_RC_KDF",
	ErrorRange:           "TPM_RC_RANGE",
	ErrorAuthFail:        "TPM_RC_AUTH_FAIL",
	ErrorNonce:           "TPM_RC_NONCE",
	ErrorPP:              "TPM_RC_PP",
	ErrorScheme:          "TPM_RC_SCHEME",
	ErrorSize:            "TPM_RC_SIZE",
	ErrorSymmetric:       "TPM_RC_SYMMETRIC",
	ErrorTag:             "TPM_RC_TAG",
	ErrorSelector:        "TPM_RC_SELECTOR",
	ErrorInsufficient:    "TPM_RC_INSUFFICIENT",
	ErrorSignature:       "TPM_RC_SIGNATURE",
	ErrorKey:             "TPM_RC_KEY",
	ErrorPolicyFail:      "TPM_RC_POLICY_FAIL",
	ErrorIntegrity:       "TPM_RC_INTEGRITY",
	ErrorTicket:          "TPM_RC_TICKET",
	ErrorReservedBits:    "TPM_RC_RESERVED_BITS",
	ErrorBadAuth:         "TPM_RC_BAD_AUTH",
	ErrorExpired:         "TPM_RC_EXPIRED",
	ErrorPolicyCC:        "TPM_RC_POLICY_CC",
	ErrorBinding:         "TPM_RC_BINDING",
	ErrorCurve:           "TPM_RC_CURVE",
	ErrorECCPoint:        "TPM_RC_ECC_POINT",
}

func (e ErrorCode) String() string {
	if name, ok := errorCodeNames[e]; ok {
		return name
	}
	return fmt.Sprintf("TPM_RC_%02x", uint8(e))
}

var errorCodeDescriptions = map[ErrorCode]string{
	ErrorFailure:         "commands not being accepted because of a TPM failure",
	ErrorSequence:        "improper use of a sequence handle",
	ErrorDisabled:        "the command is disabled",
	ErrorAuthMissing:     "authorization handle is not correct for command",
	ErrorPolicy:          "policy failure in math operation or an invalid authPolicy value",
	ErrorAttributes:      "inconsistent attributes",
	ErrorValue:           "value is out of range or is not correct for the context",
	ErrorHierarchy:       "hierarchy is not enabled or is not correct for the use",
	ErrorHandle:          "the handle is not correct for the use",
	ErrorAuthFail:        "the authorization HMAC check failed and DA counter incremented",
	ErrorSize:            "structure is the wrong size",
	ErrorInsufficient:    "the TPM was unable to unmarshal a value because there were not enough octets in the input buffer",
	ErrorKey:             "key fields are not compatible with the selected use",
	ErrorPolicyFail:      "a policy check failed",
	ErrorIntegrity:       "integrity check failed",
	ErrorBadAuth:         "authorization failure without DA implications",
	ErrorPolicyCC:        "commandCode in sessions is not commandCode of the command",
	ErrorTooManyContexts: "out of memory for object contexts",
}

var warningCodeNames = map[WarningCode]string{
	WarningContextGap:     "TPM_RC_CONTEXT_GAP",
	WarningObjectMemory:   "TPM_RC_OBJECT_MEMORY",
	WarningSessionMemory:  "TPM_RC_SESSION_MEMORY",
	WarningMemory:         "TPM_RC_MEMORY",
	WarningSessionHandles: "TPM_RC_SESSION_HANDLES",
	WarningObjectHandles:  "TPM_RC_OBJECT_HANDLES",
	WarningLocality:       "TPM_RC_LOCALITY",
	WarningYielded:        "TPM_RC_YIELDED",
	WarningCanceled:       "TPM_RC_CANCELED",
	WarningTesting:        "TPM_RC_TESTING",
	WarningNVRate:         "TPM_RC_NV_RATE",
	WarningLockout:        "TPM_RC_LOCKOUT",
	WarningRetry:          "TPM_RC_RETRY",
	WarningNVUnavailable:  "TPM_RC_NV_UNAVAILABLE",
}

func (w WarningCode) String() string {
	if name, ok := warningCodeNames[w]; ok {
		return name
	}
	return fmt.Sprintf("TPM_RC_%02x", uint8(w))
}

var warningCodeDescriptions = map[WarningCode]string{
	WarningContextGap:     "gap for context ID is too large",
	WarningObjectMemory:   "out of memory for object contexts",
	WarningSessionMemory:  "out of memory for session contexts",
	WarningMemory:         "out of shared object/session memory or need space for internal operations",
	WarningSessionHandles: "out of session handles",
	WarningObjectHandles:  "out of object handles",
	WarningLocality:       "bad locality",
	WarningYielded:        "the TPM has suspended operation on the command",
	WarningCanceled:       "the command was canceled",
	WarningTesting:        "TPM is performing self-tests",
	WarningNVRate:         "the TPM is rate-limiting accesses to prevent wearout of NV",
	WarningLockout:        "authorizations for objects subject to DA protection are not allowed at this time because the TPM is in DA lockout mode",
	WarningRetry:          "the TPM was not able to start the command",
	WarningNVUnavailable:  "the command may require writing of NV and NV is not current accessible",
}

var handleNames = map[Handle]string{
	HandleOwner:       "TPM_RH_OWNER",
	HandleNull:        "TPM_RH_NULL",
	HandlePW:          "TPM_RS_PW",
	HandleEndorsement: "TPM_RH_ENDORSEMENT",
	HandlePlatform:    "TPM_RH_PLATFORM",
	HandleUnassigned:  "TPM_RH_UNASSIGNED",
}

func (h Handle) String() string {
	if name, ok := handleNames[h]; ok {
		return name
	}
	return fmt.Sprintf("0x%08x", uint32(h))
}
