// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import (
	"bytes"
	"fmt"

	"golang.org/x/xerrors"
)

const (
	// AnyCommandCode is used to match any command code when using the
	// {As,Is}TPMError, {As,Is}TPMHandleError, {As,Is}TPMParameterError,
	// {As,Is}TPMSessionError and {As,Is}TPMWarning helpers.
	AnyCommandCode CommandCode = 0xc0000000

	// AnyErrorCode is used to match any error code when using the
	// {As,Is}TPMError, {As,Is}TPMHandleError, {As,Is}TPMParameterError and
	// {As,Is}TPMSessionError helpers.
	AnyErrorCode ErrorCode = 0x100

	// AnyWarningCode is used to match any warning code when using the
	// {As,Is}TPMWarning helpers.
	AnyWarningCode WarningCode = 0x80

	// AnyHandleIndex is used to match any handle when using the
	// {As,Is}TPMHandleError helpers.
	AnyHandleIndex int = -1

	// AnyParameterIndex is used to match any parameter when using the
	// {As,Is}TPMParameterError helpers.
	AnyParameterIndex int = -1

	// AnySessionIndex is used to match any session when using the
	// {As,Is}TPMSessionError helpers.
	AnySessionIndex int = -1
)

// MissingSessionError is returned from any method that executes a command
// requiring an authorization session if the corresponding session slot on
// the Context has not been populated with SetSessions. No command is
// submitted to the TPM when this error is returned.
type MissingSessionError struct {
	// Index is the session slot that was required but unset, from 1.
	Index int
}

func (e *MissingSessionError) Error() string {
	return fmt.Sprintf("no session is set in required slot %d", e.Index)
}

// BufferTooLargeError is returned from the sized buffer constructors
// (NewData, NewPrivate, NewEncryptedSecret) if the declared length of the
// supplied buffer exceeds the fixed maximum for the type being constructed.
// When returned via a command, it indicates that the TPM produced an output
// larger than the type's maximum, which means the TPM and this package
// disagree about the shape of the response.
type BufferTooLargeError struct {
	Type   string // Name of the TPM wire type
	Length int    // Declared length of the native buffer
	Max    int    // Maximum length for the type
}

func (e *BufferTooLargeError) Error() string {
	return fmt.Sprintf("cannot make %s buffer: length %d exceeds maximum %d", e.Type, e.Length, e.Max)
}

// InvalidResponseError is returned from any method that executes a command
// if the TPM's response is invalid. An invalid response could be one that is
// shorter than the response header, one with an invalid responseSize field,
// or a success response with a payload that cannot be unmarshalled to the
// expected output parameters.
type InvalidResponseError struct {
	Command CommandCode
	err     error
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("TPM returned an invalid response for command %s: %v", e.Command, e.err)
}

func (e *InvalidResponseError) Unwrap() error {
	return e.err
}

// TransportError is returned from any method that executes a command if
// communication with the TPM fails.
type TransportError struct {
	Op  string // The operation that caused the error
	err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cannot complete %s operation on transport: %v", e.Op, e.err)
}

func (e *TransportError) Unwrap() error {
	return e.err
}

// TPM1Error is returned from DecodeResponseCode and any method that
// executes a command if the TPM response code indicates an error from a TPM
// 1.2 device.
type TPM1Error struct {
	Command CommandCode  // Command code associated with this error
	Code    ResponseCode // Response code
}

func (e *TPM1Error) Error() string {
	return fmt.Sprintf("TPM returned a 1.2 error whilst executing command %s: 0x%08x", e.Command, uint32(e.Code))
}

// TPMVendorError is returned from DecodeResponseCode and any method that
// executes a command if the TPM response code indicates a vendor-specific
// error.
type TPMVendorError struct {
	Command CommandCode  // Command code associated with this error
	Code    ResponseCode // Response code
}

func (e *TPMVendorError) Error() string {
	return fmt.Sprintf("TPM returned a vendor defined error whilst executing command %s: 0x%08x", e.Command, uint32(e.Code))
}

// WarningCode represents a response from the TPM that is not necessarily an
// error.
type WarningCode ResponseCode

// TPMWarning is returned from DecodeResponseCode and any method that
// executes a command if the TPM response code indicates a condition that is
// not necessarily an error.
type TPMWarning struct {
	Command CommandCode // Command code associated with this error
	Code    WarningCode // Warning code
}

func (e *TPMWarning) Error() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "TPM returned a warning whilst executing command %s: %s", e.Command, e.Code)
	if desc, hasDesc := warningCodeDescriptions[e.Code]; hasDesc {
		fmt.Fprintf(&builder, " (%s)", desc)
	}
	return builder.String()
}

// ErrorCode represents an error code from the TPM.
type ErrorCode ResponseCode

// TPMError is returned from DecodeResponseCode and any method that executes
// a command if the TPM response code indicates an error that is not
// associated with a handle, parameter or session.
type TPMError struct {
	Command CommandCode // Command code associated with this error
	Code    ErrorCode   // Error code
}

func (e *TPMError) Error() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "TPM returned an error whilst executing command %s: %s", e.Command, e.Code)
	if desc, hasDesc := errorCodeDescriptions[e.Code]; hasDesc {
		fmt.Fprintf(&builder, " (%s)", desc)
	}
	return builder.String()
}

// TPMParameterError is returned from DecodeResponseCode and any method that
// executes a command if the TPM response code indicates an error that is
// associated with a command parameter. It wraps a *TPMError.
type TPMParameterError struct {
	*TPMError
	Index int // Index of the parameter associated with this error in the command parameter area, starting from 1
}

func (e *TPMParameterError) Error() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "TPM returned an error for parameter %d whilst executing command %s: %s", e.Index, e.Command, e.Code)
	if desc, hasDesc := errorCodeDescriptions[e.Code]; hasDesc {
		fmt.Fprintf(&builder, " (%s)", desc)
	}
	return builder.String()
}

func (e *TPMParameterError) Unwrap() error {
	return e.TPMError
}

// TPMSessionError is returned from DecodeResponseCode and any method that
// executes a command if the TPM response code indicates an error that is
// associated with a session. It wraps a *TPMError.
type TPMSessionError struct {
	*TPMError
	Index int // Index of the session associated with this error in the authorization area, starting from 1
}

func (e *TPMSessionError) Error() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "TPM returned an error for session %d whilst executing command %s: %s", e.Index, e.Command, e.Code)
	if desc, hasDesc := errorCodeDescriptions[e.Code]; hasDesc {
		fmt.Fprintf(&builder, " (%s)", desc)
	}
	return builder.String()
}

func (e *TPMSessionError) Unwrap() error {
	return e.TPMError
}

// TPMHandleError is returned from DecodeResponseCode and any method that
// executes a command if the TPM response code indicates an error that is
// associated with a command handle. It wraps a *TPMError.
type TPMHandleError struct {
	*TPMError
	// Index is the index of the handle associated with this error in the
	// command handle area, starting from 1. An index of 0 corresponds to an
	// unspecified handle.
	Index int
}

func (e *TPMHandleError) Error() string {
	var builder bytes.Buffer
	fmt.Fprintf(&builder, "TPM returned an error for handle %d whilst executing command %s: %s", e.Index, e.Command, e.Code)
	if desc, hasDesc := errorCodeDescriptions[e.Code]; hasDesc {
		fmt.Fprintf(&builder, " (%s)", desc)
	}
	return builder.String()
}

func (e *TPMHandleError) Unwrap() error {
	return e.TPMError
}

// AsTPMError indicates whether the error or any error within its chain is a
// *TPMError with the specified ErrorCode and CommandCode, and sets out to
// the value of error if it is. To test for any error code, use
// AnyErrorCode. To test for any command code, use AnyCommandCode. This will
// panic if out is nil.
func AsTPMError(err error, code ErrorCode, command CommandCode, out **TPMError) bool {
	return xerrors.As(err, out) && (code == AnyErrorCode || (*out).Code == code) && (command == AnyCommandCode || (*out).Command == command)
}

// IsTPMError indicates whether the error or any error within its chain is a
// *TPMError with the specified ErrorCode and CommandCode. To test for any
// error code, use AnyErrorCode. To test for any command code, use
// AnyCommandCode.
func IsTPMError(err error, code ErrorCode, command CommandCode) bool {
	var e *TPMError
	return AsTPMError(err, code, command, &e)
}

// AsTPMHandleError indicates whether the error or any error within its
// chain is a *TPMHandleError with the specified ErrorCode, CommandCode and
// handle index, and sets out to the value of error if it is. To test for
// any handle index, use AnyHandleIndex. This will panic if out is nil.
func AsTPMHandleError(err error, code ErrorCode, command CommandCode, handle int, out **TPMHandleError) bool {
	return xerrors.As(err, out) && (code == AnyErrorCode || (*out).Code == code) && (command == AnyCommandCode || (*out).Command == command) && (handle == AnyHandleIndex || (*out).Index == handle)
}

// IsTPMHandleError indicates whether the error or any error within its
// chain is a *TPMHandleError with the specified ErrorCode, CommandCode and
// handle index. To test for any handle index, use AnyHandleIndex.
func IsTPMHandleError(err error, code ErrorCode, command CommandCode, handle int) bool {
	var e *TPMHandleError
	return AsTPMHandleError(err, code, command, handle, &e)
}

// AsTPMParameterError indicates whether the error or any error within its
// chain is a *TPMParameterError with the specified ErrorCode, CommandCode
// and parameter index, and sets out to the value of error if it is. To test
// for any parameter index, use AnyParameterIndex. This will panic if out is
// nil.
func AsTPMParameterError(err error, code ErrorCode, command CommandCode, param int, out **TPMParameterError) bool {
	return xerrors.As(err, out) && (code == AnyErrorCode || (*out).Code == code) && (command == AnyCommandCode || (*out).Command == command) && (param == AnyParameterIndex || (*out).Index == param)
}

// IsTPMParameterError indicates whether the error or any error within its
// chain is a *TPMParameterError with the specified ErrorCode, CommandCode
// and parameter index. To test for any parameter index, use
// AnyParameterIndex.
func IsTPMParameterError(err error, code ErrorCode, command CommandCode, param int) bool {
	var e *TPMParameterError
	return AsTPMParameterError(err, code, command, param, &e)
}

// AsTPMSessionError indicates whether the error or any error within its
// chain is a *TPMSessionError with the specified ErrorCode, CommandCode and
// session index, and sets out to the value of error if it is. To test for
// any session index, use AnySessionIndex. This will panic if out is nil.
func AsTPMSessionError(err error, code ErrorCode, command CommandCode, session int, out **TPMSessionError) bool {
	return xerrors.As(err, out) && (code == AnyErrorCode || (*out).Code == code) && (command == AnyCommandCode || (*out).Command == command) && (session == AnySessionIndex || (*out).Index == session)
}

// IsTPMSessionError indicates whether the error or any error within its
// chain is a *TPMSessionError with the specified ErrorCode, CommandCode and
// session index. To test for any session index, use AnySessionIndex.
func IsTPMSessionError(err error, code ErrorCode, command CommandCode, session int) bool {
	var e *TPMSessionError
	return AsTPMSessionError(err, code, command, session, &e)
}

// AsTPMWarning indicates whether the error or any error within its chain is
// a *TPMWarning with the specified WarningCode and CommandCode, and sets
// out to the value of error if it is. To test for any warning code, use
// AnyWarningCode. This will panic if out is nil.
func AsTPMWarning(err error, code WarningCode, command CommandCode, out **TPMWarning) bool {
	return xerrors.As(err, out) && (code == AnyWarningCode || (*out).Code == code) && (command == AnyCommandCode || (*out).Command == command)
}

// IsTPMWarning indicates whether the error or any error within its chain is
// a *TPMWarning with the specified WarningCode and CommandCode. To test for
// any warning code, use AnyWarningCode.
func IsTPMWarning(err error, code WarningCode, command CommandCode) bool {
	var e *TPMWarning
	return AsTPMWarning(err, code, command, &e)
}

const errorCode1Start ErrorCode = 0x80

const (
	// Format-zero error codes.
	ErrorInitialize      ErrorCode = 0x00 // TPM_RC_INITIALIZE
	ErrorFailure         ErrorCode = 0x01 // TPM_RC_FAILURE
	ErrorSequence        ErrorCode = 0x03 // TPM_RC_SEQUENCE
	ErrorDisabled        ErrorCode = 0x20 // TPM_RC_DISABLED
	ErrorExclusive       ErrorCode = 0x21 // TPM_RC_EXCLUSIVE
	ErrorAuthType        ErrorCode = 0x24 // TPM_RC_AUTH_TYPE
	ErrorAuthMissing     ErrorCode = 0x25 // TPM_RC_AUTH_MISSING
	ErrorPolicy          ErrorCode = 0x26 // TPM_RC_POLICY
	ErrorPCR             ErrorCode = 0x27 // TPM_RC_PCR
	ErrorPCRChanged      ErrorCode = 0x28 // TPM_RC_PCR_CHANGED
	ErrorUpgrade         ErrorCode = 0x2d // TPM_RC_UPGRADE
	ErrorTooManyContexts ErrorCode = 0x2e // TPM_RC_TOO_MANY_CONTEXTS
	ErrorAuthUnavailable ErrorCode = 0x2f // TPM_RC_AUTH_UNAVAILABLE
	ErrorReboot          ErrorCode = 0x30 // TPM_RC_REBOOT
	ErrorUnbalanced      ErrorCode = 0x31 // TPM_RC_UNBALANCED
	ErrorCommandSize     ErrorCode = 0x42 // TPM_RC_COMMAND_SIZE
	ErrorCommandCode     ErrorCode = 0x43 // TPM_RC_COMMAND_CODE
	ErrorAuthsize        ErrorCode = 0x44 // TPM_RC_AUTHSIZE
	ErrorAuthContext     ErrorCode = 0x45 // TPM_RC_AUTH_CONTEXT
	ErrorNoResult        ErrorCode = 0x54 // TPM_RC_NO_RESULT
	ErrorSensitive       ErrorCode = 0x55 // TPM_RC_SENSITIVE

	// Format-one error codes.
	ErrorAsymmetric   ErrorCode = errorCode1Start + 0x01 // TPM_RC_ASYMMETRIC
	ErrorAttributes   ErrorCode = errorCode1Start + 0x02 // TPM_RC_ATTRIBUTES
	ErrorHash         ErrorCode = errorCode1Start + 0x03 // TPM_RC_HASH
	ErrorValue        ErrorCode = errorCode1Start + 0x04 // TPM_RC_VALUE
	ErrorHierarchy    ErrorCode = errorCode1Start + 0x05 // TPM_RC_HIERARCHY
	ErrorKeySize      ErrorCode = errorCode1Start + 0x07 // TPM_RC_KEY_SIZE
	ErrorMGF          ErrorCode = errorCode1Start + 0x08 // TPM_RC_MGF
	ErrorMode         ErrorCode = errorCode1Start + 0x09 // TPM_RC_MODE
	ErrorType         ErrorCode = errorCode1Start + 0x0a // TPM_RC_TYPE
	ErrorHandle       ErrorCode = errorCode1Start + 0x0b // TPM_RC_HANDLE
	ErrorKDF          ErrorCode = errorCode1Start + 0x0c // TPM_RC_KDF
	ErrorRange        ErrorCode = errorCode1Start + 0x0d // TPM_RC_RANGE
	ErrorAuthFail     ErrorCode = errorCode1Start + 0x0e // TPM_RC_AUTH_FAIL
	ErrorNonce        ErrorCode = errorCode1Start + 0x0f // TPM_RC_NONCE
	ErrorPP           ErrorCode = errorCode1Start + 0x10 // TPM_RC_PP
	ErrorScheme       ErrorCode = errorCode1Start + 0x12 // TPM_RC_SCHEME
	ErrorSize         ErrorCode = errorCode1Start + 0x15 // TPM_RC_SIZE
	ErrorSymmetric    ErrorCode = errorCode1Start + 0x16 // TPM_RC_SYMMETRIC
	ErrorTag          ErrorCode = errorCode1Start + 0x17 // TPM_RC_TAG
	ErrorSelector     ErrorCode = errorCode1Start + 0x18 // TPM_RC_SELECTOR
	ErrorInsufficient ErrorCode = errorCode1Start + 0x1a // TPM_RC_INSUFFICIENT
	ErrorSignature    ErrorCode = errorCode1Start + 0x1b // TPM_RC_SIGNATURE
	ErrorKey          ErrorCode = errorCode1Start + 0x1c // TPM_RC_KEY
	ErrorPolicyFail   ErrorCode = errorCode1Start + 0x1d // TPM_RC_POLICY_FAIL
	ErrorIntegrity    ErrorCode = errorCode1Start + 0x1f // TPM_RC_INTEGRITY
	ErrorTicket       ErrorCode = errorCode1Start + 0x20 // TPM_RC_TICKET
	ErrorReservedBits ErrorCode = errorCode1Start + 0x21 // TPM_RC_RESERVED_BITS
	ErrorBadAuth      ErrorCode = errorCode1Start + 0x22 // TPM_RC_BAD_AUTH
	ErrorExpired      ErrorCode = errorCode1Start + 0x23 // TPM_RC_EXPIRED
	ErrorPolicyCC     ErrorCode = errorCode1Start + 0x24 // TPM_RC_POLICY_CC
	ErrorBinding      ErrorCode = errorCode1Start + 0x25 // TPM_RC_BINDING
	ErrorCurve        ErrorCode = errorCode1Start + 0x26 // TPM_RC_CURVE
	ErrorECCPoint     ErrorCode = errorCode1Start + 0x27 // TPM_RC_ECC_POINT
)

const (
	WarningContextGap     WarningCode = 0x01 // TPM_RC_CONTEXT_GAP
	WarningObjectMemory   WarningCode = 0x02 // TPM_RC_OBJECT_MEMORY
	WarningSessionMemory  WarningCode = 0x03 // TPM_RC_SESSION_MEMORY
	WarningMemory         WarningCode = 0x04 // TPM_RC_MEMORY
	WarningSessionHandles WarningCode = 0x05 // TPM_RC_SESSION_HANDLES
	WarningObjectHandles  WarningCode = 0x06 // TPM_RC_OBJECT_HANDLES
	WarningLocality       WarningCode = 0x07 // TPM_RC_LOCALITY
	WarningYielded        WarningCode = 0x08 // TPM_RC_YIELDED
	WarningCanceled       WarningCode = 0x09 // TPM_RC_CANCELED
	WarningTesting        WarningCode = 0x0a // TPM_RC_TESTING
	WarningNVRate         WarningCode = 0x20 // TPM_RC_NV_RATE
	WarningLockout        WarningCode = 0x21 // TPM_RC_LOCKOUT
	WarningRetry          WarningCode = 0x22 // TPM_RC_RETRY
	WarningNVUnavailable  WarningCode = 0x23 // TPM_RC_NV_UNAVAILABLE
)

// DecodeResponseCode decodes the ResponseCode provided via resp. If the
// specified response code is Success, it returns no error, else it returns
// an error that is appropriate for the response code. The command code is
// used for adding context to the returned error.
//
// The returned error describes the failure but never grants access to any
// response payload - output parameters of a command are only valid when
// this function returns nil.
func DecodeResponseCode(command CommandCode, resp ResponseCode) error {
	switch {
	case resp == Success:
		return nil
	case !resp.F():
		// Format-zero error codes
		switch {
		case !resp.V():
			return &TPM1Error{command, resp}
		case resp.T():
			return &TPMVendorError{command, resp}
		case resp.S():
			return &TPMWarning{command, WarningCode(resp.E())}
		default:
			return &TPMError{command, ErrorCode(resp.E())}
		}
	default:
		// Format-one error codes
		err := &TPMError{command, ErrorCode(resp.E()) + errorCode1Start}
		switch {
		case resp.P():
			return &TPMParameterError{err, int(resp.N())}
		case resp&responseCodeSession != 0:
			return &TPMSessionError{err, int(resp.N() & 0x7)}
		case resp.N() != 0:
			return &TPMHandleError{err, int(resp.N())}
		default:
			return err
		}
	}
}
