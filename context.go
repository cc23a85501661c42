// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"reflect"

	"github.com/canonical/go-tpm2-esys/mu"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

func wrapMarshallingError(commandCode CommandCode, context string, err error) error {
	return fmt.Errorf("cannot marshal %s for command %s: %v", context, commandCode, err)
}

func (c *cmdContext) wrapUnmarshallingError(scope string, err error) error {
	if mu.IsShortBufferError(err) {
		return &InvalidResponseError{c.commandCode, xerrors.Errorf("cannot unmarshal %s: %w", scope, err)}
	}
	return fmt.Errorf("cannot unmarshal %s for command %s: %v", scope, c.commandCode, err)
}

type commandHeader struct {
	Tag         StructTag
	CommandSize uint32
	CommandCode CommandCode
}

type responseHeader struct {
	Tag          StructTag
	ResponseSize uint32
	ResponseCode ResponseCode
}

type cmdContext struct {
	commandCode   CommandCode
	sessions      []*Session
	responseCode  ResponseCode
	responseTag   StructTag
	responseBytes []byte
}

type delimiterSentinel struct{}

// Delimiter is a sentinel value used to delimit command handle, command
// parameter, response handle pointer and response parameter pointer blocks
// in the variable length params argument in Context.RunCommand.
var Delimiter delimiterSentinel

// Context is the main entry point by which commands are executed on a TPM
// device. It communicates with the TPM via a Transport supplied to
// NewContext.
//
// A Context carries the set of sessions used to authorize commands - see
// SetSessions. The session set is mutable state of the Context: a Context
// must not be used from more than one goroutine at a time. For concurrent
// use, open one Context per goroutine.
//
// Methods that execute commands on the TPM will return errors where the TPM
// responds with them. These are in the form of *TPMError, *TPMWarning,
// *TPMHandleError, *TPMSessionError, *TPMParameterError and
// *TPMVendorError types.
type Context struct {
	transport Transport
	sessions  [3]*Session
	logger    logrus.FieldLogger
}

// NewContext creates a new instance of Context, which communicates with the
// TPM using the supplied transport, such as the one returned from
// OpenDevice or OpenMssim.
func NewContext(transport Transport) *Context {
	return &Context{
		transport: transport,
		logger:    logrus.StandardLogger()}
}

// Close calls Close on the transport.
func (c *Context) Close() error {
	if err := c.transport.Close(); err != nil {
		return &TransportError{"close", err}
	}
	return nil
}

// SetLogger sets the logger used to record non-success responses from the
// TPM. The default is logrus.StandardLogger.
func (c *Context) SetLogger(logger logrus.FieldLogger) {
	c.logger = logger
}

// SetSessions sets the sessions attached to subsequent commands executed
// via this Context. Each of the three slots is optional. The set persists
// until the next call to SetSessions or ClearSessions.
//
// Commands that require authorization use the session in the primary slot.
// If the primary slot is nil when such a command is executed, the command
// fails with a *MissingSessionError before anything is submitted to the
// TPM. The secondary and tertiary slots are used for additional purposes
// such as auditing, and are skipped when nil.
func (c *Context) SetSessions(primary, secondary, tertiary *Session) {
	c.sessions = [3]*Session{primary, secondary, tertiary}
}

// ClearSessions removes all sessions from this Context.
func (c *Context) ClearSessions() {
	c.sessions = [3]*Session{}
}

// Sessions returns the sessions currently attached to this Context.
func (c *Context) Sessions() (primary, secondary, tertiary *Session) {
	return c.sessions[0], c.sessions[1], c.sessions[2]
}

// requiredSession returns the session in the specified slot (from 1), or a
// *MissingSessionError if the slot is unpopulated.
func (c *Context) requiredSession(slot int) (*Session, error) {
	if s := c.sessions[slot-1]; s != nil {
		return s, nil
	}
	return nil, &MissingSessionError{Index: slot}
}

// sessionsForAuthCommand assembles the sessions attached to a command that
// requires authorization. The primary slot is mandatory, the remaining
// slots are appended when populated.
func (c *Context) sessionsForAuthCommand() ([]*Session, error) {
	primary, err := c.requiredSession(1)
	if err != nil {
		return nil, err
	}
	sessions := []*Session{primary}
	for _, s := range c.sessions[1:] {
		if s != nil {
			sessions = append(sessions, s)
		}
	}
	return sessions, nil
}

// RunCommandBytes is a low-level interface for executing the command
// defined by the specified commandCode. It will construct an appropriate
// header, but the caller is responsible for providing the rest of the
// serialized command structure in commandBytes. Valid values for tag are
// TagNoSessions if the authorization area is empty, else TagSessions.
//
// If successful, this function will return the ResponseCode and StructTag
// from the response header along with the rest of the response structure
// (everything except for the header). It will not return an error if the
// TPM responds with an error as long as the returned response structure is
// correctly formed, but will return an error if the transport returns an
// error or the response is badly formed.
//
// Exactly one command is submitted per call - there is no automatic
// resubmission of commands that fail with a retryable warning.
func (c *Context) RunCommandBytes(tag StructTag, commandCode CommandCode, commandBytes []byte) (ResponseCode, StructTag, []byte, error) {
	cHeader := commandHeader{tag, 0, commandCode}
	cHeader.CommandSize = uint32(binary.Size(cHeader) + len(commandBytes))

	b, err := mu.MarshalToBytes(cHeader, mu.RawBytes(commandBytes))
	if err != nil {
		panic(fmt.Sprintf("cannot marshal complete command packet bytes: %v", err))
	}

	if _, err := c.transport.Write(b); err != nil {
		return 0, 0, nil, &TransportError{"write", err}
	}

	var rHeader responseHeader
	rHeaderSize := uint32(binary.Size(rHeader))
	rHeaderBytes := make([]byte, rHeaderSize)
	if n, err := io.ReadFull(c.transport, rHeaderBytes); err != nil {
		if xerrors.Is(err, io.ErrUnexpectedEOF) {
			return 0, 0, nil, &InvalidResponseError{commandCode,
				fmt.Errorf("insufficient bytes for response header (got %d, expected %d)", n, rHeaderSize)}
		}
		return 0, 0, nil, &TransportError{"read", err}
	}

	if _, err := mu.UnmarshalFromBytes(rHeaderBytes, &rHeader); err != nil {
		panic(fmt.Sprintf("cannot unmarshal response header: %v", err))
	}

	if rHeader.ResponseSize < rHeaderSize {
		return 0, 0, nil, &InvalidResponseError{commandCode,
			fmt.Errorf("invalid responseSize value (%d)", rHeader.ResponseSize)}
	}

	responseBytes := make([]byte, rHeader.ResponseSize-rHeaderSize)
	if n, err := io.ReadFull(c.transport, responseBytes); err != nil {
		if xerrors.Is(err, io.ErrUnexpectedEOF) {
			return 0, 0, nil, &InvalidResponseError{commandCode,
				fmt.Errorf("insufficient bytes for response payload (got %d, expected %d)", n, len(responseBytes))}
		}
		return 0, 0, nil, &TransportError{"read", err}
	}

	return rHeader.ResponseCode, rHeader.Tag, responseBytes, nil
}

func (c *Context) runCommandWithoutProcessingResponse(commandCode CommandCode, sessions []*Session, handles, params []interface{}) (*cmdContext, error) {
	cBytes := new(bytes.Buffer)

	for i, handle := range handles {
		h, isHandle := handle.(Handle)
		if !isHandle {
			return nil, wrapMarshallingError(commandCode, "command handles",
				fmt.Errorf("invalid type (%s) at index %d", reflect.TypeOf(handle), i))
		}
		if _, err := mu.MarshalToWriter(cBytes, h); err != nil {
			panic(fmt.Sprintf("cannot marshal command handles: %v", err))
		}
	}

	tag := TagNoSessions
	if len(sessions) > 0 {
		tag = TagSessions
		authArea, err := buildCommandAuthArea(sessions)
		if err != nil {
			return nil, fmt.Errorf("cannot build command auth area for command %s: %v", commandCode, err)
		}
		if _, err := mu.MarshalToWriter(cBytes, authArea); err != nil {
			panic(fmt.Sprintf("cannot marshal command auth area: %v", err))
		}
	}

	if _, err := mu.MarshalToWriter(cBytes, params...); err != nil {
		return nil, wrapMarshallingError(commandCode, "command parameters", err)
	}

	responseCode, responseTag, responseBytes, err := c.RunCommandBytes(tag, commandCode, cBytes.Bytes())
	if err != nil {
		return nil, err
	}

	if err := DecodeResponseCode(commandCode, responseCode); err != nil {
		c.logger.WithField("code", fmt.Sprintf("0x%08x", uint32(responseCode))).
			Errorf("command %s failed: %v", commandCode, err)
		return nil, err
	}

	return &cmdContext{
		commandCode:   commandCode,
		sessions:      sessions,
		responseCode:  responseCode,
		responseTag:   responseTag,
		responseBytes: responseBytes}, nil
}

// processResponse unpacks the payload of a success response. It is never
// called for a non-success response - errors from the TPM carry no valid
// output, so their payload is discarded without being dereferenced.
func (c *Context) processResponse(ctx *cmdContext, handles, params []interface{}) error {
	for i, handle := range handles {
		if _, isHandle := handle.(*Handle); !isHandle {
			return fmt.Errorf("cannot process response handle for command %s at index %d: invalid type (%s)",
				ctx.commandCode, i, reflect.TypeOf(handle))
		}
	}

	buf := bytes.NewReader(ctx.responseBytes)

	if len(handles) > 0 {
		if _, err := mu.UnmarshalFromReader(buf, handles...); err != nil {
			return ctx.wrapUnmarshallingError("response handles", err)
		}
	}

	var rpBuf *bytes.Reader

	switch ctx.responseTag {
	case TagSessions:
		var parameterSize uint32
		if _, err := mu.UnmarshalFromReader(buf, &parameterSize); err != nil {
			return ctx.wrapUnmarshallingError("parameterSize field", err)
		}
		rpBytes := make([]byte, parameterSize)
		if _, err := io.ReadFull(buf, rpBytes); err != nil {
			return ctx.wrapUnmarshallingError("response parameters",
				fmt.Errorf("error reading parameters to temporary buffer: %v", err))
		}

		authArea := make([]authResponse, len(ctx.sessions))
		for i := range authArea {
			if _, err := mu.UnmarshalFromReader(buf, &authArea[i]); err != nil {
				return ctx.wrapUnmarshallingError("response auth area", err)
			}
		}
		if err := processResponseAuthArea(authArea, ctx.sessions); err != nil {
			return &InvalidResponseError{ctx.commandCode, xerrors.Errorf("cannot process response auth area: %w", err)}
		}

		rpBuf = bytes.NewReader(rpBytes)
	case TagNoSessions:
		rpBuf = buf
	default:
		return &InvalidResponseError{ctx.commandCode, fmt.Errorf("unexpected response tag 0x%04x", uint16(ctx.responseTag))}
	}

	if len(params) > 0 {
		if _, err := mu.UnmarshalFromReader(rpBuf, params...); err != nil {
			return ctx.wrapUnmarshallingError("response parameters", err)
		}
	}

	if buf.Len() > 0 {
		return &InvalidResponseError{ctx.commandCode, fmt.Errorf("response contains %d trailing bytes", buf.Len())}
	}

	return nil
}

// RunCommand is the high-level generic interface for executing the command
// specified by commandCode. All of the methods on Context exported by this
// package that execute commands on the TPM are essentially wrappers around
// this function. It takes care of marshalling command handles and command
// parameters, as well as constructing and marshalling the authorization
// area and choosing the correct StructTag value. It takes care of
// unmarshalling response handles and response parameters, as well as
// unmarshalling the response authorization area.
//
// The variable length params argument provides a mechanism for the caller
// to provide command handles, command parameters, response handle pointers
// and response parameter pointers (in that order), with each group of
// arguments being separated by the Delimiter sentinel value. Command
// handles are provided as Handle values, response handles as *Handle
// values. Parameters are provided as the go equivalent types for the types
// defined in the TPM Library Specification, with response parameters passed
// as pointers.
//
// The sessions argument contains the sessions to include in the
// authorization area, normally assembled from the session slots attached to
// this Context via SetSessions.
//
// Response parameters are only unmarshalled when the TPM responds with
// Success. On any other response code the payload of the response is
// discarded untouched and an error describing the response code is
// returned.
func (c *Context) RunCommand(commandCode CommandCode, sessions []*Session, params ...interface{}) error {
	var commandHandles []interface{}
	var commandParams []interface{}
	var responseHandles []interface{}
	var responseParams []interface{}

	sentinels := 0
	for _, param := range params {
		if param == Delimiter {
			sentinels++
			continue
		}

		switch sentinels {
		case 0:
			commandHandles = append(commandHandles, param)
		case 1:
			commandParams = append(commandParams, param)
		case 2:
			responseHandles = append(responseHandles, param)
		case 3:
			responseParams = append(responseParams, param)
		}
	}

	ctx, err := c.runCommandWithoutProcessingResponse(commandCode, sessions, commandHandles, commandParams)
	if err != nil {
		return err
	}

	return c.processResponse(ctx, responseHandles, responseParams)
}
