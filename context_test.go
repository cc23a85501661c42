// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys_test

import (
	"bytes"
	"errors"
	"io/ioutil"

	. "gopkg.in/check.v1"

	"github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	. "github.com/canonical/go-tpm2-esys"
	"github.com/canonical/go-tpm2-esys/mu"
)

// scriptedTransport implements Transport, replaying a canned response and
// recording every command submitted to it.
type scriptedTransport struct {
	rsp    *bytes.Reader
	cmds   [][]byte
	wErr   error
	closed bool
}

func newScriptedTransport(rsp []byte) *scriptedTransport {
	return &scriptedTransport{rsp: bytes.NewReader(rsp)}
}

func (t *scriptedTransport) Read(p []byte) (int, error) {
	return t.rsp.Read(p)
}

func (t *scriptedTransport) Write(p []byte) (int, error) {
	if t.wErr != nil {
		return 0, t.wErr
	}
	t.cmds = append(t.cmds, append([]byte(nil), p...))
	return len(p), nil
}

func (t *scriptedTransport) Close() error {
	t.closed = true
	return nil
}

// responsePacket assembles a complete response packet from the supplied tag,
// response code and payload.
func responsePacket(tag StructTag, rc ResponseCode, payload []byte) []byte {
	return mu.MustMarshalToBytes(tag, uint32(10+len(payload)), rc, mu.RawBytes(payload))
}

// sessionsPayload assembles the payload of a success response with
// TPM_ST_SESSIONS: a parameterSize field, the response parameters and one
// empty auth response per session.
func sessionsPayload(rpBytes []byte, nsessions int) []byte {
	payload := mu.MustMarshalToBytes(uint32(len(rpBytes)), mu.RawBytes(rpBytes))
	for i := 0; i < nsessions; i++ {
		payload = append(payload, mu.MustMarshalToBytes(Nonce(nil), AttrContinueSession, Auth(nil))...)
	}
	return payload
}

func newQuietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(ioutil.Discard)
	return l
}

type contextSuite struct{}

var _ = Suite(&contextSuite{})

func (s *contextSuite) TestClose(c *C) {
	transport := newScriptedTransport(nil)
	tpm := NewContext(transport)
	c.Check(tpm.Close(), IsNil)
	c.Check(transport.closed, Equals, true)
}

func (s *contextSuite) TestSetSessions(c *C) {
	tpm := NewContext(newScriptedTransport(nil))

	one := &Session{Handle: 0x02000000}
	two := &Session{Handle: 0x02000001}
	three := &Session{Handle: 0x03000000}

	tpm.SetSessions(one, two, three)
	p, sec, ter := tpm.Sessions()
	c.Check(p, Equals, one)
	c.Check(sec, Equals, two)
	c.Check(ter, Equals, three)

	tpm.ClearSessions()
	p, sec, ter = tpm.Sessions()
	c.Check(p, IsNil)
	c.Check(sec, IsNil)
	c.Check(ter, IsNil)
}

func (s *contextSuite) TestRunCommandNoSessions(c *C) {
	rpBytes := mu.MustMarshalToBytes([]byte{0xaa, 0xbb})
	transport := newScriptedTransport(responsePacket(TagNoSessions, Success, rpBytes))
	tpm := NewContext(transport)

	var out []byte
	c.Check(tpm.RunCommand(CommandGetCapability, nil,
		Delimiter, uint32(6), Delimiter, Delimiter, &out), IsNil)
	c.Check(out, DeepEquals, []byte{0xaa, 0xbb})

	c.Assert(transport.cmds, HasLen, 1)
	expected := mu.MustMarshalToBytes(TagNoSessions, uint32(14), CommandGetCapability, uint32(6))
	c.Check(transport.cmds[0], DeepEquals, expected)
}

func (s *contextSuite) TestRunCommandWriteError(c *C) {
	transport := newScriptedTransport(nil)
	transport.wErr = errors.New("broken pipe")
	tpm := NewContext(transport)

	err := tpm.RunCommand(CommandGetCapability, nil, Delimiter, uint32(6))
	var te *TransportError
	c.Assert(xerrors.As(err, &te), Equals, true)
	c.Check(te.Op, Equals, "write")
}

func (s *contextSuite) TestRunCommandTruncatedHeader(c *C) {
	transport := newScriptedTransport([]byte{0x80, 0x01, 0x00})
	tpm := NewContext(transport)

	err := tpm.RunCommand(CommandGetCapability, nil, Delimiter, uint32(6))
	var re *InvalidResponseError
	c.Assert(xerrors.As(err, &re), Equals, true)
	c.Check(re.Command, Equals, CommandGetCapability)
}

func (s *contextSuite) TestRunCommandInvalidResponseSize(c *C) {
	transport := newScriptedTransport(mu.MustMarshalToBytes(TagNoSessions, uint32(4), Success))
	tpm := NewContext(transport)

	err := tpm.RunCommand(CommandGetCapability, nil, Delimiter, uint32(6))
	var re *InvalidResponseError
	c.Check(xerrors.As(err, &re), Equals, true)
}

func (s *contextSuite) TestRunCommandTrailingBytes(c *C) {
	payload := mu.MustMarshalToBytes([]byte{0xaa}, uint8(0x00))
	transport := newScriptedTransport(responsePacket(TagNoSessions, Success, payload))
	tpm := NewContext(transport)

	var out []byte
	err := tpm.RunCommand(CommandGetCapability, nil, Delimiter, uint32(6), Delimiter, Delimiter, &out)
	var re *InvalidResponseError
	c.Check(xerrors.As(err, &re), Equals, true)
}

func (s *contextSuite) TestRunCommandErrorResponse(c *C) {
	// An error response carries no payload - the decoded error is returned
	// and the output parameters are left untouched.
	transport := newScriptedTransport(responsePacket(TagNoSessions, ResponseCode(0x00000084), nil))
	tpm := NewContext(transport)
	tpm.SetLogger(newQuietLogger())

	var out []byte
	err := tpm.RunCommand(CommandGetCapability, nil, Delimiter, uint32(6), Delimiter, Delimiter, &out)
	c.Check(IsTPMError(err, ErrorValue, CommandGetCapability), Equals, true)
	c.Check(out, IsNil)
}

func (s *contextSuite) TestRunCommandWithSessions(c *C) {
	session := &Session{Handle: 0x03000000, Attrs: AttrContinueSession}

	rpBytes := mu.MustMarshalToBytes([]byte{0x0f})
	transport := newScriptedTransport(responsePacket(TagSessions, Success, sessionsPayload(rpBytes, 1)))
	tpm := NewContext(transport)

	var out []byte
	c.Check(tpm.RunCommand(CommandLoad, []*Session{session},
		Handle(0x80000000), Delimiter, []byte{0x01}, Delimiter, Delimiter, &out), IsNil)
	c.Check(out, DeepEquals, []byte{0x0f})

	auth := mu.MustMarshalToBytes(session.Handle, Nonce(nil), session.Attrs, Auth(nil))
	body := mu.MustMarshalToBytes(Handle(0x80000000), uint32(len(auth)), mu.RawBytes(auth), []byte{0x01})
	expected := mu.MustMarshalToBytes(TagSessions, uint32(10+len(body)), CommandLoad, mu.RawBytes(body))

	c.Assert(transport.cmds, HasLen, 1)
	c.Check(transport.cmds[0], DeepEquals, expected)
}

func (s *contextSuite) TestRunCommandResponseAuthCountMismatch(c *C) {
	session := &Session{Handle: 0x03000000, Attrs: AttrContinueSession}

	// Auth area for two sessions when only one was submitted.
	transport := newScriptedTransport(responsePacket(TagSessions, Success, sessionsPayload(nil, 2)))
	tpm := NewContext(transport)

	err := tpm.RunCommand(CommandLoad, []*Session{session}, Handle(0x80000000), Delimiter, []byte{0x01})
	var re *InvalidResponseError
	c.Check(xerrors.As(err, &re), Equals, true)
}
