// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys_test

import (
	. "gopkg.in/check.v1"

	"golang.org/x/xerrors"

	. "github.com/canonical/go-tpm2-esys"
	"github.com/canonical/go-tpm2-esys/mu"
)

type duplicationSuite struct {
	object    Handle
	newParent Handle
	session   *Session
}

var _ = Suite(&duplicationSuite{
	object:    Handle(0x80000001),
	newParent: Handle(0x80000002),
	session:   &Session{Handle: 0x03000000, Attrs: AttrContinueSession}})

func (s *duplicationSuite) duplicateResponse(key, duplicate, seed []byte) []byte {
	return s.duplicateResponseN(key, duplicate, seed, 1)
}

func (s *duplicationSuite) duplicateResponseN(key, duplicate, seed []byte, nsessions int) []byte {
	rpBytes := mu.MustMarshalToBytes(key, duplicate, seed)
	return responsePacket(TagSessions, Success, sessionsPayload(rpBytes, nsessions))
}

func (s *duplicationSuite) TestDuplicateNoInnerWrapper(c *C) {
	duplicateIn := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	seedIn := make([]byte, 256)
	seedIn[0] = 0xa5

	transport := newScriptedTransport(s.duplicateResponse(nil, duplicateIn, seedIn))
	tpm := NewContext(transport)
	tpm.SetSessions(s.session, nil, nil)

	key, duplicate, seed, err := tpm.Duplicate(s.object, s.newParent, nil, nil)
	c.Check(err, IsNil)
	c.Check(key, NotNil)
	c.Check(key, HasLen, 0)
	c.Check([]byte(duplicate), DeepEquals, duplicateIn)
	c.Check([]byte(seed), DeepEquals, seedIn)

	auth := mu.MustMarshalToBytes(s.session.Handle, Nonce(nil), s.session.Attrs, Auth(nil))
	cpBytes := mu.MustMarshalToBytes(Data(nil), &SymDefObject{Algorithm: SymObjectAlgorithmNull})
	body := mu.MustMarshalToBytes(s.object, s.newParent, uint32(len(auth)), mu.RawBytes(auth), mu.RawBytes(cpBytes))
	expected := mu.MustMarshalToBytes(TagSessions, uint32(10+len(body)), CommandDuplicate, mu.RawBytes(body))

	c.Assert(transport.cmds, HasLen, 1)
	c.Check(transport.cmds[0], DeepEquals, expected)
}

func (s *duplicationSuite) TestDuplicateWithInnerWrapper(c *C) {
	keyIn := make([]byte, 16)
	keyIn[15] = 0x5a
	duplicateIn := []byte{0x0f, 0x0e, 0x0d}

	transport := newScriptedTransport(s.duplicateResponse(keyIn, duplicateIn, nil))
	tpm := NewContext(transport)
	tpm.SetSessions(s.session, nil, nil)

	symmetricAlg := &SymDefObject{Algorithm: SymObjectAlgorithmAES, KeyBits: 128, Mode: SymModeCFB}

	key, duplicate, seed, err := tpm.Duplicate(s.object, HandleNull, nil, symmetricAlg)
	c.Check(err, IsNil)
	c.Check([]byte(key), DeepEquals, keyIn)
	c.Check([]byte(duplicate), DeepEquals, duplicateIn)
	c.Check(seed, HasLen, 0)

	auth := mu.MustMarshalToBytes(s.session.Handle, Nonce(nil), s.session.Attrs, Auth(nil))
	cpBytes := mu.MustMarshalToBytes(Data(nil), symmetricAlg)
	body := mu.MustMarshalToBytes(s.object, HandleNull, uint32(len(auth)), mu.RawBytes(auth), mu.RawBytes(cpBytes))
	expected := mu.MustMarshalToBytes(TagSessions, uint32(10+len(body)), CommandDuplicate, mu.RawBytes(body))

	c.Assert(transport.cmds, HasLen, 1)
	c.Check(transport.cmds[0], DeepEquals, expected)
}

func (s *duplicationSuite) TestDuplicateMissingSession(c *C) {
	transport := newScriptedTransport(nil)
	tpm := NewContext(transport)

	key, duplicate, seed, err := tpm.Duplicate(s.object, s.newParent, nil, nil)
	c.Check(key, IsNil)
	c.Check(duplicate, IsNil)
	c.Check(seed, IsNil)

	var mse *MissingSessionError
	c.Assert(xerrors.As(err, &mse), Equals, true)
	c.Check(mse.Index, Equals, 1)

	// Nothing was submitted to the TPM.
	c.Check(transport.cmds, HasLen, 0)
}

func (s *duplicationSuite) TestDuplicateEncryptionKeyInTooLarge(c *C) {
	transport := newScriptedTransport(nil)
	tpm := NewContext(transport)
	tpm.SetSessions(s.session, nil, nil)

	_, _, _, err := tpm.Duplicate(s.object, s.newParent, make(Data, MaxDataSize+1), nil)
	var be *BufferTooLargeError
	c.Assert(xerrors.As(err, &be), Equals, true)
	c.Check(be.Type, Equals, "TPM2B_DATA")

	c.Check(transport.cmds, HasLen, 0)
}

func (s *duplicationSuite) TestDuplicateError(c *C) {
	// TPM_RC_ATTRIBUTES for the first handle - the object is not a
	// duplication root.
	transport := newScriptedTransport(responsePacket(TagNoSessions, ResponseCode(0x00000182), nil))
	tpm := NewContext(transport)
	tpm.SetLogger(newQuietLogger())
	tpm.SetSessions(s.session, nil, nil)

	key, duplicate, seed, err := tpm.Duplicate(s.object, s.newParent, nil, nil)
	c.Check(key, IsNil)
	c.Check(duplicate, IsNil)
	c.Check(seed, IsNil)
	c.Check(IsTPMHandleError(err, ErrorAttributes, CommandDuplicate, 1), Equals, true)
}

func (s *duplicationSuite) TestDuplicateOversizedPrivate(c *C) {
	transport := newScriptedTransport(s.duplicateResponse(nil, make([]byte, MaxPrivateSize+1), nil))
	tpm := NewContext(transport)
	tpm.SetSessions(s.session, nil, nil)

	key, duplicate, seed, err := tpm.Duplicate(s.object, s.newParent, nil, nil)
	c.Check(key, IsNil)
	c.Check(duplicate, IsNil)
	c.Check(seed, IsNil)

	var re *InvalidResponseError
	c.Assert(xerrors.As(err, &re), Equals, true)
	c.Check(re.Command, Equals, CommandDuplicate)

	var be *BufferTooLargeError
	c.Assert(xerrors.As(err, &be), Equals, true)
	c.Check(be.Type, Equals, "TPM2B_PRIVATE")
	c.Check(be.Length, Equals, MaxPrivateSize+1)
	c.Check(be.Max, Equals, MaxPrivateSize)
}

func (s *duplicationSuite) TestDuplicateSecondarySessionIncluded(c *C) {
	audit := &Session{Handle: 0x02000000, Attrs: AttrContinueSession | AttrAudit}

	// The response carries one auth response per submitted session.
	transport := newScriptedTransport(s.duplicateResponseN(nil, []byte{0x01}, nil, 2))
	tpm := NewContext(transport)
	tpm.SetSessions(s.session, audit, nil)

	_, _, _, err := tpm.Duplicate(s.object, s.newParent, nil, nil)
	c.Check(err, IsNil)

	auth := mu.MustMarshalToBytes(
		s.session.Handle, Nonce(nil), s.session.Attrs, Auth(nil),
		audit.Handle, Nonce(nil), audit.Attrs, Auth(nil))
	cpBytes := mu.MustMarshalToBytes(Data(nil), &SymDefObject{Algorithm: SymObjectAlgorithmNull})
	body := mu.MustMarshalToBytes(s.object, s.newParent, uint32(len(auth)), mu.RawBytes(auth), mu.RawBytes(cpBytes))
	expected := mu.MustMarshalToBytes(TagSessions, uint32(10+len(body)), CommandDuplicate, mu.RawBytes(body))

	c.Assert(transport.cmds, HasLen, 1)
	c.Check(transport.cmds[0], DeepEquals, expected)
}
