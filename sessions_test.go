// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys_test

import (
	. "gopkg.in/check.v1"

	. "github.com/canonical/go-tpm2-esys"
)

type sessionsSuite struct{}

var _ = Suite(&sessionsSuite{})

func (s *sessionsSuite) TestPasswordSession(c *C) {
	session := PasswordSession(Auth("1234"))
	c.Check(session.Handle, Equals, HandlePW)
	c.Check(session.Attrs, Equals, AttrContinueSession)
	c.Check(session.AuthValue, DeepEquals, Auth("1234"))
	c.Check(session.IsValid(), Equals, true)
}

func (s *sessionsSuite) TestIsValid(c *C) {
	c.Check((&Session{Handle: 0x02000000}).IsValid(), Equals, true)
	c.Check((&Session{Handle: 0x03000001}).IsValid(), Equals, true)
	c.Check((&Session{Handle: HandlePW}).IsValid(), Equals, true)
	c.Check((&Session{Handle: 0x80000000}).IsValid(), Equals, false)
	c.Check((&Session{Handle: HandleOwner}).IsValid(), Equals, false)
}

func (s *sessionsSuite) TestRunCommandRejectsInvalidSessionHandle(c *C) {
	transport := newScriptedTransport(nil)
	tpm := NewContext(transport)

	err := tpm.RunCommand(CommandLoad, []*Session{{Handle: 0x80000000}}, Handle(0x80000000), Delimiter)
	c.Check(err, ErrorMatches, `cannot build command auth area for command TPM_CC_Load: invalid session handle 0x80000000 at index 0`)
	c.Check(transport.cmds, HasLen, 0)
}
