// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import (
	"errors"
	"fmt"
	"io"

	"github.com/canonical/go-tpm2-esys/mu"
)

// SessionAttributes corresponds to the TPMA_SESSION type, and represents
// the attributes of a session in the authorization area of a command.
type SessionAttributes uint8

const (
	// AttrContinueSession indicates that the session should remain loaded
	// after the command completes.
	AttrContinueSession SessionAttributes = 1 << 0

	// AttrAuditExclusive indicates that the command should only be executed
	// if the audit session is exclusive.
	AttrAuditExclusive SessionAttributes = 1 << 1

	// AttrAuditReset indicates that the audit digest of the session should
	// be reset.
	AttrAuditReset SessionAttributes = 1 << 2

	// AttrCommandEncrypt indicates that the first command parameter is
	// encrypted.
	AttrCommandEncrypt SessionAttributes = 1 << 5

	// AttrResponseEncrypt indicates that the first response parameter is
	// encrypted.
	AttrResponseEncrypt SessionAttributes = 1 << 6

	// AttrAudit indicates that the session is an audit session.
	AttrAudit SessionAttributes = 1 << 7
)

// Session associates a session handle with the attributes and authorization
// value that should accompany it in the authorization area of a command.
// Sessions are established by TPM2_StartAuthSession, which is outside the
// scope of this package - this package only references session handles, it
// never creates or flushes them.
type Session struct {
	Handle    Handle            // Session handle
	Attrs     SessionAttributes // Session attributes
	AuthValue Auth              // Authorization value included in the HMAC field
}

// PasswordSession returns a Session for the permanent password
// pseudo-session with the supplied authorization value.
func PasswordSession(authValue Auth) *Session {
	return &Session{Handle: HandlePW, Attrs: AttrContinueSession, AuthValue: authValue}
}

// IsValid indicates whether the session references a handle that can appear
// in an authorization area.
func (s *Session) IsValid() bool {
	switch s.Handle.Type() {
	case HandleTypeHMACSession, HandleTypePolicySession:
		return true
	default:
		return s.Handle == HandlePW
	}
}

type authCommand struct {
	SessionHandle Handle
	Nonce         Nonce
	SessionAttrs  SessionAttributes
	HMAC          Auth
}

type authResponse struct {
	Nonce        Nonce
	SessionAttrs SessionAttributes
	HMAC         Auth
}

// commandAuthArea is the authorization area of a command, marshalled with a
// 32-bit size field as defined in part 1 of the library spec.
type commandAuthArea []authCommand

// Marshal implements mu.CustomMarshaller.
func (a commandAuthArea) Marshal(w io.Writer) error {
	var area []byte
	for i, auth := range a {
		b, err := mu.MarshalToBytes(auth)
		if err != nil {
			return fmt.Errorf("cannot marshal auth at index %d: %v", i, err)
		}
		area = append(area, b...)
	}

	_, err := mu.MarshalToWriter(w, uint32(len(area)), mu.RawBytes(area))
	return err
}

// Unmarshal implements mu.CustomUnmarshaller.
func (a *commandAuthArea) Unmarshal(r io.Reader) error {
	return errors.New("no need to unmarshal a command's auth area")
}

func buildCommandAuthArea(sessions []*Session) (commandAuthArea, error) {
	var area commandAuthArea
	for i, session := range sessions {
		if session == nil {
			return nil, fmt.Errorf("unpopulated session at index %d", i)
		}
		if !session.IsValid() {
			return nil, fmt.Errorf("invalid session handle %v at index %d", session.Handle, i)
		}
		area = append(area, authCommand{
			SessionHandle: session.Handle,
			SessionAttrs:  session.Attrs,
			HMAC:          session.AuthValue})
	}
	return area, nil
}

func processResponseAuthArea(resps []authResponse, sessions []*Session) error {
	if len(resps) != len(sessions) {
		return fmt.Errorf("unexpected number of response auths (got %d, expected %d)", len(resps), len(sessions))
	}

	for i, resp := range resps {
		if sessions[i].Handle != HandlePW {
			continue
		}
		// Password sessions carry no nonce or HMAC in the response.
		if len(resp.Nonce) != 0 || len(resp.HMAC) != 0 {
			return fmt.Errorf("non-empty auth response for password session at index %d", i)
		}
	}

	return nil
}
