// Copyright 2019 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/canonical/go-tpm2-esys/mu"

	"golang.org/x/xerrors"
)

const (
	cmdPowerOn        uint32 = 1
	cmdPowerOff       uint32 = 2
	cmdTPMSendCommand uint32 = 8
	cmdNVOn           uint32 = 11
	cmdReset          uint32 = 17
	cmdSessionEnd     uint32 = 20
	cmdStop           uint32 = 21
)

// PlatformCommandError corresponds to an error code in response to a
// platform command executed on a TPM simulator.
type PlatformCommandError struct {
	commandCode uint32
	Code        uint32
}

func (e *PlatformCommandError) Error() string {
	return fmt.Sprintf("received error code %d in response to platform command %d", e.Code, e.commandCode)
}

// MssimTransport represents a connection to a TPM simulator that implements
// the Microsoft TPM2 simulator interface.
type MssimTransport struct {
	Locality uint8 // Locality of commands submitted to the simulator on this interface

	tpm      net.Conn
	platform net.Conn

	buf *bytes.Reader
}

func (t *MssimTransport) readMoreData() error {
	var size uint32
	if err := binary.Read(t.tpm, binary.BigEndian, &size); err != nil {
		return xerrors.Errorf("cannot read response size from TPM command channel: %w", err)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(t.tpm, buf); err != nil {
		return xerrors.Errorf("cannot read response from TPM command channel: %w", err)
	}

	t.buf = bytes.NewReader(buf)

	var trash uint32
	if err := binary.Read(t.tpm, binary.BigEndian, &trash); err != nil {
		return xerrors.Errorf("cannot read zero bytes from TPM command channel after response: %w", err)
	}
	return nil
}

func (t *MssimTransport) Read(data []byte) (int, error) {
	if t.buf == nil || t.buf.Len() == 0 {
		if err := t.readMoreData(); err != nil {
			return 0, err
		}
	}
	return t.buf.Read(data)
}

func (t *MssimTransport) Write(data []byte) (int, error) {
	buf, err := mu.MarshalToBytes(cmdTPMSendCommand, t.Locality, uint32(len(data)), mu.RawBytes(data))
	if err != nil {
		return 0, fmt.Errorf("cannot marshal command: %v", err)
	}

	if _, err := t.tpm.Write(buf); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (t *MssimTransport) platformCommand(cmd uint32) error {
	if err := binary.Write(t.platform, binary.BigEndian, cmd); err != nil {
		return xerrors.Errorf("cannot send command: %w", err)
	}

	var resp uint32
	if err := binary.Read(t.platform, binary.BigEndian, &resp); err != nil {
		return xerrors.Errorf("cannot read response to command: %w", err)
	}
	if resp != 0 {
		return &PlatformCommandError{cmd, resp}
	}

	return nil
}

// PowerOn sends the power-on and NV-on platform commands to the simulator.
func (t *MssimTransport) PowerOn() error {
	if err := t.platformCommand(cmdPowerOn); err != nil {
		return xerrors.Errorf("cannot complete power on command: %w", err)
	}
	if err := t.platformCommand(cmdNVOn); err != nil {
		return xerrors.Errorf("cannot complete NV on command: %w", err)
	}
	return nil
}

// Reset submits a reset command on the platform channel, which simulates a
// hardware reset of the TPM.
func (t *MssimTransport) Reset() error {
	return t.platformCommand(cmdReset)
}

func (t *MssimTransport) Close() (out error) {
	for _, conn := range []net.Conn{t.tpm, t.platform} {
		if err := binary.Write(conn, binary.BigEndian, cmdSessionEnd); err != nil && out == nil {
			out = xerrors.Errorf("cannot send session end command: %w", err)
		}
		if err := conn.Close(); err != nil && out == nil {
			out = err
		}
	}
	return out
}

// OpenMssim attempts to open a connection to a TPM simulator on the
// specified host. tpmPort is the port on which the TPM command server is
// listening, and platformPort is the port on which the platform server is
// listening. If host is an empty string, it defaults to "localhost". If
// successful, it returns a new MssimTransport instance which can be passed
// to NewContext.
func OpenMssim(host string, tpmPort, platformPort uint) (*MssimTransport, error) {
	if host == "" {
		host = "localhost"
	}

	tpmAddress := fmt.Sprintf("%s:%d", host, tpmPort)
	platformAddress := fmt.Sprintf("%s:%d", host, platformPort)

	t := new(MssimTransport)

	tpm, err := net.Dial("tcp", tpmAddress)
	if err != nil {
		return nil, xerrors.Errorf("cannot connect to TPM socket: %w", err)
	}
	t.tpm = tpm

	platform, err := net.Dial("tcp", platformAddress)
	if err != nil {
		t.tpm.Close()
		return nil, xerrors.Errorf("cannot connect to platform socket: %w", err)
	}
	t.platform = platform

	return t, nil
}
