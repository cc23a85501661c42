// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys

// Transport represents a communication channel to a TPM implementation.
type Transport interface {
	// Read is used to receive a response to a previously transmitted
	// command. Implementations should support partial reads of a response.
	Read(p []byte) (int, error)

	// Write is used to transmit a serialized command to the TPM
	// implementation. Commands are submitted in a single write.
	Write(p []byte) (int, error)

	// Close closes the transport.
	Close() error
}

const (
	// maxCommandSize is the maximum size of a command or response packet
	// supported by the transports implemented in this package.
	maxCommandSize int = 4096
)
