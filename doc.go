/*
Package esys implements an API for executing authorized commands on TPM 2.0 devices,
built around the object duplication protocol.

This documentation refers to TPM commands and types that are described in more detail
in the TPM 2.0 Library Specification, which can be found at
https://trustedcomputinggroup.org/resource/tpm-library-specification/. Knowledge of
this specification is assumed in this documentation.

Communication with Linux TPM character devices and TPM simulators implementing the
Microsoft TPM2 simulator interface is supported. The core type by which consumers of
this package communicate with a TPM is Context.

In order to create a new Context that can be used to communicate with a Linux TPM
character device:

	transport, err := esys.OpenDevice("/dev/tpm0")
	if err != nil {
		return err
	}
	tpm := esys.NewContext(transport)

Commands that require authorization use the sessions attached to the Context via
Context.SetSessions. The session in the primary slot authorizes the first handle of a
command. For example, in order to duplicate an object using an established policy
session:

	tpm.SetSessions(&esys.Session{Handle: policySession}, nil, nil)
	encryptionKeyOut, duplicate, outSymSeed, err := tpm.Duplicate(object, newParent, nil, nil)
*/
package esys
