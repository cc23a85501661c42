// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys_test

import (
	"bytes"
	"testing"

	. "gopkg.in/check.v1"

	. "github.com/canonical/go-tpm2-esys"
	"github.com/canonical/go-tpm2-esys/mu"
)

type typesSuite struct{}

var _ = Suite(&typesSuite{})

func (s *typesSuite) TestNewDataCopies(c *C) {
	in := []byte{0x01, 0x02, 0x03}
	d, err := NewData(in)
	c.Check(err, IsNil)
	c.Check([]byte(d), DeepEquals, in)

	in[0] = 0xff
	c.Check(d[0], Equals, byte(0x01))
}

func (s *typesSuite) TestNewDataTooLarge(c *C) {
	d, err := NewData(make([]byte, MaxDataSize+1))
	c.Check(d, IsNil)
	c.Assert(err, FitsTypeOf, &BufferTooLargeError{})
	e := err.(*BufferTooLargeError)
	c.Check(e.Type, Equals, "TPM2B_DATA")
	c.Check(e.Length, Equals, MaxDataSize+1)
	c.Check(e.Max, Equals, MaxDataSize)
}

func (s *typesSuite) TestNewDataMax(c *C) {
	d, err := NewData(make([]byte, MaxDataSize))
	c.Check(err, IsNil)
	c.Check(d, HasLen, MaxDataSize)
}

func (s *typesSuite) TestNewDataEmpty(c *C) {
	d, err := NewData(nil)
	c.Check(err, IsNil)
	c.Check(d, NotNil)
	c.Check(d, HasLen, 0)
}

func (s *typesSuite) TestNewPrivateTooLarge(c *C) {
	p, err := NewPrivate(make([]byte, MaxPrivateSize+1))
	c.Check(p, IsNil)
	c.Assert(err, FitsTypeOf, &BufferTooLargeError{})
	c.Check(err.(*BufferTooLargeError).Type, Equals, "TPM2B_PRIVATE")
}

func (s *typesSuite) TestNewEncryptedSecretTooLarge(c *C) {
	es, err := NewEncryptedSecret(make([]byte, MaxEncryptedSecretSize+1))
	c.Check(es, IsNil)
	c.Assert(err, FitsTypeOf, &BufferTooLargeError{})
	c.Check(err.(*BufferTooLargeError).Type, Equals, "TPM2B_ENCRYPTED_SECRET")
}

func (s *typesSuite) TestNameAlgorithm(c *C) {
	name := Name{0x00, 0x0b, 0x01, 0x02}
	c.Check(name.Algorithm(), Equals, HashAlgorithmSHA256)
	c.Check(name.Digest(), DeepEquals, Digest{0x01, 0x02})

	c.Check(Name(nil).Algorithm(), Equals, HashAlgorithmNull)
	c.Check(Name{0x81, 0x00, 0x00, 0x01}.Algorithm(), Equals, HashAlgorithmNull)
}

func TestSymDefObject(t *testing.T) {
	for _, data := range []struct {
		desc string
		in   SymDefObject
		out  []byte
	}{
		{
			desc: "AES128CFB",
			in:   SymDefObject{Algorithm: SymObjectAlgorithmAES, KeyBits: 128, Mode: SymModeCFB},
			out:  []byte{0x00, 0x06, 0x00, 0x80, 0x00, 0x43},
		},
		{
			desc: "AES256CFB",
			in:   SymDefObject{Algorithm: SymObjectAlgorithmAES, KeyBits: 256, Mode: SymModeCFB},
			out:  []byte{0x00, 0x06, 0x01, 0x00, 0x00, 0x43},
		},
		{
			desc: "Null",
			in:   SymDefObject{Algorithm: SymObjectAlgorithmNull},
			out:  []byte{0x00, 0x10},
		},
	} {
		t.Run(data.desc, func(t *testing.T) {
			out, err := mu.MarshalToBytes(data.in)
			if err != nil {
				t.Fatalf("MarshalToBytes failed: %v", err)
			}

			if !bytes.Equal(out, data.out) {
				t.Errorf("MarshalToBytes returned an unexpected sequence of bytes: %x", out)
			}

			var a SymDefObject
			n, err := mu.UnmarshalFromBytes(out, &a)
			if err != nil {
				t.Fatalf("UnmarshalFromBytes failed: %v", err)
			}
			if n != len(out) {
				t.Errorf("UnmarshalFromBytes consumed the wrong number of bytes (%d)", n)
			}
			if a != data.in {
				t.Errorf("UnmarshalFromBytes didn't return the original data")
			}
		})
	}
}

func TestSymDefObjectUnmarshalInvalidSelector(t *testing.T) {
	var a SymDefObject
	if _, err := mu.UnmarshalFromBytes([]byte{0x00, 0x0b, 0x00, 0x80, 0x00, 0x43}, &a); err == nil {
		t.Fatalf("UnmarshalFromBytes should have failed")
	}
}
