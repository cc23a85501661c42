// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package internal_test

import (
	"bytes"
	"crypto"
	_ "crypto/sha256"
	"testing"

	. "github.com/canonical/go-tpm2-esys/internal"
)

func TestKDFa(t *testing.T) {
	key := []byte{0x01, 0x02, 0x03, 0x04}
	contextU := []byte{0xaa}
	contextV := []byte{0xbb}

	a := KDFa(crypto.SHA256, key, []byte("STORAGE"), contextU, contextV, 256)
	if len(a) != 32 {
		t.Errorf("KDFa returned a key of unexpected length (%d)", len(a))
	}

	b := KDFa(crypto.SHA256, key, []byte("STORAGE"), contextU, contextV, 256)
	if !bytes.Equal(a, b) {
		t.Errorf("KDFa is not deterministic")
	}

	c := KDFa(crypto.SHA256, key, []byte("INTEGRITY"), contextU, contextV, 256)
	if bytes.Equal(a, c) {
		t.Errorf("KDFa ignored the label")
	}

	d := KDFa(crypto.SHA256, key, []byte("STORAGE"), contextU, contextV, 128)
	if len(d) != 16 {
		t.Errorf("KDFa returned a key of unexpected length (%d)", len(d))
	}
}
