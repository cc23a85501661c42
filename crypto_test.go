// Copyright 2021 Canonical Ltd.
// Licensed under the LGPLv3 with static-linking exception.
// See LICENCE file for details.

package esys_test

import (
	"bytes"
	"crypto/rand"
	"testing"

	. "github.com/canonical/go-tpm2-esys"
)

func TestCryptSymmetric(t *testing.T) {
	key := make([]byte, 32)
	rand.Read(key)
	iv := make([]byte, 16)

	data := []byte("sensitive data")
	buf := append([]byte(nil), data...)

	if err := CryptSymmetricEncrypt(SymAlgorithmAES, key, iv, buf); err != nil {
		t.Fatalf("CryptSymmetricEncrypt failed: %v", err)
	}
	if bytes.Equal(buf, data) {
		t.Errorf("CryptSymmetricEncrypt didn't change the data")
	}

	if err := CryptSymmetricDecrypt(SymAlgorithmAES, key, iv, buf); err != nil {
		t.Fatalf("CryptSymmetricDecrypt failed: %v", err)
	}
	if !bytes.Equal(buf, data) {
		t.Errorf("CryptSymmetricDecrypt didn't recover the original data")
	}
}

func TestCryptSymmetricRejectsUnsupported(t *testing.T) {
	if err := CryptSymmetricEncrypt(SymAlgorithmNull, nil, nil, nil); err == nil {
		t.Errorf("CryptSymmetricEncrypt should reject the null algorithm")
	}
	if err := CryptSymmetricEncrypt(SymAlgorithmXOR, nil, nil, nil); err == nil {
		t.Errorf("CryptSymmetricEncrypt should reject XOR")
	}
}

func TestSymAlgorithmBlockSize(t *testing.T) {
	sz, err := SymAlgorithmAES.BlockSize()
	if err != nil {
		t.Fatalf("BlockSize failed: %v", err)
	}
	if sz != 16 {
		t.Errorf("Unexpected block size (%d)", sz)
	}

	if _, err := SymAlgorithmSM4.BlockSize(); err == nil {
		t.Errorf("BlockSize should fail for a cipher with no registered implementation")
	}

	if !SymAlgorithmAES.Available() {
		t.Errorf("AES should be available")
	}
	if SymAlgorithmCamellia.Available() {
		t.Errorf("Camellia should not be available")
	}
}
