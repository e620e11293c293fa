package blobcrypto

import (
	"bytes"
	"crypto/rand"
	"errors"
	"testing"
)

func master(t *testing.T) []byte {
	t.Helper()
	k := make([]byte, KeyLen)
	if _, err := rand.Read(k); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return k
}

func TestDeriveKey_DeterministicAndKeyDependent(t *testing.T) {
	t.Parallel()
	m := master(t)
	k1, err := DeriveKey(m, "documents/a.pdf")
	if err != nil {
		t.Fatalf("DeriveKey: %v", err)
	}
	k2, _ := DeriveKey(m, "documents/a.pdf")
	if !bytes.Equal(k1, k2) {
		t.Fatalf("DeriveKey not deterministic")
	}
	k3, _ := DeriveKey(m, "documents/b.pdf")
	if bytes.Equal(k1, k3) {
		t.Fatalf("DeriveKey must change with object key")
	}
	if len(k1) != KeyLen {
		t.Fatalf("len=%d, want=%d", len(k1), KeyLen)
	}
}

func TestSealOpen_RoundTripAndAAD(t *testing.T) {
	t.Parallel()
	key, _ := DeriveKey(master(t), "k")
	pt := []byte("%PDF-1.4 body")

	ct, err := Seal(key, []byte("k"), pt)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(ct, pt) {
		t.Fatalf("ciphertext leaks plaintext")
	}
	got, err := Open(key, []byte("k"), ct)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !bytes.Equal(got, pt) {
		t.Fatalf("round trip mismatch")
	}
	if _, err := Open(key, []byte("other"), ct); err == nil {
		t.Fatalf("Open must fail with wrong AAD")
	}
	ct[len(ct)-1] ^= 0xFF
	if _, err := Open(key, []byte("k"), ct); err == nil {
		t.Fatalf("Open must fail on tampered blob")
	}
}

func TestOpen_Short(t *testing.T) {
	t.Parallel()
	key, _ := DeriveKey(master(t), "k")
	if _, err := Open(key, nil, []byte{1, 2, 3}); !errors.Is(err, ErrShortBlob) {
		t.Fatalf("want ErrShortBlob, got %v", err)
	}
}
