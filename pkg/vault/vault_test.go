package vault_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/voicepay/voicegate/pkg/vault"
)

func TestSealOpenRoundTrip(t *testing.T) {
	for _, plaintext := range [][]byte{
		nil,
		{},
		[]byte("x"),
		[]byte("some recorded audio bytes"),
		bytes.Repeat([]byte{0xAB}, 1<<16),
	} {
		ct, key, err := vault.Seal(plaintext)
		if err != nil {
			t.Fatalf("Seal: %v", err)
		}
		if len(key) != vault.KeySize {
			t.Fatalf("key size = %d, want %d", len(key), vault.KeySize)
		}
		got, err := vault.Open(ct, key)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if !bytes.Equal(got, plaintext) {
			t.Fatalf("round trip mismatch: %d bytes in, %d out", len(plaintext), len(got))
		}
	}
}

func TestKeysNeverReused(t *testing.T) {
	plaintext := []byte("same input")
	_, k1, err := vault.Seal(plaintext)
	if err != nil {
		t.Fatal(err)
	}
	_, k2, err := vault.Seal(plaintext)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(k1, k2) {
		t.Fatal("two Seal calls produced the same key")
	}
}

func TestOpenWrongKey(t *testing.T) {
	ct, _, err := vault.Seal([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	wrong := make([]byte, vault.KeySize)
	if _, err := vault.Open(ct, wrong); !errors.Is(err, vault.ErrDecryptFailed) {
		t.Fatalf("Open with wrong key = %v, want ErrDecryptFailed", err)
	}
}

func TestOpenTampered(t *testing.T) {
	ct, key, err := vault.Seal([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	ct[len(ct)-1] ^= 0x01
	if _, err := vault.Open(ct, key); !errors.Is(err, vault.ErrDecryptFailed) {
		t.Fatalf("Open tampered = %v, want ErrDecryptFailed", err)
	}
}

func TestOpenMalformed(t *testing.T) {
	if _, err := vault.Open([]byte("short"), make([]byte, vault.KeySize)); !errors.Is(err, vault.ErrDecryptFailed) {
		t.Fatalf("Open short ciphertext = %v, want ErrDecryptFailed", err)
	}
	if _, err := vault.Open(nil, []byte("bad key")); !errors.Is(err, vault.ErrDecryptFailed) {
		t.Fatalf("Open bad key = %v, want ErrDecryptFailed", err)
	}
}
