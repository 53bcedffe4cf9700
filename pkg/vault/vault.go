// Package vault encrypts audio artifacts at rest. Every Seal call
// generates a fresh single-use symmetric key from a cryptographically
// secure source; keys are never derived from user input and never reused
// across artifacts. Encryption is XChaCha20-Poly1305 with the random
// nonce prepended to the ciphertext, so a sealed blob is self-contained
// given its key.
package vault

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize is the size in bytes of artifact keys.
const KeySize = chacha20poly1305.KeySize

// ErrDecryptFailed is returned by Open when the ciphertext is malformed,
// tampered with, or the key is wrong. Open never returns garbage bytes.
var ErrDecryptFailed = errors.New("vault: decryption failed")

// Seal encrypts plaintext under a freshly generated key and returns both
// the ciphertext (nonce-prefixed) and the key. The key must be persisted
// through a channel with stricter access control than the ciphertext.
func Seal(plaintext []byte) (ciphertext, key []byte, err error) {
	key = make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, nil, fmt.Errorf("vault: generate key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, nil, fmt.Errorf("vault: init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("vault: generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), key, nil
}

// Open decrypts a blob produced by Seal with the matching key.
func Open(ciphertext, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes", ErrDecryptFailed, KeySize)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("vault: init cipher: %w", err)
	}
	ns := aead.NonceSize()
	if len(ciphertext) < ns {
		return nil, fmt.Errorf("%w: ciphertext too short", ErrDecryptFailed)
	}
	plaintext, err := aead.Open(nil, ciphertext[:ns], ciphertext[ns:], nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}
	return plaintext, nil
}
