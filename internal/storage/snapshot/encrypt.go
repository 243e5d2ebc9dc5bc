package snapshot

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Encryption errors.
var (
	ErrKeySize          = errors.New("snapshot: encryption key must be 32 bytes")
	ErrPassphraseWeak   = errors.New("snapshot: passphrase too short (minimum 8 characters)")
	ErrDecryptionFailed = errors.New("snapshot: decryption failed, wrong key or corrupted data")
)

// MinPassphraseLength is the minimum accepted passphrase length.
const MinPassphraseLength = 8

// Argon2id parameters for passphrase-derived keys.
const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
)

// keySalt is the fixed application salt for passphrase derivation. Snapshots
// never leave the node, so a per-file salt buys nothing here; the same
// passphrase must reproduce the same key across restarts.
var keySalt = []byte("bloomgate-snapshot-v1")

// Cipher provides authenticated encryption for the snapshot data block.
type Cipher interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

type chachaCipher struct {
	key []byte
}

// NewCipher builds a ChaCha20-Poly1305 cipher from a 32-byte key.
func NewCipher(key []byte) (Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, ErrKeySize
	}
	k := make([]byte, len(key))
	copy(k, key)
	return &chachaCipher{key: k}, nil
}

// KeyFromPassphrase derives a 32-byte key from a passphrase with Argon2id.
func KeyFromPassphrase(passphrase string) ([]byte, error) {
	if len(passphrase) < MinPassphraseLength {
		return nil, ErrPassphraseWeak
	}
	return argon2.IDKey([]byte(passphrase), keySalt,
		argon2Time, argon2Memory, argon2Threads, chacha20poly1305.KeySize), nil
}

// Encrypt seals plaintext with a random nonce prepended to the output.
func (c *chachaCipher) Encrypt(plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("snapshot: nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a nonce-prefixed ciphertext produced by Encrypt.
func (c *chachaCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aead.NonceSize() {
		return nil, ErrDecryptionFailed
	}
	nonce, sealed := ciphertext[:aead.NonceSize()], ciphertext[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plain, nil
}
