// Package vault seals tenant vendor credentials with authenticated symmetric
// encryption. The sealing key is derived once from the process root secret
// with argon2id; each blob is encrypted under a fresh random nonce with
// XChaCha20-Poly1305 and stored as nonce || ciphertext+tag. Decryption fails
// closed: a blob that does not authenticate yields no plaintext at all.
package vault

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/catsync/backend/internal/domain/vendor"
)

var (
	ErrMissingRootSecret = errors.New("vault: root secret must not be empty")
	ErrEmptyFieldSet     = errors.New("vault: credential field set must not be empty")
)

// keySalt is the fixed derivation salt. The root secret is the only secret
// input; the salt exists to domain-separate this derivation from any other
// use of the same secret.
var keySalt = []byte("catsync.credential-vault.v1")

// argon2id parameters, per the library's recommended interactive settings.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// Sealer encrypts and decrypts credential blobs for storage at rest.
// It is safe for concurrent use.
type Sealer struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
		NonceSize() int
		Overhead() int
	}
}

// NewSealer derives the sealing key from the root secret and prepares the
// AEAD. Derivation happens once per process, not per blob.
func NewSealer(rootSecret string) (*Sealer, error) {
	if rootSecret == "" {
		return nil, ErrMissingRootSecret
	}

	key := argon2.IDKey([]byte(rootSecret), keySalt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to initialize cipher: %w", err)
	}
	return &Sealer{aead: aead}, nil
}

// Seal encrypts a plaintext credential field set into one opaque blob.
func (s *Sealer) Seal(fields vendor.Credentials) ([]byte, error) {
	if len(fields) == 0 {
		return nil, ErrEmptyFieldSet
	}

	plaintext, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("vault: failed to encode fields: %w", err)
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("vault: failed to generate nonce: %w", err)
	}

	blob := make([]byte, 0, len(nonce)+len(plaintext)+s.aead.Overhead())
	blob = append(blob, nonce...)
	blob = s.aead.Seal(blob, nonce, plaintext, nil)
	return blob, nil
}

// Open decrypts a stored blob back into the plaintext field set. Any tamper,
// truncation or key mismatch surfaces as vendor.ErrDecryptionFailed; partial
// plaintext is never returned.
func (s *Sealer) Open(blob []byte) (vendor.Credentials, error) {
	nonceSize := s.aead.NonceSize()
	if len(blob) < nonceSize+s.aead.Overhead() {
		return nil, vendor.ErrDecryptionFailed
	}

	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, vendor.ErrDecryptionFailed
	}

	var fields vendor.Credentials
	if err := json.Unmarshal(plaintext, &fields); err != nil {
		return nil, vendor.ErrDecryptionFailed
	}
	return fields, nil
}
