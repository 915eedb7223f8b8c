// Package credstore seals the shared wake credential at rest, bound
// to a local machine context so the sealed blob is unusable elsewhere.
package credstore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fgeck/wolproxy/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultKDFIterations is the PBKDF2 work factor for new seals.
	DefaultKDFIterations = 100_000

	// MinKDFIterations is the floor accepted when unsealing; blobs
	// recorded with a weaker factor are rejected as corrupt.
	MinKDFIterations = 100_000

	saltSize = 16
	keySize  = 32
)

// ErrDecryption indicates a context mismatch or corrupted ciphertext.
// The cause is deliberately not distinguished.
var ErrDecryption = errors.New("credential decryption failed")

// Store seals and unseals credentials with a context-derived key.
type Store struct {
	iterations int
	randRead   func(b []byte) (int, error)
	logger     zerolog.Logger
}

// New creates a store using the default work factor.
func New(logger zerolog.Logger) *Store {
	return &Store{
		iterations: DefaultKDFIterations,
		randRead:   rand.Read,
		logger:     logger,
	}
}

// Seal encrypts plaintext bound to context. Each call draws a fresh
// salt and nonce, so sealing the same plaintext twice never produces
// the same ciphertext. The plaintext slice is not modified; the
// caller wipes it.
func (s *Store) Seal(plaintext []byte, context string) (*models.EncryptedCredential, error) {
	salt := make([]byte, saltSize)
	if _, err := s.randRead(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}

	key := deriveKey(context, salt, s.iterations)
	defer Wipe(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, aead.NonceSize())
	if _, err := s.randRead(iv); err != nil {
		return nil, fmt.Errorf("generating iv: %w", err)
	}

	enc := &models.EncryptedCredential{
		Salt:          salt,
		IV:            iv,
		Ciphertext:    aead.Seal(nil, iv, plaintext, nil),
		KDFIterations: s.iterations,
	}

	s.logger.Debug().Int("kdf_iterations", s.iterations).Msg("credential sealed")

	return enc, nil
}

// Unseal decrypts a sealed credential with the given context. The
// returned plaintext must be wiped by the caller immediately after
// use. Fails with ErrDecryption on context mismatch or any tampering.
func (s *Store) Unseal(enc *models.EncryptedCredential, context string) ([]byte, error) {
	if enc == nil {
		return nil, ErrDecryption
	}
	if enc.KDFIterations < MinKDFIterations {
		return nil, ErrDecryption
	}

	key := deriveKey(context, enc.Salt, enc.KDFIterations)
	defer Wipe(key)

	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(enc.IV) != aead.NonceSize() {
		return nil, ErrDecryption
	}

	plaintext, err := aead.Open(nil, enc.IV, enc.Ciphertext, nil)
	if err != nil {
		return nil, ErrDecryption
	}

	return plaintext, nil
}

func deriveKey(context string, salt []byte, iterations int) []byte {
	return pbkdf2.Key([]byte(context), salt, iterations, keySize, sha256.New)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating aead: %w", err)
	}
	return aead, nil
}

// Wipe overwrites b so plaintext key material does not linger in
// memory after use.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// MachineContext builds the stable, non-secret context value binding
// a sealed credential to this machine: hostname plus machine id where
// available. Not portable across environments, which is the point.
func MachineContext() (string, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return "", fmt.Errorf("reading hostname: %w", err)
	}

	parts := []string{"wolproxy", hostname}
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		if raw, err := os.ReadFile(path); err == nil {
			if id := strings.TrimSpace(string(raw)); id != "" {
				parts = append(parts, id)
				break
			}
		}
	}

	return strings.Join(parts, ":"), nil
}

// SaveFile writes the sealed credential to path with owner-only
// permissions in the on-disk JSON format.
func SaveFile(path string, enc *models.EncryptedCredential) error {
	data, err := json.MarshalIndent(enc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credential: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing credential file: %w", err)
	}
	return nil
}

// LoadFile reads a sealed credential from path.
func LoadFile(path string) (*models.EncryptedCredential, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening credential file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return decode(f)
}

func decode(r io.Reader) (*models.EncryptedCredential, error) {
	enc := &models.EncryptedCredential{}
	if err := json.NewDecoder(r).Decode(enc); err != nil {
		return nil, fmt.Errorf("decoding credential file: %w", err)
	}
	return enc, nil
}
