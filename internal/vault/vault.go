package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"

	"streamvault/internal/fileutil"
)

const (
	// ArtifactExt is the fixed extension of encrypted recordings.
	ArtifactExt = ".enc"
	// ManifestName is the encrypted manifest blob stored beside artifacts.
	ManifestName = "manifest" + ArtifactExt

	keySize = chacha20poly1305.KeySize
)

// Vault owns the persistent symmetric key and performs authenticated
// encryption of recordings and the manifest.
type Vault struct {
	keyPath string

	mu  sync.Mutex
	key []byte
}

// New returns a vault backed by the key file at keyPath. The key is created
// lazily on first use.
func New(keyPath string) *Vault {
	return &Vault{keyPath: keyPath}
}

// Key loads or creates the persistent symmetric key. The result is stable
// for the process lifetime.
func (v *Vault) Key() ([]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.key != nil {
		return v.key, nil
	}

	data, err := os.ReadFile(v.keyPath)
	switch {
	case err == nil:
		if len(data) != keySize {
			return nil, &IntegrityError{Op: "load key", Path: v.keyPath, Err: fmt.Errorf("unexpected key length %d", len(data))}
		}
		v.key = data
		return v.key, nil
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read key: %w", err)
	}

	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if dir := filepath.Dir(v.keyPath); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create key directory: %w", err)
		}
	}
	// A truncated key file would poison every later decrypt, so the write
	// must be all-or-nothing.
	if err := fileutil.WriteFileAtomic(v.keyPath, key, 0o600); err != nil {
		return nil, fmt.Errorf("write key: %w", err)
	}
	v.key = key
	return v.key, nil
}

// Encrypt seals plaintext with a fresh random nonce, so identical inputs
// never produce identical ciphertexts.
func (v *Vault) Encrypt(plaintext []byte) ([]byte, error) {
	key, err := v.Key()
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Decrypt opens a sealed blob. Any authentication failure, including a wrong
// key, is an *IntegrityError.
func (v *Vault) Decrypt(blob []byte) ([]byte, error) {
	key, err := v.Key()
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	if len(blob) < aead.NonceSize() {
		return nil, &IntegrityError{Op: "decrypt", Err: errors.New("ciphertext shorter than nonce")}
	}
	nonce, sealed := blob[:aead.NonceSize()], blob[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, &IntegrityError{Op: "decrypt", Err: err}
	}
	return plaintext, nil
}

// GenerateHashFilename returns an opaque artifact name: a 32-character
// lowercase-hex stem plus the fixed extension. The stem mixes the original
// name with a random salt, so repeated calls on the same input differ.
func GenerateHashFilename(originalFilename string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	sum := sha256.Sum256(append(salt, originalFilename...))
	return hex.EncodeToString(sum[:16]) + ArtifactExt, nil
}
