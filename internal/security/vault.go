package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 3
	argonMemory  = 64 * 1024 // 64MB
	argonThreads = 4
	argonKeyLen  = 32 // AES-256
	saltLen      = 16

	vaultFile = "vault.enc"
	saltFile  = "vault.salt"
)

// ErrNoMasterPassword means the vault was opened without a password.
var ErrNoMasterPassword = errors.New("vault locked: no master password")

// Vault is an AES-256-GCM encrypted JSON map of secrets on disk. The key is
// derived from a master password with Argon2id and a per-vault salt.
type Vault struct {
	mu   sync.Mutex
	path string
	key  []byte
}

// OpenVault prepares the vault in dir. The salt is created on first use. An
// empty password yields a locked vault that can only report ErrNoMasterPassword.
func OpenVault(dir, password string) (*Vault, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	v := &Vault{path: filepath.Join(dir, vaultFile)}
	if password == "" {
		return v, nil
	}

	salt, err := loadOrCreateSalt(filepath.Join(dir, saltFile))
	if err != nil {
		return nil, fmt.Errorf("vault salt: %w", err)
	}
	v.key = deriveKey(password, salt)
	return v, nil
}

// Locked reports whether the vault has no key.
func (v *Vault) Locked() bool { return v.key == nil }

func (v *Vault) Get(name string) (string, bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	secrets, err := v.load()
	if err != nil {
		return "", false, err
	}
	val, ok := secrets[name]
	return val, ok, nil
}

func (v *Vault) Set(name, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	secrets, err := v.load()
	if err != nil {
		return err
	}
	secrets[name] = value
	return v.save(secrets)
}

func (v *Vault) Delete(name string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	secrets, err := v.load()
	if err != nil {
		return err
	}
	if _, ok := secrets[name]; !ok {
		return nil
	}
	delete(secrets, name)
	return v.save(secrets)
}

func (v *Vault) load() (map[string]string, error) {
	if v.key == nil {
		return nil, ErrNoMasterPassword
	}
	data, err := os.ReadFile(v.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}

	plaintext, err := open(string(data), v.key)
	if err != nil {
		return nil, fmt.Errorf("decrypt vault: %w", err)
	}
	var secrets map[string]string
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("parse vault: %w", err)
	}
	if secrets == nil {
		secrets = make(map[string]string)
	}
	return secrets, nil
}

func (v *Vault) save(secrets map[string]string) error {
	data, err := json.Marshal(secrets)
	if err != nil {
		return err
	}
	sealed, err := seal(data, v.key)
	if err != nil {
		return err
	}
	return os.WriteFile(v.path, []byte(sealed), 0600)
}

func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil && len(salt) == saltLen {
		return salt, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	salt = make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, salt, 0600); err != nil {
		return nil, err
	}
	return salt, nil
}

func deriveKey(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// seal encrypts with AES-256-GCM and returns base64 with the nonce prepended.
func seal(plaintext, key []byte) (string, error) {
	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(gcm.Seal(nonce, nonce, plaintext, nil)), nil
}

func open(encoded string, key []byte) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(data) < gcm.NonceSize() {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}
