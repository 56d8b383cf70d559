package security

import (
	"errors"
	"fmt"
	"log"

	"github.com/zalando/go-keyring"
)

const keyringService = "scottbot"

// ErrSecretNotFound means neither the keyring nor the vault holds the name.
var ErrSecretNotFound = errors.New("secret not found")

// KeyStore resolves API keys that are not in the environment.
// Primary: OS keyring. Fallback: encrypted vault file.
type KeyStore struct {
	useKeyring bool
	vault      *Vault
}

// NewKeyStore creates a key store over dir. An empty masterPassword leaves
// the vault locked so only the keyring is consulted.
func NewKeyStore(dir, masterPassword string, useKeyring bool) (*KeyStore, error) {
	vault, err := OpenVault(dir, masterPassword)
	if err != nil {
		return nil, err
	}
	return &KeyStore{useKeyring: useKeyring, vault: vault}, nil
}

// Set stores a secret, trying the keyring first.
func (ks *KeyStore) Set(name, value string) error {
	if ks.useKeyring {
		err := keyring.Set(keyringService, name, value)
		if err == nil {
			return nil
		}
		log.Printf("[security] keyring unavailable, using vault: %v", err)
	}
	if err := ks.vault.Set(name, value); err != nil {
		return fmt.Errorf("store %s: %w", name, err)
	}
	return nil
}

// Get retrieves a secret.
func (ks *KeyStore) Get(name string) (string, error) {
	if ks.useKeyring {
		if val, err := keyring.Get(keyringService, name); err == nil {
			return val, nil
		}
	}
	if ks.vault.Locked() {
		return "", fmt.Errorf("%s: %w", name, ErrSecretNotFound)
	}
	val, ok, err := ks.vault.Get(name)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%s: %w", name, ErrSecretNotFound)
	}
	return val, nil
}

// Delete removes a secret from both backends.
func (ks *KeyStore) Delete(name string) error {
	if ks.useKeyring {
		_ = keyring.Delete(keyringService, name)
	}
	if ks.vault.Locked() {
		return nil
	}
	return ks.vault.Delete(name)
}

// Fill sets *dst from the store when it is empty. It reports whether a value
// was found.
func (ks *KeyStore) Fill(dst *string, name string) bool {
	if *dst != "" || name == "" {
		return false
	}
	val, err := ks.Get(name)
	if err != nil {
		if !errors.Is(err, ErrSecretNotFound) {
			log.Printf("[security] lookup %s: %v", name, err)
		}
		return false
	}
	*dst = val
	return true
}

// MaskKey returns a masked version of an API key for display.
func MaskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "..." + key[len(key)-4:]
}
