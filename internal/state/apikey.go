package state

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

// Keychain identifiers for the stored API key.
const (
	keyringService = "cliprelay"
	keyringUser    = "api_key"
)

// ErrNoAPIKey is returned when no API key is configured anywhere.
var ErrNoAPIKey = errors.New("no API key configured: set one with 'cliprelay config set-key' or export CLIPRELAY_API_KEY")

// APIKey resolves the model API key. Environment variables take precedence
// over the OS keychain so CI and one-off overrides keep working.
func APIKey() (string, error) {
	for _, env := range []string{"CLIPRELAY_API_KEY", "OPENAI_API_KEY"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v, nil
		}
	}

	key, err := keyring.Get(keyringService, keyringUser)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNoAPIKey
	}
	if err != nil {
		return "", fmt.Errorf("failed to read API key from keychain: %w", err)
	}
	if strings.TrimSpace(key) == "" {
		return "", ErrNoAPIKey
	}
	return key, nil
}

// SetAPIKey stores the key in the OS keychain.
func SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("API key cannot be empty")
	}
	if err := keyring.Set(keyringService, keyringUser, key); err != nil {
		return fmt.Errorf("failed to store API key in keychain: %w", err)
	}
	return nil
}

// DeleteAPIKey removes the key from the OS keychain. Deleting a key that was
// never stored is not an error.
func DeleteAPIKey() error {
	err := keyring.Delete(keyringService, keyringUser)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete API key from keychain: %w", err)
	}
	return nil
}

// HasAPIKey reports whether a key is resolvable without returning it.
func HasAPIKey() bool {
	_, err := APIKey()
	return err == nil
}
