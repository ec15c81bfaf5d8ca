// Package secrets resolves configuration values that live in the OS keyring
// instead of the config file.
package secrets

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/zalando/go-keyring"
)

const (
	// Service is the keyring service name all secrets are stored under.
	Service = "intentcal"

	// Prefix marks a config value as a keyring reference: "keyring:<key>".
	Prefix = "keyring:"
)

var (
	// ErrNotFound is returned when a referenced key is missing from the keyring.
	ErrNotFound = errors.New("secret not found in keyring")
	// ErrKeyringUnavailable is returned when the OS keyring cannot be used.
	ErrKeyringUnavailable = errors.New("OS keyring is not available")
)

// IsRef reports whether v is a keyring reference.
func IsRef(v string) bool {
	return strings.HasPrefix(v, Prefix)
}

// Resolve returns v unchanged unless it is a keyring reference, in which
// case the stored secret is returned.
func Resolve(v string) (string, error) {
	if !IsRef(v) {
		return v, nil
	}
	key := strings.TrimSpace(strings.TrimPrefix(v, Prefix))
	if key == "" {
		return "", errors.New("empty keyring reference")
	}
	return Get(key)
}

// Get reads a secret by key.
func Get(key string) (string, error) {
	val, err := keyring.Get(Service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", errors.Wrapf(ErrNotFound, "key %q", key)
		}
		return "", errors.Wrapf(ErrKeyringUnavailable, "get %q: %v", key, err)
	}
	return val, nil
}

// Set stores a secret under key.
func Set(key, value string) error {
	if key == "" {
		return errors.New("secret key cannot be empty")
	}
	if value == "" {
		return errors.New("secret value cannot be empty")
	}
	if err := keyring.Set(Service, key, value); err != nil {
		return errors.Wrapf(err, "store secret %q", key)
	}
	return nil
}

// Delete removes a secret.
func Delete(key string) error {
	if err := keyring.Delete(Service, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return errors.Wrapf(ErrNotFound, "key %q", key)
		}
		return errors.Wrapf(err, "delete secret %q", key)
	}
	return nil
}
