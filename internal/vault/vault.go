// Package vault provides secure storage for the minify daemon's bearer
// auth token, using the OS keychain with fallback to an environment
// variable or a plain-text file reference. The daemon has exactly one
// secret (the bearer token clients present to /v1/minify), so a single
// fixed service/account name identifies it in the keychain.
package vault

import (
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const serviceName = "minify"
const tokenAccount = "auth-token"

// envFallback is the environment variable checked when the keychain has
// no stored token.
const envFallback = "MINIFY_AUTH_TOKEN"

// Vault provides secure bearer-token storage using the OS keychain,
// with fallback to an environment variable.
type Vault struct{}

// New creates a new Vault instance.
func New() *Vault {
	return &Vault{}
}

// Set stores the daemon's bearer auth token in the OS keychain.
func (v *Vault) Set(token string) error {
	return keyring.Set(serviceName, tokenAccount, token)
}

// Get retrieves the bearer auth token. It first checks the OS keychain,
// then falls back to the MINIFY_AUTH_TOKEN environment variable.
func (v *Vault) Get() (string, error) {
	secret, err := keyring.Get(serviceName, tokenAccount)
	if err == nil && secret != "" {
		return secret, nil
	}

	if val := os.Getenv(envFallback); val != "" {
		return val, nil
	}

	return "", fmt.Errorf("no auth token found: not in keychain and %s not set", envFallback)
}

// Clear removes the bearer auth token from the OS keychain.
func (v *Vault) Clear() error {
	return keyring.Delete(serviceName, tokenAccount)
}

// ResolveKeyRef parses a key reference and retrieves the corresponding
// secret. Supported formats:
//   - "keyring://minify/auth-token" (preferred)
//   - "keychain:minify/auth-token" (legacy)
//   - "env:VARIABLE_NAME" (environment variable)
//   - "file:///path/to/token" (plain-text file)
func (v *Vault) ResolveKeyRef(keyRef string) (string, error) {
	if strings.HasPrefix(keyRef, "keyring://") {
		path := strings.TrimPrefix(keyRef, "keyring://")
		parts := strings.SplitN(path, "/", 2)
		if len(parts) != 2 || parts[0] != serviceName || parts[1] == "" {
			return "", fmt.Errorf("invalid key reference format: %q (expected \"keyring://minify/<account>\")", keyRef)
		}
		secret, err := keyring.Get(serviceName, parts[1])
		if err != nil {
			return "", fmt.Errorf("reading keyring entry %q: %w", keyRef, err)
		}
		return secret, nil
	}

	if strings.HasPrefix(keyRef, "keychain:") {
		path := strings.TrimPrefix(keyRef, "keychain:")
		parts := strings.SplitN(path, "/", 2)
		if len(parts) != 2 || parts[0] != serviceName || parts[1] == "" {
			return "", fmt.Errorf("invalid key reference path: %q (expected \"minify/<account>\")", path)
		}
		secret, err := keyring.Get(serviceName, parts[1])
		if err != nil {
			return "", fmt.Errorf("reading keychain entry %q: %w", keyRef, err)
		}
		return secret, nil
	}

	if strings.HasPrefix(keyRef, "env:") {
		envVar := strings.TrimPrefix(keyRef, "env:")
		if val := os.Getenv(envVar); val != "" {
			return val, nil
		}
		return "", fmt.Errorf("environment variable %q is not set", envVar)
	}

	if strings.HasPrefix(keyRef, "file://") {
		filePath := strings.TrimPrefix(keyRef, "file://")
		data, err := os.ReadFile(filePath)
		if err != nil {
			return "", fmt.Errorf("reading key file %q: %w", filePath, err)
		}
		key := strings.TrimSpace(string(data))
		if key == "" {
			return "", fmt.Errorf("key file %q is empty", filePath)
		}
		return key, nil
	}

	return "", fmt.Errorf("invalid key reference format: %q (expected \"keyring://minify/<account>\", \"keychain:minify/<account>\", \"env:VARIABLE_NAME\", or \"file:///path/to/token\")", keyRef)
}
