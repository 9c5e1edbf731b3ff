// Package secrets stores API credentials in the OS keychain.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups jobmatch's secrets in the OS keychain.
const KeyringService = "jobmatch"

// Accounts under KeyringService.
const (
	AccountOpenAI = "openai_api_key"
	AccountSearch = "search_api_key"
)

// Known lists the accounts the CLI manages.
var Known = []string{AccountOpenAI, AccountSearch}

// ErrNotFound is returned when no secret is stored for an account.
var ErrNotFound = errors.New("secret not found")

// Get returns the secret stored for account.
func Get(account string) (string, error) {
	if strings.TrimSpace(account) == "" {
		return "", errors.New("keyring account name is empty")
	}
	v, err := keyring.Get(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("%s: %w", account, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %s: %w", account, err)
	}
	if strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%s: %w", account, ErrNotFound)
	}
	return v, nil
}

// Set stores value for account.
func Set(account, value string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret is empty")
	}
	return keyring.Set(KeyringService, account, value)
}

// Delete removes the secret stored for account.
func Delete(account string) error {
	if strings.TrimSpace(account) == "" {
		return errors.New("keyring account name is empty")
	}
	err := keyring.Delete(KeyringService, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%s: %w", account, ErrNotFound)
	}
	return err
}

// Resolve returns value when it is set, otherwise the keychain entry for
// account. A missing entry yields "" without error so callers can fall back
// to disabled collaborators.
func Resolve(value, account string) (string, error) {
	if strings.TrimSpace(value) != "" {
		return value, nil
	}
	v, err := Get(account)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}
