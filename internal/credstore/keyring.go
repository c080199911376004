// Package credstore keeps App Configuration connection strings in the
// operating system keyring (macOS Keychain, Secret Service, Windows
// Credential Manager).
package credstore

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	dserrors "github.com/systmms/appcfg/internal/errors"
)

// Service is the keyring service name all entries are stored under.
const Service = "appcfg"

// ErrNotFound means no connection string is stored for the account.
var ErrNotFound = errors.New("no connection string stored")

// Account returns the keyring account for a store. Stores are identified by
// name; the empty name maps to the default account.
func Account(storeName string) string {
	if storeName == "" {
		return "default"
	}
	return storeName
}

// Save stores a connection string for storeName, replacing any existing one.
func Save(storeName, connectionString string) error {
	if connectionString == "" {
		return dserrors.UserError{
			Message:    "Refusing to store an empty connection string",
			Suggestion: "Pass the access key connection string from the store's Access keys blade",
		}
	}
	if err := keyring.Set(Service, Account(storeName), connectionString); err != nil {
		return keyringError("save", err)
	}
	return nil
}

// Load returns the stored connection string for storeName, or ErrNotFound.
func Load(storeName string) (string, error) {
	secret, err := keyring.Get(Service, Account(storeName))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", keyringError("read", err)
	}
	return secret, nil
}

// Delete removes the stored connection string. Deleting a missing entry
// returns ErrNotFound.
func Delete(storeName string) error {
	if err := keyring.Delete(Service, Account(storeName)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return keyringError("delete", err)
	}
	return nil
}

func keyringError(op string, err error) error {
	return dserrors.UserError{
		Message:    fmt.Sprintf("Failed to %s keyring entry", op),
		Details:    err.Error(),
		Suggestion: "Check that a keyring service is available (Keychain on macOS, gnome-keyring or KWallet on Linux), or use APPCFG_CONNECTION_STRING instead",
		Err:        err,
	}
}
