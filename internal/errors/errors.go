package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// AuthenticationError is a credential or authorization failure against App
// Configuration or Key Vault. It always aborts a run.
type AuthenticationError struct {
	Service string
	Err     error
}

func (e AuthenticationError) Error() string {
	return fmt.Sprintf("authentication to %s failed: %v", e.Service, e.Err)
}

func (e AuthenticationError) Unwrap() error {
	return e.Err
}

// StoreOperationError is a single failed mutation against the store.
type StoreOperationError struct {
	Op    string
	Key   string
	Label string
	Err   error
}

func (e StoreOperationError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("%s '%s' (label '%s'): %v", e.Op, e.Key, e.Label, e.Err)
	}
	return fmt.Sprintf("%s '%s': %v", e.Op, e.Key, e.Err)
}

func (e StoreOperationError) Unwrap() error {
	return e.Err
}

// IsAuthentication reports whether err is, or wraps, an authentication failure.
func IsAuthentication(err error) bool {
	if err == nil {
		return false
	}

	var authErr AuthenticationError
	if errors.As(err, &authErr) {
		return true
	}

	var credErr *azidentity.AuthenticationFailedError
	if errors.As(err, &credErr) {
		return true
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusUnauthorized || respErr.StatusCode == http.StatusForbidden
	}

	return false
}

// IsNotFound reports whether err is an Azure 404.
func IsNotFound(err error) bool {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsPreconditionFailed reports whether err is an Azure 412, returned when an
// entry changed after it was listed.
func IsPreconditionFailed(err error) bool {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return respErr.StatusCode == http.StatusPreconditionFailed
	}
	return false
}

// AzureSuggestion returns remediation text for common Azure failures.
func AzureSuggestion(err error) string {
	if err == nil {
		return ""
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch respErr.StatusCode {
		case http.StatusUnauthorized:
			return "Check authentication: verify the connection string, managed identity, service principal, or 'az login'"
		case http.StatusForbidden:
			return "Grant the 'App Configuration Data Owner' role on the store, or 'Get' permission on Key Vault secrets"
		case http.StatusNotFound:
			return "Verify the store endpoint and the key/label exist"
		case http.StatusPreconditionFailed:
			return "The entry was modified after it was read. Re-run to reconcile against the latest state"
		case http.StatusTooManyRequests:
			return "Request was throttled. Wait a moment and try again"
		}
	}

	var credErr *azidentity.AuthenticationFailedError
	if errors.As(err, &credErr) {
		return "Run 'az login' or configure a service principal / managed identity"
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "tenant"):
		return "Check that the tenant ID is correct and the application is registered"
	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "connection refused"):
		return "Unable to connect. Check the store endpoint / vault name and your network"
	case strings.Contains(errStr, "deadline exceeded") || strings.Contains(errStr, "timeout"):
		return "The operation timed out. Increase timeout_ms or check your network connection"
	}

	return ""
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	var userErr UserError
	if errors.As(err, &userErr) {
		return err
	}
	var cfgErr ConfigError
	if errors.As(err, &cfgErr) {
		return err
	}

	if IsAuthentication(err) {
		return UserError{
			Message:    "Authentication failed",
			Details:    err.Error(),
			Suggestion: AzureSuggestion(err),
			Err:        err,
		}
	}

	errStr := err.Error()

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	// Return original error if we can't simplify it
	return err
}
