// Package azauth builds Azure token credentials from configuration.
package azauth

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	dserrors "github.com/systmms/appcfg/internal/errors"
)

// Method names the authentication flow chosen by NewCredential.
type Method string

const (
	MethodManagedIdentity Method = "managed_identity"
	MethodClientSecret    Method = "service_principal"
	MethodDefault         Method = "default_credential"
)

// Settings selects a credential. The zero value uses the default Azure
// credential chain (environment, workload identity, managed identity, Azure
// CLI).
type Settings struct {
	TenantID               string
	ClientID               string
	ClientSecret           string
	UseManagedIdentity     bool
	UserAssignedIdentityID string
}

// Method reports which flow the settings select.
func (s Settings) Method() Method {
	switch {
	case s.UseManagedIdentity:
		return MethodManagedIdentity
	case s.ClientSecret != "":
		return MethodClientSecret
	default:
		return MethodDefault
	}
}

// Validate checks that the selected flow has what it needs.
func (s Settings) Validate() error {
	if s.Method() == MethodClientSecret {
		if s.TenantID == "" {
			return dserrors.ConfigError{
				Field:      "tenant_id",
				Message:    "tenant_id is required with client_secret",
				Suggestion: "Set vault.tenant_id to the directory (tenant) ID of the service principal",
			}
		}
		if s.ClientID == "" {
			return dserrors.ConfigError{
				Field:      "client_id",
				Message:    "client_id is required with client_secret",
				Suggestion: "Set vault.client_id to the application (client) ID of the service principal",
			}
		}
	}
	return nil
}

// NewCredential creates the credential selected by s.
func NewCredential(s Settings) (azcore.TokenCredential, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	var cred azcore.TokenCredential
	var err error

	switch s.Method() {
	case MethodManagedIdentity:
		var opts *azidentity.ManagedIdentityCredentialOptions
		if s.UserAssignedIdentityID != "" {
			opts = &azidentity.ManagedIdentityCredentialOptions{
				ID: azidentity.ClientID(s.UserAssignedIdentityID),
			}
		}
		cred, err = azidentity.NewManagedIdentityCredential(opts)
	case MethodClientSecret:
		cred, err = azidentity.NewClientSecretCredential(s.TenantID, s.ClientID, s.ClientSecret, nil)
	default:
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}
	return cred, nil
}
