// Package vault checks secret existence in Azure Key Vault.
package vault

import (
	"context"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"

	dserrors "github.com/systmms/appcfg/internal/errors"
	"github.com/systmms/appcfg/internal/logging"
)

// SecretClientAPI is the subset of *azsecrets.Client used by KeyVault.
type SecretClientAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// KeyVault answers existence queries against one vault.
type KeyVault struct {
	name   string
	client SecretClientAPI
	logger *logging.Logger
}

// Option configures a KeyVault.
type Option func(*KeyVault)

// WithSecretClient sets the Key Vault client (for testing).
func WithSecretClient(client SecretClientAPI) Option {
	return func(v *KeyVault) {
		v.client = client
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(logger *logging.Logger) Option {
	return func(v *KeyVault) {
		v.logger = logger
	}
}

// URL returns the data-plane URL of a vault.
func URL(name string) string {
	return fmt.Sprintf("https://%s.vault.azure.net/", name)
}

// New creates a KeyVault for the named vault. cred is only used when no
// client is injected.
func New(name string, cred azcore.TokenCredential, opts ...Option) (*KeyVault, error) {
	if name == "" {
		return nil, dserrors.ConfigError{
			Field:      "vault",
			Message:    "vault name is required",
			Suggestion: "Pass --vault <name> or set vault.name in appcfg.yaml",
		}
	}

	v := &KeyVault{name: name}
	for _, opt := range opts {
		opt(v)
	}
	if v.logger == nil {
		v.logger = logging.New(false, false)
	}

	if v.client == nil {
		client, err := azsecrets.NewClient(URL(name), cred, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
		}
		v.client = client
	}
	return v, nil
}

// Name returns the vault name.
func (v *KeyVault) Name() string {
	return v.name
}

// SecretExists reads the latest version of a secret. A 404 is reported as
// (false, nil); every other failure is returned.
func (v *KeyVault) SecretExists(ctx context.Context, name string) (bool, error) {
	v.logger.Debug("Checking secret '%s' in vault %s", name, v.name)

	_, err := v.client.GetSecret(ctx, name, "", nil)
	if err != nil {
		if dserrors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
