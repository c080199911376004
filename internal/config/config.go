package config

import (
	"errors"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/systmms/appcfg/internal/azauth"
	dserrors "github.com/systmms/appcfg/internal/errors"
	"github.com/systmms/appcfg/internal/logging"
)

const (
	// DefaultPath is the configuration file looked up when --config is not given.
	DefaultPath = "appcfg.yaml"

	// DefaultConnectionStringEnv is read when store.connection_string_env is unset.
	DefaultConnectionStringEnv = "APPCFG_CONNECTION_STRING"

	defaultTimeoutMs = 30000
)

// Config holds the runtime configuration
type Config struct {
	Path           string
	Logger         *logging.Logger
	NonInteractive bool
	Definition     *Definition
}

// Definition represents the appcfg.yaml structure
type Definition struct {
	Version int         `yaml:"version"`
	Store   StoreConfig `yaml:"store"`
	Vault   VaultConfig `yaml:"vault"`
}

// StoreConfig describes how to reach the App Configuration store
type StoreConfig struct {
	Name                string `yaml:"name,omitempty"`
	Endpoint            string `yaml:"endpoint,omitempty"`
	ConnectionStringEnv string `yaml:"connection_string_env,omitempty"`
	TimeoutMs           int    `yaml:"timeout_ms,omitempty"` // per remote call (default: 30000)
}

// VaultConfig names the Key Vault referenced by secret items and how to
// authenticate with Azure AD. The credential settings also apply to the
// store when no connection string is available.
type VaultConfig struct {
	Name                   string `yaml:"name,omitempty"`
	TenantID               string `yaml:"tenant_id,omitempty"`
	ClientID               string `yaml:"client_id,omitempty"`
	ClientSecret           string `yaml:"client_secret,omitempty"`
	UseManagedIdentity     bool   `yaml:"use_managed_identity,omitempty"`
	UserAssignedIdentityID string `yaml:"user_assigned_identity_id,omitempty"`
}

// Load reads and parses the configuration file. A missing file is an error.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return dserrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create appcfg.yaml or pass the store and vault with --endpoint and --vault",
			}
		}
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return dserrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}

	if err := def.Validate(); err != nil {
		return err
	}

	c.Definition = &def
	return nil
}

// LoadOptional loads the configuration file if it exists. Without a file
// the definition is empty and every setting comes from flags and the
// environment.
func (c *Config) LoadOptional() error {
	err := c.Load()
	var cfgErr dserrors.ConfigError
	if errors.As(err, &cfgErr) && cfgErr.Field == "path" {
		if c.Logger != nil {
			c.Logger.Debug("No configuration file at %s, using flags and environment", c.Path)
		}
		c.Definition = &Definition{}
		return nil
	}
	return err
}

// Validate checks the definition for unsupported values
func (d *Definition) Validate() error {
	if d.Version != 0 {
		return dserrors.ConfigError{
			Field:      "version",
			Value:      d.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your appcfg.yaml file",
		}
	}
	if d.Store.TimeoutMs < 0 {
		return dserrors.ConfigError{
			Field:      "store.timeout_ms",
			Value:      d.Store.TimeoutMs,
			Message:    "timeout must not be negative",
			Suggestion: "Use 0 for the default of 30000",
		}
	}
	if d.Store.Name != "" && d.Store.Endpoint != "" {
		return dserrors.ConfigError{
			Field:      "store",
			Message:    "set either store.name or store.endpoint, not both",
			Suggestion: "store.name is shorthand for endpoint https://<name>.azconfig.io",
		}
	}
	return d.Vault.AuthSettings().Validate()
}

// GetTimeout returns the per-call timeout
func (s StoreConfig) GetTimeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return defaultTimeoutMs * time.Millisecond
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// GetConnectionStringEnv returns the environment variable holding the
// connection string
func (s StoreConfig) GetConnectionStringEnv() string {
	if s.ConnectionStringEnv == "" {
		return DefaultConnectionStringEnv
	}
	return s.ConnectionStringEnv
}

// AuthSettings returns the Azure AD credential settings
func (v VaultConfig) AuthSettings() azauth.Settings {
	return azauth.Settings{
		TenantID:               v.TenantID,
		ClientID:               v.ClientID,
		ClientSecret:           v.ClientSecret,
		UseManagedIdentity:     v.UseManagedIdentity,
		UserAssignedIdentityID: v.UserAssignedIdentityID,
	}
}
