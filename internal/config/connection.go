package config

import (
	"errors"
	"os"

	"github.com/systmms/appcfg/internal/credstore"
	dserrors "github.com/systmms/appcfg/internal/errors"
	"github.com/systmms/appcfg/internal/secure"
	"github.com/systmms/appcfg/internal/store"
)

// Source says where the store connection came from.
type Source string

const (
	SourceFlag    Source = "flag"
	SourceEnv     Source = "environment"
	SourceKeyring Source = "keyring"
	SourceAzureAD Source = "azure-ad"
)

// Overrides are command-line values that take precedence over the file.
type Overrides struct {
	ConnectionString string
	Endpoint         string
	StoreName        string
	VaultName        string
}

// StoreTarget is the resolved way to reach the store. Credential is set
// for every source except SourceAzureAD.
type StoreTarget struct {
	Source     Source
	Name       string
	Endpoint   string
	Credential *secure.Credential
}

var (
	getenv          = os.Getenv
	loadFromKeyring = credstore.Load
)

// ResolveStore picks the connection in precedence order: flag, environment
// variable, OS keyring, then endpoint with an Azure AD credential.
func (c *Config) ResolveStore(o Overrides) (StoreTarget, error) {
	def := c.definition()

	if o.ConnectionString != "" {
		return fromConnectionString(SourceFlag, o.ConnectionString)
	}

	envVar := def.Store.GetConnectionStringEnv()
	if v := getenv(envVar); v != "" {
		c.debug("Using connection string from $%s", envVar)
		return fromConnectionString(SourceEnv, v)
	}

	name := firstNonEmpty(o.StoreName, def.Store.Name)
	endpoint := firstNonEmpty(o.Endpoint, def.Store.Endpoint)

	// The keyring is keyed by store name, so an explicit endpoint skips it.
	if endpoint == "" {
		stored, err := loadFromKeyring(name)
		switch {
		case err == nil:
			c.debug("Using connection string from keyring entry %s", credstore.Account(name))
			return fromConnectionString(SourceKeyring, stored)
		case errors.Is(err, credstore.ErrNotFound):
		default:
			c.debug("Keyring unavailable: %v", err)
		}
	}

	if endpoint == "" && name != "" {
		endpoint = store.EndpointForName(name)
	}
	if endpoint == "" {
		return StoreTarget{}, dserrors.ConfigError{
			Field:   "store",
			Message: "no App Configuration store specified",
			Suggestion: "Pass --connection-string, set $" + envVar +
				", run 'appcfg login', or set store.name in appcfg.yaml",
		}
	}
	return StoreTarget{Source: SourceAzureAD, Name: name, Endpoint: endpoint}, nil
}

// VaultName returns the Key Vault name from the flag or the file.
func (c *Config) VaultName(o Overrides) string {
	return firstNonEmpty(o.VaultName, c.definition().Vault.Name)
}

func fromConnectionString(src Source, conn string) (StoreTarget, error) {
	info, err := store.ParseConnectionString(conn)
	if err != nil {
		return StoreTarget{}, err
	}
	return StoreTarget{
		Source:     src,
		Name:       info.Name,
		Endpoint:   info.Endpoint,
		Credential: secure.NewCredential(conn),
	}, nil
}

func (c *Config) definition() *Definition {
	if c.Definition == nil {
		return &Definition{}
	}
	return c.Definition
}

func (c *Config) debug(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Debug(format, args...)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
