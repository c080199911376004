package store

import (
	"fmt"
	"regexp"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	dserrors "github.com/systmms/appcfg/internal/errors"
)

// Connection is how to reach a store: either a connection string, or an
// endpoint plus a token credential.
type Connection struct {
	ConnectionString string
	Endpoint         string
	Credential       azcore.TokenCredential
}

// ConnectionInfo holds the parts of an access-key connection string.
type ConnectionInfo struct {
	Endpoint string
	Name     string
	ID       string
	Secret   string
}

var connectionStringPattern = regexp.MustCompile(`^Endpoint=(https://([A-Za-z0-9-]+)\.azconfig\.io/?);Id=([^;]*);Secret=(.*)$`)

// ParseConnectionString splits an App Configuration access-key connection
// string of the form "Endpoint=https://<name>.azconfig.io;Id=<id>;Secret=<secret>".
func ParseConnectionString(s string) (ConnectionInfo, error) {
	m := connectionStringPattern.FindStringSubmatch(s)
	if m == nil {
		return ConnectionInfo{}, dserrors.ConfigError{
			Field:      "connection_string",
			Message:    "connection string is not in the expected format",
			Suggestion: "Copy an access key connection string from the store: Endpoint=https://<name>.azconfig.io;Id=<id>;Secret=<secret>",
		}
	}
	return ConnectionInfo{Endpoint: m[1], Name: m[2], ID: m[3], Secret: m[4]}, nil
}

// EndpointForName returns the public endpoint of a store.
func EndpointForName(name string) string {
	return fmt.Sprintf("https://%s.azconfig.io", name)
}
