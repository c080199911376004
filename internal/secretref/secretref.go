// Package secretref encodes Azure Key Vault references as stored in App
// Configuration entries.
package secretref

import (
	"fmt"
	"regexp"
)

// ContentType marks an App Configuration entry as a Key Vault reference.
const ContentType = "application/vnd.microsoft.appconfig.keyvaultref+json;charset=utf-8"

var secretNamePattern = regexp.MustCompile(`/secrets/([a-z0-9-]+)"`)

// Encode builds the reference value pointing at secretName in vaultName.
func Encode(vaultName, secretName string) string {
	return fmt.Sprintf(`{"uri": "https://%s.vault.azure.net/secrets/%s"}`, vaultName, secretName)
}

// Decode extracts the secret name from a reference value. An empty result
// means the value is not a reference this package understands.
func Decode(value string) string {
	m := secretNamePattern.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsReference reports whether an entry content type marks a Key Vault reference.
func IsReference(contentType string) bool {
	return contentType == ContentType
}

var anyCaseNamePattern = regexp.MustCompile(`/secrets/([A-Za-z0-9-]+)"`)

// SecretName extracts the secret name with its original case. Key Vault
// names are case-insensitive, so this is the form to look the secret up with;
// Decode stays the strict form used for export.
func SecretName(value string) string {
	m := anyCaseNamePattern.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	return m[1]
}

var vaultNamePattern = regexp.MustCompile(`https://([A-Za-z0-9-]+)\.vault\.azure\.net/secrets/`)

// VaultName returns the vault a reference value points at, or "".
func VaultName(value string) string {
	m := vaultNamePattern.FindStringSubmatch(value)
	if m == nil {
		return ""
	}
	return m[1]
}
