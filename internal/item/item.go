// Package item defines the units exchanged between a local settings document
// and a remote Azure App Configuration store.
package item

// ConfigItem is one setting as it appears in a local document.
//
// When IsSecretRef is true, Value holds the bare Key Vault secret name rather
// than the setting value itself. When Purge is true the item is a deletion
// directive and only Key is meaningful.
type ConfigItem struct {
	Key         string `json:"Key,omitempty"`
	Label       string `json:"Label,omitempty"`
	Environment string `json:"Environment,omitempty"`
	Application string `json:"Application,omitempty"`
	Value       string `json:"Value,omitempty"`
	IsSecretRef bool   `json:"KeyVault,omitempty"`
	Purge       bool   `json:"Purge,omitempty"`
}

// HasGrouping reports whether the item carries structured grouping.
func (c ConfigItem) HasGrouping() bool {
	return c.Environment != "" || c.Application != ""
}

// Entry is a remote key-value setting. An empty Label means the entry has no
// label. ETag is the concurrency token observed when the entry was listed.
type Entry struct {
	Key         string
	Label       string
	Value       string
	ContentType string
	ETag        string
}
