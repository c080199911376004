package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/systmms/appcfg/internal/config"
	"github.com/systmms/appcfg/internal/document"
	"github.com/systmms/appcfg/internal/item"
)

// WriteSettings serializes items as a settings document in dir and returns
// its path.
func WriteSettings(t *testing.T, dir, name string, items []item.ConfigItem) string {
	t.Helper()

	data, err := document.Serialize(items)
	if err != nil {
		t.Fatalf("Failed to serialize settings: %v", err)
	}
	return WriteFile(t, dir, name, string(data))
}

// WriteConfig marshals def as appcfg.yaml in dir and returns its path.
func WriteConfig(t *testing.T, dir string, def config.Definition) string {
	t.Helper()

	data, err := yaml.Marshal(def)
	if err != nil {
		t.Fatalf("Failed to marshal config: %v", err)
	}
	return WriteFile(t, dir, config.DefaultPath, string(data))
}

// WriteFile writes content to dir/name and returns the path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}
