package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/appcfg/internal/config"
	"github.com/systmms/appcfg/internal/item"
	"github.com/systmms/appcfg/internal/secretref"
	"github.com/systmms/appcfg/tests/fakes"
	"github.com/systmms/appcfg/tests/testutil"
)

// harness runs commands against in-memory fakes.
type harness struct {
	t      *testing.T
	dir    string
	cfg    *config.Config
	opts   *GlobalOptions
	store  *fakes.FakeStore
	vault  *fakes.FakeVault
	log    *testutil.TestLogger
	stdout *bytes.Buffer
	stderr *bytes.Buffer

	connects int
}

func newHarness(t *testing.T, entries ...item.Entry) *harness {
	t.Helper()
	dir := t.TempDir()

	h := &harness{
		t:      t,
		dir:    dir,
		store:  fakes.NewFakeStore(entries...),
		vault:  fakes.NewFakeVault(),
		log:    testutil.NewTestLogger(t),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}

	h.cfg = &config.Config{
		Path:   filepath.Join(dir, config.DefaultPath),
		Logger: h.log.Logger(),
	}
	h.opts = &GlobalOptions{
		NoColor: true,
		Connect: func(ctx context.Context, cfg *config.Config, opts *GlobalOptions, needVault bool) (*Backend, error) {
			h.connects++
			b := &Backend{
				Store:     h.store,
				VaultName: cfg.VaultName(opts.overrides()),
				Endpoint:  "https://test.azconfig.io",
			}
			if needVault {
				b.Vault = h.vault
			}
			return b, nil
		},
	}
	return h
}

func (h *harness) root() *cobra.Command {
	root := &cobra.Command{Use: "appcfg", SilenceUsage: true, SilenceErrors: true}
	h.opts.Register(root)
	root.AddCommand(
		NewImportCommand(h.cfg, h.opts),
		NewExportCommand(h.cfg, h.opts),
		NewValidateCommand(h.cfg, h.opts),
		NewCleanupCommand(h.cfg, h.opts),
		NewLoginCommand(h.cfg, h.opts),
		NewCompletionCommand(h.cfg),
	)
	root.SetOut(h.stdout)
	root.SetErr(h.stderr)
	return root
}

func (h *harness) run(stdin string, args ...string) error {
	h.t.Helper()
	root := h.root()
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	return root.Execute()
}

func (h *harness) writeFile(name, content string) string {
	h.t.Helper()
	return testutil.WriteFile(h.t, h.dir, name, content)
}

const settingsDoc = `[
  {"Key": "Api:Url", "Value": "https://api.example.com"},
  {"Key": "Api:Key", "Value": "api-key", "KeyVault": true},
  {"Key": "Old:Setting", "Purge": true}
]`

func TestImportCommand_AppliesDocument(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item.Entry{Key: "Old:Setting", Value: "stale"})
	path := h.writeFile("settings.json", settingsDoc)

	require.NoError(t, h.run("", "import", "--import-file", path, "--vault", "kv"))

	got, ok := h.store.Get("Api:Url", "")
	require.True(t, ok)
	assert.Equal(t, "https://api.example.com", got.Value)

	ref, ok := h.store.Get("Api:Key", "")
	require.True(t, ok)
	assert.Equal(t, secretref.Encode("kv", "api-key"), ref.Value)
	assert.Equal(t, secretref.ContentType, ref.ContentType)

	_, ok = h.store.Get("Old:Setting", "")
	assert.False(t, ok)

	out := h.stdout.String()
	assert.Contains(t, out, "ADD     'Api:Url'")
	assert.Contains(t, out, "'Api:Key' [Key Vault]")
	assert.Contains(t, out, "DELETE  'Old:Setting'")
	assert.Contains(t, out, "applied: 2 added, 0 updated, 1 deleted, 0 unchanged")
}

func TestImportCommand_DryRunMakesNoChanges(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item.Entry{Key: "Old:Setting", Value: "stale"})
	path := h.writeFile("settings.json", settingsDoc)

	require.NoError(t, h.run("", "import", "--import-file", path, "--vault", "kv", "--dry-run"))

	assert.Empty(t, h.store.MutatingCalls())
	assert.Contains(t, h.stdout.String(), "[dry-run] ")
	assert.Contains(t, h.stdout.String(), "planned: 2 added, 0 updated, 1 deleted, 0 unchanged")
}

func TestImportCommand_ReadsStdin(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	require.NoError(t, h.run(`[{"Key": "A", "Value": "1"}]`, "import", "--import-file", "-"))

	got, ok := h.store.Get("A", "")
	require.True(t, ok)
	assert.Equal(t, "1", got.Value)
}

func TestImportCommand_JSONOutput(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item.Entry{Key: "A", Value: "1"})
	path := h.writeFile("settings.json", `[{"Key": "A", "Value": "1"}, {"Key": "B", "Value": "2"}]`)

	require.NoError(t, h.run("", "import", "--import-file", path, "--json"))

	var out struct {
		Decisions []struct {
			Action string `json:"action"`
			Key    string `json:"key"`
		} `json:"decisions"`
		Summary struct {
			Added     int `json:"added"`
			Unchanged int `json:"unchanged"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &out))
	require.Len(t, out.Decisions, 2)
	assert.Equal(t, "NOOP", out.Decisions[0].Action)
	assert.Equal(t, "ADD", out.Decisions[1].Action)
	assert.Equal(t, 1, out.Summary.Added)
	assert.Equal(t, 1, out.Summary.Unchanged)
}

func TestImportCommand_InvalidDocumentNeverConnects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		errText string
	}{
		{"malformed json", `[{"Key": "A"`, "does not appear to be valid JSON"},
		{"not json at all", "Key=A\nValue=1\n", "does not appear to be valid JSON"},
		{"json but not an array", `{"Key": "A", "Value": "1"}`, "not a valid settings document"},
		{"empty key", `[{"Key": "", "Value": "1"}]`, "failed validation with 1 problem(s)"},
		{"bad secret name", `[{"Key": "A", "Value": "bad_name!", "KeyVault": true}]`, "failed validation"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			path := h.writeFile("settings.json", tt.content)

			err := h.run("", "import", "--import-file", path, "--vault", "kv")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errText)
			assert.Zero(t, h.connects)
			assert.Empty(t, h.store.Calls)
		})
	}
}

func TestImportCommand_NotJSONShowsSyntaxPosition(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	path := h.writeFile("settings.json", "[\n  {\"Key\": \"A\",}\n]")

	err := h.run("", "import", "--import-file", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not appear to be valid JSON")
	assert.Contains(t, err.Error(), "line 2")
	assert.Zero(t, h.connects)
}

func TestImportCommand_MissingFile(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	err := h.run("", "import", "--import-file", filepath.Join(h.dir, "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Settings file not found")
}

func TestImportCommand_RequiresImportFile(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	err := h.run("", "import")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import-file")
}

func TestImportCommand_SecretRefNeedsVault(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	path := h.writeFile("settings.json", `[{"Key": "A", "Value": "a-secret", "KeyVault": true}]`)

	err := h.run("", "import", "--import-file", path)
	require.Error(t, err)
	assert.Empty(t, h.store.MutatingCalls())
}

func TestImportCommand_VaultNameFromConfigFile(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	testutil.WriteConfig(t, h.dir, config.Definition{Vault: config.VaultConfig{Name: "filevault"}})
	path := testutil.WriteSettings(t, h.dir, "settings.json", []item.ConfigItem{
		{Key: "A", Value: "a-secret", IsSecretRef: true},
	})

	require.NoError(t, h.run("", "import", "--import-file", path))

	got, ok := h.store.Get("A", "")
	require.True(t, ok)
	assert.Equal(t, secretref.Encode("filevault", "a-secret"), got.Value)
}

func TestImportCommand_StrictWarnsAboutMissingSecrets(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.vault.Secrets["present"] = true
	path := h.writeFile("settings.json", `[
  {"Key": "A", "Value": "present", "KeyVault": true},
  {"Key": "B", "Value": "absent", "KeyVault": true}
]`)

	require.NoError(t, h.run("", "import", "--import-file", path, "--vault", "kv", "--strict"))

	assert.ElementsMatch(t, []string{"present", "absent"}, h.vault.Calls)
	assert.Contains(t, h.stdout.String(), "WARNING 'B'")
	assert.Contains(t, h.stdout.String(), "Warnings: 1")
	_, ok := h.store.Get("B", "")
	assert.True(t, ok, "warnings never block the write")
}

func TestImportCommand_FailuresReturnError(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.store.FailOn("add", "A", fakes.ResponseError(http.StatusInternalServerError, "InternalServerError"))
	path := h.writeFile("settings.json", `[{"Key": "A", "Value": "1"}, {"Key": "B", "Value": "2"}]`)

	err := h.run("", "import", "--import-file", path)
	require.Error(t, err)

	_, ok := h.store.Get("B", "")
	assert.True(t, ok, "later items are still applied")
}

func TestImportCommand_WritesMetricsFile(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	path := h.writeFile("settings.json", `[{"Key": "A", "Value": "1"}]`)
	metricsPath := filepath.Join(h.dir, "appcfg.prom")

	require.NoError(t, h.run("", "import", "--import-file", path, "--metrics-file", metricsPath))

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `appcfg_decisions_total{action="ADD",dry_run="false"} 1`)
	assert.Contains(t, string(data), "appcfg_run_duration_seconds")
}

func TestExportCommand_WritesDocument(t *testing.T) {
	t.Parallel()

	h := newHarness(t,
		item.Entry{Key: "B", Value: "2"},
		item.Entry{Key: "A", Value: "1", Label: "custom"},
		item.Entry{Key: "S", Value: secretref.Encode("kv", "s-name"), ContentType: secretref.ContentType},
	)
	path := filepath.Join(h.dir, "out.json")

	require.NoError(t, h.run("", "export", "--export-file", path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var items []item.ConfigItem
	require.NoError(t, json.Unmarshal(data, &items))
	require.Len(t, items, 3)
	assert.Equal(t, item.ConfigItem{Key: "A", Label: "custom", Value: "1"}, items[0])
	assert.Equal(t, item.ConfigItem{Key: "B", Value: "2"}, items[1])
	assert.Equal(t, item.ConfigItem{Key: "S", Value: "s-name", IsSecretRef: true}, items[2])
	assert.Empty(t, h.store.MutatingCalls())
}

func TestExportCommand_RefusesToOverwrite(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item.Entry{Key: "A", Value: "1"})
	path := h.writeFile("out.json", "keep me")

	err := h.run("", "export", "--export-file", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.Zero(t, h.connects)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(data))

	require.NoError(t, h.run("", "export", "--export-file", path, "--force"))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Key": "A"`)
}

func TestExportCommand_Stdout(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item.Entry{Key: "A", Value: "1"})
	require.NoError(t, h.run("", "export", "--export-file", "-"))
	assert.Contains(t, h.stdout.String(), `"Value": "1"`)
}

func TestExportThenImport_IsNoop(t *testing.T) {
	t.Parallel()

	h := newHarness(t,
		item.Entry{Key: "A", Value: "1"},
		item.Entry{Key: "S", Value: secretref.Encode("kv", "s-name"), ContentType: secretref.ContentType},
	)
	path := filepath.Join(h.dir, "out.json")

	require.NoError(t, h.run("", "export", "--export-file", path))
	require.NoError(t, h.run("", "import", "--import-file", path, "--vault", "kv"))

	assert.Empty(t, h.store.MutatingCalls())
	assert.Contains(t, h.stdout.String(), "0 added, 0 updated, 0 deleted, 2 unchanged")
}

func TestValidateCommand(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		path := h.writeFile("settings.json", settingsDoc)

		require.NoError(t, h.run("", "validate", "--import-file", path))
		h.log.AssertContains(t, "is valid (3 item(s))")
		assert.Zero(t, h.connects)
	})

	t.Run("reports every problem", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		path := h.writeFile("settings.json", `[
  {"Key": "", "Value": "1"},
  {"Key": "A", "Label": "x", "Environment": "prod"}
]`)

		err := h.run("", "validate", "--import-file", path)
		require.Error(t, err)
		assert.Contains(t, h.stderr.String(), "1. [validation] item[0].Key: must not be empty")
		assert.Contains(t, h.stderr.String(), "2. [validation] item[1].Label")
		assert.Zero(t, h.connects)
	})

	t.Run("not json", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		path := h.writeFile("settings.json", "this is not json")

		err := h.run("", "validate", "--import-file", path, "--json")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "does not appear to be valid JSON")

		var out struct {
			Valid    bool `json:"valid"`
			Problems []struct {
				Kind string `json:"kind"`
			} `json:"problems"`
		}
		require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &out))
		assert.False(t, out.Valid)
		require.Len(t, out.Problems, 1)
		assert.Equal(t, "parse", out.Problems[0].Kind)
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t)
		path := h.writeFile("settings.json", `[{"Key": ""}]`)

		require.Error(t, h.run("", "validate", "--import-file", path, "--json"))

		var out struct {
			Valid    bool              `json:"valid"`
			Problems []json.RawMessage `json:"problems"`
		}
		require.NoError(t, json.Unmarshal(h.stdout.Bytes(), &out))
		assert.False(t, out.Valid)
		assert.Len(t, out.Problems, 1)
	})
}

func TestCleanupCommand(t *testing.T) {
	t.Parallel()

	entries := []item.Entry{
		{Key: "Live", Value: secretref.Encode("kv", "live"), ContentType: secretref.ContentType},
		{Key: "Gone", Value: secretref.Encode("kv", "gone"), ContentType: secretref.ContentType},
		{Key: "Other", Value: secretref.Encode("elsewhere", "gone"), ContentType: secretref.ContentType},
		{Key: "Plain", Value: "gone"},
	}

	t.Run("dry run", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, entries...)
		h.vault.Secrets["live"] = true

		require.NoError(t, h.run("", "cleanup", "--vault", "kv", "--dry-run"))
		assert.Empty(t, h.store.MutatingCalls())
		assert.Contains(t, h.stdout.String(), "DELETE  'Gone' [Key Vault]")
	})

	t.Run("apply", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, entries...)
		h.vault.Secrets["live"] = true

		require.NoError(t, h.run("", "cleanup", "--vault", "kv"))

		calls := h.store.MutatingCalls()
		require.Len(t, calls, 1)
		assert.Equal(t, "delete", calls[0].Op)
		assert.Equal(t, "Gone", calls[0].Entry.Key)
		for _, key := range []string{"Live", "Other", "Plain"} {
			_, ok := h.store.Get(key, "")
			assert.True(t, ok, key)
		}
	})

	t.Run("requires vault", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, entries...)
		err := h.run("", "cleanup")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "vault")
		assert.Empty(t, h.store.MutatingCalls())
	})
}

func TestCompletionCommand(t *testing.T) {
	t.Parallel()

	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		shell := shell
		t.Run(shell, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t)
			require.NoError(t, h.run("", "completion", shell))
			assert.Contains(t, h.stdout.String(), "appcfg")
		})
	}

	h := newHarness(t)
	assert.Error(t, h.run("", "completion", "tcsh"))
	assert.Error(t, h.run("", "completion"))
	assert.Equal(t, []string{"bash", "fish", "powershell", "zsh"}, completionShells())
}
