package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/spf13/cobra"

	"github.com/systmms/appcfg/internal/azauth"
	"github.com/systmms/appcfg/internal/config"
	"github.com/systmms/appcfg/internal/document"
	dserrors "github.com/systmms/appcfg/internal/errors"
	"github.com/systmms/appcfg/internal/item"
	"github.com/systmms/appcfg/internal/metrics"
	"github.com/systmms/appcfg/internal/reconcile"
	"github.com/systmms/appcfg/internal/report"
	"github.com/systmms/appcfg/internal/store"
	"github.com/systmms/appcfg/internal/vault"
)

// GlobalOptions are the persistent flags shared by the remote commands.
type GlobalOptions struct {
	ConnectionString string
	Endpoint         string
	StoreName        string
	VaultName        string
	Timeout          time.Duration
	MetricsFile      string
	NoColor          bool

	// Connect builds the store and vault clients. Nil means Azure.
	Connect Connector
}

// Backend is the pair of remote services a command works against. Vault is
// nil when the command does not need it.
type Backend struct {
	Store     reconcile.Store
	Vault     reconcile.Vault
	VaultName string
	Endpoint  string
}

// Connector creates a Backend.
type Connector func(ctx context.Context, cfg *config.Config, opts *GlobalOptions, needVault bool) (*Backend, error)

// Register adds the persistent flags to the root command.
func (o *GlobalOptions) Register(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.StringVarP(&o.ConnectionString, "connection-string", "c", "", "App Configuration connection string (default $APPCFG_CONNECTION_STRING)")
	flags.StringVar(&o.Endpoint, "endpoint", "", "App Configuration endpoint, authenticated with Azure AD")
	flags.StringVar(&o.StoreName, "store", "", "App Configuration store name (https://<name>.azconfig.io)")
	flags.StringVar(&o.VaultName, "vault", "", "Key Vault name, excluding https:// and .vault.azure.net")
	flags.DurationVar(&o.Timeout, "timeout", 0, "Deadline for each Azure call (default 30s or store.timeout_ms)")
	flags.StringVar(&o.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
}

func (o *GlobalOptions) overrides() config.Overrides {
	return config.Overrides{
		ConnectionString: o.ConnectionString,
		Endpoint:         o.Endpoint,
		StoreName:        o.StoreName,
		VaultName:        o.VaultName,
	}
}

func (o *GlobalOptions) callTimeout(cfg *config.Config) time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return definition(cfg).Store.GetTimeout()
}

func (o *GlobalOptions) connect(ctx context.Context, cfg *config.Config, needVault bool) (*Backend, error) {
	if o.Connect != nil {
		return o.Connect(ctx, cfg, o, needVault)
	}
	return connectAzure(ctx, cfg, o, needVault)
}

// connectAzure resolves the store connection and builds the Azure clients.
func connectAzure(ctx context.Context, cfg *config.Config, opts *GlobalOptions, needVault bool) (*Backend, error) {
	target, err := cfg.ResolveStore(opts.overrides())
	if err != nil {
		return nil, err
	}
	vaultName := cfg.VaultName(opts.overrides())
	cfg.Logger.Debug("Connecting to %s (%s)", target.Endpoint, target.Source)

	var cred azcore.TokenCredential
	if target.Source == config.SourceAzureAD || (needVault && vaultName != "") {
		cred, err = azauth.NewCredential(definition(cfg).Vault.AuthSettings())
		if err != nil {
			return nil, err
		}
	}

	conn := store.Connection{Endpoint: target.Endpoint, Credential: cred}
	var st *store.Store
	if target.Credential != nil {
		err = target.Credential.Reveal(func(plain string) error {
			conn.ConnectionString = plain
			var err error
			st, err = store.New(conn, store.WithLogger(cfg.Logger))
			return err
		})
		target.Credential.Destroy()
	} else {
		st, err = store.New(conn, store.WithLogger(cfg.Logger))
	}
	if err != nil {
		return nil, err
	}

	b := &Backend{Store: st, VaultName: vaultName, Endpoint: target.Endpoint}
	if needVault && vaultName != "" {
		kv, err := vault.New(vaultName, cred, vault.WithLogger(cfg.Logger))
		if err != nil {
			return nil, err
		}
		b.Vault = kv
	}
	return b, nil
}

// run wires an engine to the command output and the metrics file.
type run struct {
	cfg      *config.Config
	opts     *GlobalOptions
	engine   *reconcile.Engine
	recorder *metrics.Recorder
	printer  *report.Printer
}

func newRun(cmd *cobra.Command, cfg *config.Config, opts *GlobalOptions, b *Backend, stream bool) *run {
	r := &run{
		cfg:      cfg,
		opts:     opts,
		recorder: metrics.NewRecorder(),
		printer:  report.NewPrinter(cmd.OutOrStdout(), opts.NoColor),
	}

	engineOpts := []reconcile.Option{reconcile.WithRecorder(r.recorder)}
	if stream {
		engineOpts = append(engineOpts, reconcile.WithObserver(r.printer.Decision))
	}
	r.engine = reconcile.New(b.Store, b.Vault, engineOpts...)
	return r
}

// finish writes the metrics file, if one was requested.
func (r *run) finish() {
	if r.opts.MetricsFile == "" {
		return
	}
	if err := r.recorder.WriteTextfile(r.opts.MetricsFile); err != nil {
		r.cfg.Logger.Warn("%v", err)
		return
	}
	r.cfg.Logger.Debug("Wrote metrics to %s", r.opts.MetricsFile)
}

// readDocument reads a settings document from path, or stdin for "-".
func readDocument(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dserrors.UserError{
				Message:    fmt.Sprintf("Settings file not found: %s", path),
				Suggestion: "Check the --import-file path",
				Err:        err,
			}
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// parseDocument reads and parses a document, printing any problems.
func parseDocument(cmd *cobra.Command, cfg *config.Config, opts *GlobalOptions, path string, asJSON bool) ([]item.ConfigItem, error) {
	data, err := readDocument(cmd, path)
	if err != nil {
		return nil, err
	}

	if !document.IsWellFormedJSON(data) {
		notJSON := dserrors.UserError{
			Message:    fmt.Sprintf("%s does not appear to be valid JSON", path),
			Suggestion: "The file must be a JSON array of settings objects; check for truncation or a stray character at the start or end",
		}
		if _, problems := document.Parse(data); len(problems) > 0 {
			notJSON.Details = problems[0].Message
		}
		if asJSON {
			problem := document.Problem{Kind: document.KindParse, Index: -1, Message: "does not appear to be valid JSON"}
			if notJSON.Details != "" {
				problem.Message += ": " + notJSON.Details
			}
			if err := report.WriteProblemsJSON(cmd.OutOrStdout(), 0, []document.Problem{problem}); err != nil {
				return nil, err
			}
		}
		return nil, notJSON
	}

	items, problems := document.Parse(data)
	cfg.Logger.Debug("Parsed %d item(s) from %s", len(items), path)
	if len(problems) == 0 {
		return items, nil
	}

	if asJSON {
		if err := report.WriteProblemsJSON(cmd.OutOrStdout(), len(items), problems); err != nil {
			return nil, err
		}
	} else {
		cfg.Logger.Error("%s has %d problem(s):", path, len(problems))
		report.NewPrinter(cmd.ErrOrStderr(), opts.NoColor).Problems(problems)
	}
	return nil, problemsError(path, problems)
}

func problemsError(path string, problems []document.Problem) error {
	if document.HasParseProblems(problems) {
		return dserrors.UserError{
			Message:    fmt.Sprintf("%s is not a valid settings document", path),
			Suggestion: "The file must be a JSON array of objects with Key, Label, Environment, Application, Value, KeyVault and Purge properties",
		}
	}
	return dserrors.UserError{
		Message:    fmt.Sprintf("%s failed validation with %d problem(s); no changes were made", path, len(problems)),
		Suggestion: fmt.Sprintf("Run 'appcfg validate --import-file %s' after fixing the items above", path),
	}
}

// outcome turns engine sentinels into user-facing errors.
func outcome(rep *reconcile.Report, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, reconcile.ErrItemFailures):
		return dserrors.UserError{
			Message:    fmt.Sprintf("%d change(s) failed", len(rep.Failures)),
			Details:    rep.Failures[0].Error(),
			Suggestion: dserrors.AzureSuggestion(rep.Failures[0]),
			Err:        err,
		}
	case errors.Is(err, reconcile.ErrBlocked):
		return dserrors.UserError{Message: err.Error(), Err: err}
	default:
		return err
	}
}

func definition(cfg *config.Config) *config.Definition {
	if cfg.Definition == nil {
		return &config.Definition{}
	}
	return cfg.Definition
}
