package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/systmms/appcfg/internal/config"
	"github.com/systmms/appcfg/internal/document"
	dserrors "github.com/systmms/appcfg/internal/errors"
	"github.com/systmms/appcfg/internal/reconcile"
)

func NewExportCommand(cfg *config.Config, opts *GlobalOptions) *cobra.Command {
	var (
		exportFile string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every App Configuration entry to a JSON settings file",
		Long: `Export reads the whole store and writes it as a settings document sorted
by key. Structured labels become Environment and Application, and Key Vault
references become KeyVault items holding the secret name, so the file can be
imported again unchanged.

Examples:
  appcfg export --export-file settings.json
  appcfg export --export-file settings.json --force
  appcfg export --export-file - | jq .`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.LoadOptional(); err != nil {
				return err
			}

			toStdout := exportFile == "-"
			if !toStdout && !force {
				if _, err := os.Stat(exportFile); err == nil {
					return dserrors.UserError{
						Message:    fmt.Sprintf("%s already exists", exportFile),
						Suggestion: "Pass --force to overwrite it",
					}
				}
			}

			ctx := cmd.Context()
			backend, err := opts.connect(ctx, cfg, false)
			if err != nil {
				return err
			}

			r := newRun(cmd, cfg, opts, backend, false)
			defer r.finish()

			items, warnings, err := r.engine.Export(ctx, reconcile.Options{CallTimeout: opts.callTimeout(cfg)})
			if err != nil {
				return err
			}
			for _, w := range warnings {
				cfg.Logger.Warn("'%s' (label '%s'): %s", w.Key, w.Label, w.Reason)
			}

			data, err := document.Serialize(items)
			if err != nil {
				return err
			}

			if toStdout {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(exportFile, data, 0644); err != nil {
				return dserrors.UserError{
					Message:    fmt.Sprintf("Failed to write %s", exportFile),
					Details:    err.Error(),
					Suggestion: "Check that the directory exists and is writable",
					Err:        err,
				}
			}

			cfg.Logger.Info("Exported %d item(s) to %s", len(items), exportFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&exportFile, "export-file", "", "Path to export file in JSON format ('-' for stdout)")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing files")
	_ = cmd.MarkFlagRequired("export-file")

	return cmd
}
