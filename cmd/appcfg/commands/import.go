package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/appcfg/internal/config"
	"github.com/systmms/appcfg/internal/reconcile"
	"github.com/systmms/appcfg/internal/report"
)

func NewImportCommand(cfg *config.Config, opts *GlobalOptions) *cobra.Command {
	var (
		importFile  string
		strict      bool
		dryRun      bool
		stopOnError bool
		outputJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Reconcile a JSON settings file into App Configuration",
		Long: `Import reads a settings document and brings the store in line with it.

Each item is added when its key and label are missing from the store, updated
when the stored value differs, and left alone otherwise. Items with
"Purge": true delete every entry with that key and no label. Nothing is
deleted that the document does not name.

The whole document is validated first; any problem stops the import before
the store is contacted.

Examples:
  appcfg import --import-file settings.json --vault my-vault
  appcfg import --import-file settings.json --dry-run
  appcfg import --import-file settings.json --strict --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.LoadOptional(); err != nil {
				return err
			}

			items, err := parseDocument(cmd, cfg, opts, importFile, outputJSON)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			backend, err := opts.connect(ctx, cfg, strict)
			if err != nil {
				return err
			}

			r := newRun(cmd, cfg, opts, backend, !outputJSON)
			defer r.finish()

			if dryRun {
				cfg.Logger.Info("Dry run: no changes will be made to %s", backend.Endpoint)
			}

			rep, err := r.engine.Import(ctx, items, reconcile.Options{
				VaultName:   backend.VaultName,
				DryRun:      dryRun,
				Strict:      strict,
				StopOnError: stopOnError,
				CallTimeout: opts.callTimeout(cfg),
			})
			if rep != nil {
				if outputJSON {
					if jsonErr := report.WriteJSON(cmd.OutOrStdout(), rep); jsonErr != nil {
						return jsonErr
					}
				} else {
					r.printer.Summary(rep)
				}
			}
			if err != nil {
				return outcome(rep, err)
			}

			cfg.Logger.Info("Import of %d item(s) complete", len(items))
			return nil
		},
	}

	cmd.Flags().StringVar(&importFile, "import-file", "", "Path to the JSON settings file ('-' for stdin)")
	cmd.Flags().BoolVar(&strict, "strict", false, "Check that every referenced Key Vault secret exists (warnings only)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the changes without making them")
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "Stop at the first failed change")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	_ = cmd.MarkFlagRequired("import-file")

	return cmd
}
