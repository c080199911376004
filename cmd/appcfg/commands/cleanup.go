package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/appcfg/internal/config"
	dserrors "github.com/systmms/appcfg/internal/errors"
	"github.com/systmms/appcfg/internal/reconcile"
	"github.com/systmms/appcfg/internal/report"
)

func NewCleanupCommand(cfg *config.Config, opts *GlobalOptions) *cobra.Command {
	var (
		dryRun      bool
		stopOnError bool
		outputJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete Key Vault references whose secret no longer exists",
		Long: `Cleanup scans the store for Key Vault references into --vault and deletes
those whose secret is missing from the vault. References into other vaults
are left alone. References that cannot be decoded, or whose secret cannot be
checked, are reported as warnings and kept.

Examples:
  appcfg cleanup --vault my-vault --dry-run
  appcfg cleanup --vault my-vault`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.LoadOptional(); err != nil {
				return err
			}

			ctx := cmd.Context()
			backend, err := opts.connect(ctx, cfg, true)
			if err != nil {
				return err
			}
			if backend.VaultName == "" {
				return dserrors.ConfigError{
					Field:      "vault",
					Message:    "cleanup needs a vault name",
					Suggestion: "Pass --vault <name> or set vault.name in appcfg.yaml",
				}
			}

			r := newRun(cmd, cfg, opts, backend, !outputJSON)
			defer r.finish()

			rep, err := r.engine.Cleanup(ctx, reconcile.Options{
				VaultName:   backend.VaultName,
				DryRun:      dryRun,
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
			return outcome(rep, err)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the deletions without making them")
	cmd.Flags().BoolVar(&stopOnError, "stop-on-error", false, "Stop at the first failed deletion")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output in JSON format")

	return cmd
}
