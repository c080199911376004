package commands

import (
	"github.com/spf13/cobra"

	"github.com/systmms/appcfg/internal/config"
	"github.com/systmms/appcfg/internal/report"
)

func NewValidateCommand(cfg *config.Config, opts *GlobalOptions) *cobra.Command {
	var (
		importFile string
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a JSON settings file without contacting Azure",
		Long: `Validate parses a settings document and checks every item, reporting all
problems at once. It never contacts the store or the vault.

Examples:
  appcfg validate --import-file settings.json
  appcfg validate --import-file settings.json --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := parseDocument(cmd, cfg, opts, importFile, outputJSON)
			if err != nil {
				return err
			}

			if outputJSON {
				return report.WriteProblemsJSON(cmd.OutOrStdout(), len(items), nil)
			}
			cfg.Logger.Info("%s is valid (%d item(s))", importFile, len(items))
			return nil
		},
	}

	cmd.Flags().StringVar(&importFile, "import-file", "", "Path to the JSON settings file ('-' for stdin)")
	cmd.Flags().BoolVar(&outputJSON, "json", false, "Output in JSON format")
	_ = cmd.MarkFlagRequired("import-file")

	return cmd
}
