package main

import (
	"fmt"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"

	"github.com/systmms/appcfg/cmd/appcfg/commands"
	"github.com/systmms/appcfg/internal/config"
	dserrors "github.com/systmms/appcfg/internal/errors"
	"github.com/systmms/appcfg/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Wipe enclave keys and any locked buffers on the way out.
	memguard.CatchInterrupt()
	defer memguard.Purge()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", logging.RedactConnectionString(dserrors.SimplifyError(err).Error()))
		memguard.Purge()
		os.Exit(1)
	}
}

func run() error {
	// Global flags
	var (
		configFile     string
		noColor        bool
		debug          bool
		quiet          bool
		nonInteractive bool
	)

	cfg := &config.Config{}
	opts := &commands.GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "appcfg",
		Short: "Sync JSON settings files with Azure App Configuration",
		Long: `appcfg imports a JSON settings document into an Azure App Configuration
store, exports a store back to a document, and cleans up Key Vault references
whose secrets no longer exist.

Items marked KeyVault are stored as Key Vault references; their Value is the
secret name in the vault given by --vault.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := logging.New(debug, noColor)
			logger.SetQuiet(quiet)

			cfg.Path = configFile
			cfg.Logger = logger
			cfg.NonInteractive = nonInteractive
			opts.NoColor = noColor
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path (optional)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&debug, "verbose", "v", false, "Alias for --debug")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only print errors")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Non-interactive mode")
	opts.Register(rootCmd)

	rootCmd.AddCommand(
		commands.NewImportCommand(cfg, opts),
		commands.NewExportCommand(cfg, opts),
		commands.NewValidateCommand(cfg, opts),
		commands.NewCleanupCommand(cfg, opts),
		commands.NewLoginCommand(cfg, opts),
		commands.NewCompletionCommand(cfg),
	)

	return rootCmd.Execute()
}
