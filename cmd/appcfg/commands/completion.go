package commands

import (
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/systmms/appcfg/internal/config"
)

// completionGenerators writes the completion script for each supported shell.
var completionGenerators = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash": func(root *cobra.Command, w io.Writer) error {
		return root.GenBashCompletionV2(w, true)
	},
	"zsh": func(root *cobra.Command, w io.Writer) error {
		return root.GenZshCompletion(w)
	},
	"fish": func(root *cobra.Command, w io.Writer) error {
		return root.GenFishCompletion(w, true)
	},
	"powershell": func(root *cobra.Command, w io.Writer) error {
		return root.GenPowerShellCompletionWithDesc(w)
	},
}

func completionShells() []string {
	shells := make([]string, 0, len(completionGenerators))
	for shell := range completionGenerators {
		shells = append(shells, shell)
	}
	sort.Strings(shells)
	return shells
}

func NewCompletionCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion <shell>",
		Short: "Print a shell completion script for appcfg",
		Long: `Print a completion script for bash, zsh, fish or powershell.

Completions cover subcommands and flags, so --import-file, --vault and the
other long options can be tab-completed.

Examples:
  source <(appcfg completion bash)
  appcfg completion zsh > "${fpath[1]}/_appcfg"
  appcfg completion fish > ~/.config/fish/completions/appcfg.fish`,
		DisableFlagsInUseLine: true,
		ValidArgs:             completionShells(),
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.Logger.Debug("Generating %s completion", args[0])
			return completionGenerators[args[0]](cmd.Root(), cmd.OutOrStdout())
		},
	}

	return cmd
}
