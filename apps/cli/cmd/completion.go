package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for hitshell.

To load completions:

Bash:
  $ source <(hitshell completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ hitshell completion bash > /etc/bash_completion.d/hitshell
  # macOS:
  $ hitshell completion bash > $(brew --prefix)/etc/bash_completion.d/hitshell

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. Execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ hitshell completion zsh > "${fpath[1]}/_hitshell"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ hitshell completion fish | source

  # To load completions for each session, execute once:
  $ hitshell completion fish > ~/.config/fish/completions/hitshell.fish

PowerShell:
  PS> hitshell completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> hitshell completion powershell > hitshell.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			return cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			return cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
	functionsCmd.ValidArgsFunction = completeProviders
}

// completeProviders offers provider names for hitshell functions.
func completeProviders(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	sh, err := newShell(false)
	if err != nil {
		return nil, cobra.ShellCompDirectiveError
	}
	defer sh.Close()

	var names []string
	for _, name := range sh.registry.ProviderNames() {
		if strings.HasPrefix(name, toComplete) {
			names = append(names, name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
