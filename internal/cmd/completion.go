package cmd

import (
	"github.com/spf13/cobra"
)

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for hotswap.

To load completions:

Bash:
  $ source <(hotswap completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ hotswap completion bash > /etc/bash_completion.d/hotswap
  # macOS:
  $ hotswap completion bash > $(brew --prefix)/etc/bash_completion.d/hotswap

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it.  You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ hotswap completion zsh > "${fpath[1]}/_hotswap"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ hotswap completion fish > ~/.config/fish/completions/hotswap.fish

PowerShell:
  PS> hotswap completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}
