package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	buildCommit = "none"
	buildDate   = "unknown"
)

func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the hotswap version and build details.

Examples:
  hotswap version           # Version, commit, build date and platform
  hotswap version --short   # Version only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, hotswapVersion)
				return nil
			}
			fmt.Fprintf(out, "hotswap version %s\n", hotswapVersion)
			fmt.Fprintf(out, "  commit:   %s\n", buildCommit)
			fmt.Fprintf(out, "  built:    %s\n", buildDate)
			fmt.Fprintf(out, "  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
			return nil
		},
	}

	cmd.Flags().BoolVar(&short, "short", false, "Print the version number only")

	return cmd
}
