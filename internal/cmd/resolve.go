package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/adamancini/hotswap/internal/safepath"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <base> <path>",
		Short: "Show where a path lands when confined to a base directory",
		Long: `Resolve an archive entry name against a base directory the way hotswap does
when extracting. The result is always inside base: parent references and
absolute prefixes are dropped rather than followed.`,
		Example: `  hotswap resolve /opt/demo '../../etc/passwd'    # /opt/demo/etc/passwd`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

func runResolve(w io.Writer, base, name string) error {
	_, err := fmt.Fprintln(w, safepath.Resolve(base, name).String())
	return err
}
