package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/adamancini/hotswap/internal/logging"
)

var (
	// Global flags
	outputFormat string
	logLevel     string
	logFile      string
	quiet        bool

	hotswapVersion = "dev"
	logCloser      io.Closer
)

// Execute builds the command tree and runs it.
func Execute(version, commit, date string) error {
	hotswapVersion = version
	buildCommit, buildDate = commit, date

	defer closeLog()
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	flags := &updateFlags{}

	rootCmd := &cobra.Command{
		Use:   "hotswap",
		Short: "Replace a running application's files with a new release",
		Long: `hotswap updates an installed application in place.

It downloads the update archive (or takes a local one), verifies it against an
expected hash, stops the running application, extracts the archive into the
application's root directory and starts the application again.

Settings not given on the command line are read from hotswap.toml (or .yaml,
.yml, .json) next to the hotswap executable, or from the file named by
--config or $HOTSWAP_CONFIG.`,
		Example: `  hotswap --process demo --url https://example.com/demo-2.0.zip --hash 9e107d9d372bb6826bd81d3542a419d6 --launch demo.exe
  hotswap --local-src ./demo-2.0.7z --mode delete-all --root-path ./app`,
		Version:       hotswapVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			closer, err := logging.Init(logLevel, logFile)
			if err != nil {
				return err
			}
			logCloser = closer
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			flags.changed = cmd.Flags().Changed
			return runUpdate(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), flags)
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "Output format: text, json, yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", logging.DefaultLevel, "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", logging.Console, "Log file path, or console for standard error")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (no progress display)")

	flags.register(rootCmd)

	// Add subcommands
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())
	rootCmd.AddCommand(newHashCmd())
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newResolveCmd())

	// Register completion function for output flag
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"text", "json", "yaml"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = rootCmd.RegisterFlagCompletionFunc("mode", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"overwrite", "delete-all"}, cobra.ShellCompDirectiveNoFileComp
	})

	return rootCmd
}

func closeLog() {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}
