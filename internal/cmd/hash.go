package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/adamancini/hotswap/internal/checksum"
	"github.com/adamancini/hotswap/internal/output"
	"github.com/adamancini/hotswap/internal/types"
)

// hashResult is the hash command's report.
type hashResult struct {
	File   string `json:"file" yaml:"file"`
	MD5    string `json:"md5" yaml:"md5"`
	SHA256 string `json:"sha256" yaml:"sha256"`
}

func (h hashResult) String() string {
	return fmt.Sprintf("%s\n  md5:    %s\n  sha256: %s", h.File, h.MD5, h.SHA256)
}

func newHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash <file>...",
		Short: "Print the MD5 and SHA-256 of update archives",
		Long: `Print the digests hotswap accepts for --hash.

Publish one of them next to the archive's download URL so clients can
verify what they downloaded.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHash(cmd.OutOrStdout(), args)
		},
	}
}

func runHash(w io.Writer, files []string) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}
	out := output.NewWriter(w, format)

	for _, file := range files {
		sums, err := checksum.Sums(file)
		if err != nil {
			return err
		}
		if err := out.Write(hashResult{
			File:   file,
			MD5:    sums[types.HashMD5],
			SHA256: sums[types.HashSHA256],
		}); err != nil {
			return err
		}
	}
	return nil
}
