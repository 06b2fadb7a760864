package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/adamancini/hotswap/internal/archive"
	"github.com/adamancini/hotswap/internal/output"
	"github.com/adamancini/hotswap/internal/safepath"
)

// inspectEntry is one archive entry and where it would be written.
type inspectEntry struct {
	archive.Entry `yaml:",inline"`
	Target        string `json:"target,omitempty" yaml:"target,omitempty"`
}

// inspectResult lists an archive's entries.
type inspectResult struct {
	File    string         `json:"file" yaml:"file"`
	Format  archive.Format `json:"format" yaml:"format"`
	Entries []inspectEntry `json:"entries" yaml:"entries"`
}

func (r inspectResult) String() string {
	var b strings.Builder
	var total int64
	fmt.Fprintf(&b, "%s (%s)\n", r.File, r.Format)
	for _, e := range r.Entries {
		if e.IsDir {
			fmt.Fprintf(&b, "  %10s  %s\n", "-", e.Name)
			continue
		}
		total += e.Size
		line := fmt.Sprintf("  %10s  %s", humanize.IBytes(uint64(e.Size)), e.Name)
		if e.Target != "" && e.Target != strings.TrimPrefix(e.Name, "./") {
			line += " -> " + e.Target
		}
		b.WriteString(line + "\n")
	}
	fmt.Fprintf(&b, "%d entries, %s", len(r.Entries), humanize.IBytes(uint64(total)))
	return b.String()
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <archive>",
		Short: "List the entries of an update archive",
		Long: `List the entries of an update archive (zip, 7z, tar, tar.gz or tar.zst)
without extracting it.

Entries whose names would escape the target root are shown with the path
they will actually be written to.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.OutOrStdout(), args[0])
		},
	}
}

func runInspect(w io.Writer, path string) error {
	format, err := output.ParseFormat(outputFormat)
	if err != nil {
		return err
	}

	arc, err := archive.Open(path)
	if err != nil {
		return err
	}
	defer arc.Close()

	entries, err := arc.Entries()
	if err != nil {
		return err
	}

	res := inspectResult{File: path, Format: arc.Format(), Entries: make([]inspectEntry, 0, len(entries))}
	for _, e := range entries {
		ie := inspectEntry{Entry: e}
		if !e.IsDir {
			ie.Target = filepath.ToSlash(safepath.Resolve(string(filepath.Separator), e.Name).Rel())
		}
		res.Entries = append(res.Entries, ie)
	}
	return output.NewWriter(w, format).Write(res)
}
