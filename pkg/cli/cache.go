package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/torchstack/torchlink/pkg/download"
	"github.com/torchstack/torchlink/pkg/util/console"
)

var cacheCleanForce bool

func newCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and trim the download cache",
	}
	cmd.AddCommand(newCacheListCommand(), newCacheCleanCommand())
	return cmd
}

func newCacheListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "List the cached libtorch builds",
		Args:    cobra.NoArgs,
		Aliases: []string{"ls"},
		RunE:    cacheListCommand,
	}
}

func newCacheCleanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove every cached libtorch build",
		Args:  cobra.NoArgs,
		RunE:  cacheCleanCommand,
	}
	cmd.Flags().BoolVarP(&cacheCleanForce, "force", "f", false, "Remove without confirmation")
	return cmd
}

func cacheListCommand(cmd *cobra.Command, args []string) error {
	cacheDir, err := cacheDirFromEnvironment()
	if err != nil {
		return err
	}
	entries, err := download.Entries(cacheDir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		console.Info("The cache is empty.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tVARIANT\tABI\tSIZE\tDOWNLOADED")
	for _, entry := range entries {
		abi := "pre-cxx11"
		if entry.CXX11ABI {
			abi = "cxx11"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			entry.Version, entry.Variant, abi,
			formatSize(entry.Size), console.FormatTime(entry.ModTime))
	}
	return w.Flush()
}

func cacheCleanCommand(cmd *cobra.Command, args []string) error {
	cacheDir, err := cacheDirFromEnvironment()
	if err != nil {
		return err
	}
	entries, err := download.Entries(cacheDir)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		console.Info("The cache is already empty.")
		return nil
	}

	if !cacheCleanForce {
		var total int64
		for _, entry := range entries {
			total += entry.Size
		}
		confirmed, err := console.InteractiveBool{
			Prompt:         fmt.Sprintf("Remove %d cached build(s), freeing %s?", len(entries), formatSize(total)),
			Default:        false,
			NonDefaultFlag: "--force",
		}.Read()
		if err != nil {
			return err
		}
		if !confirmed {
			return nil
		}
	}

	if err := download.Clean(cacheDir); err != nil {
		return err
	}
	console.Infof("Removed %s", cacheDir)
	return nil
}

func cacheDirFromEnvironment() (string, error) {
	environment, err := loadEnvironment()
	if err != nil {
		return "", err
	}
	return download.CacheDir(environment)
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
