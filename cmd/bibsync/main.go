// Package main provides the bibsync CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "bibsync",
	Short: "Reconcile a BibTeX file against DBLP",
	Long: `bibsync reconciles a local BibTeX bibliography against DBLP.

For each entry it searches DBLP by title, fetches the canonical BibTeX
record of the top hit, and writes it to the output file under the
original citation key. Entries that cannot be resolved are kept
unchanged and their keys are listed in a failed-keys file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Version = Version
}
