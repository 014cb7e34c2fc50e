// Command profilectl runs the profile ingestion stages against local files.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var noColor bool

var rootCmd = &cobra.Command{
	Use:           "profilectl",
	Short:         "Inspect and run profile ingestion stages locally",
	Long:          "profilectl extracts text from documents, asks the configured model for a profile fragment, merges fragments, previews ODT files, issues API tokens and applies database migrations.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			color.NoColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored status output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		failure(os.Stderr, "%v", err)
		os.Exit(1)
	}
}

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed, color.Bold)
	keyColor  = color.New(color.FgCyan)
)

func success(w io.Writer, format string, args ...any) {
	okColor.Fprint(w, "ok ")
	fmt.Fprintf(w, format+"\n", args...)
}

func warning(w io.Writer, format string, args ...any) {
	warnColor.Fprint(w, "warn ")
	fmt.Fprintf(w, format+"\n", args...)
}

func failure(w io.Writer, format string, args ...any) {
	errColor.Fprint(w, "error ")
	fmt.Fprintf(w, format+"\n", args...)
}

func field(w io.Writer, key string, value any) {
	keyColor.Fprintf(w, "  %s: ", key)
	fmt.Fprintf(w, "%v\n", value)
}
