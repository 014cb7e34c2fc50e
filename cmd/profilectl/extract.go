package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"profile-backend/internal/extract"
)

var extractMime string

var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Extract plain text from a PDF, DOCX, TXT or MD file",
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

func init() {
	extractCmd.Flags().StringVar(&extractMime, "mime", "", "Declared MIME type (default: inferred from the file)")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	res, err := extract.ExtractTextFromBytes(cmd.Context(), data, extractMime, filepath.Base(path))
	if err != nil {
		return err
	}

	stderr := cmd.ErrOrStderr()
	success(stderr, "extracted %s", filepath.Base(path))
	field(stderr, "mime", res.MimeType)
	field(stderr, "chars", len(res.Text))
	if len(res.Text) == 0 {
		warning(stderr, "no text found")
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.Text)
	return nil
}
