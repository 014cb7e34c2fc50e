package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"profile-backend/internal/odt"
)

var renderODTCmd = &cobra.Command{
	Use:   "render-odt <file>",
	Short: "Print the render tree of an ODT document as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		nodes, err := odt.Render(data)
		if err != nil {
			return err
		}
		success(cmd.ErrOrStderr(), "rendered %d top-level nodes", len(nodes))

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(nodes)
	},
}

func init() {
	rootCmd.AddCommand(renderODTCmd)
}
