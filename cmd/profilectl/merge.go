package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"profile-backend/internal/profile"
)

var mergeDedupe bool

var mergeCmd = &cobra.Command{
	Use:   "merge <existing.json> <incoming.json>",
	Short: "Merge an incoming profile fragment into an existing one",
	Args:  cobra.ExactArgs(2),
	RunE:  runMerge,
}

func init() {
	mergeCmd.Flags().BoolVar(&mergeDedupe, "dedupe", false, "Drop incoming job and education entries that already exist")
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	existing, err := readFragment(args[0])
	if err != nil {
		return err
	}
	incoming, err := readFragment(args[1])
	if err != nil {
		return err
	}

	opts := profile.Options{Entries: profile.StrategyConcat}
	if mergeDedupe {
		opts.Entries = profile.StrategyDedupe
	}
	merged := profile.MergeWith(existing, incoming, opts)
	profile.AssignIDs(&merged)

	stderr := cmd.ErrOrStderr()
	success(stderr, "merged %s into %s", args[1], args[0])
	field(stderr, "skills", len(merged.Skills))
	field(stderr, "jobHistory", len(merged.JobHistory))
	field(stderr, "education", len(merged.Education))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(merged)
}

func readFragment(path string) (profile.Fragment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return profile.Fragment{}, fmt.Errorf("read %s: %w", path, err)
	}
	var f profile.Fragment
	if err := json.Unmarshal(data, &f); err != nil {
		return profile.Fragment{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return f, nil
}
