package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"profile-backend/internal/bootstrap"
	"profile-backend/internal/ingest"
	"profile-backend/internal/llm"
	"profile-backend/internal/shared/config"
)

var (
	parseKind    string
	parseMime    string
	parseShowRaw bool
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Extract a profile fragment from a document with the configured model",
	Long:  "parse runs extraction, one model call and at most one repair call, then prints the validated fragment as JSON. LLM_* environment variables select the provider.",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseKind, "kind", string(llm.KindDocument), "Input kind: document or biography")
	parseCmd.Flags().StringVar(&parseMime, "mime", "", "Declared MIME type (default: inferred from the file)")
	parseCmd.Flags().BoolVar(&parseShowRaw, "raw-on-failure", false, "Print the offending model output when validation fails")
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	kind, ok := llm.ParseKind(parseKind)
	if !ok {
		return fmt.Errorf("--kind must be document or biography")
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	cfg := config.Load()
	completer, err := bootstrap.BuildCompleter(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if closer, ok := completer.(io.Closer); ok {
		defer closer.Close()
	}
	pipeline := &ingest.Pipeline{Model: bootstrap.NewExtractor(completer, cfg)}

	in := ingest.Input{FileName: filepath.Base(path), MimeType: parseMime, Data: data, Kind: kind}
	if kind == llm.KindBiography {
		in.Data, in.Text = nil, string(data)
	}
	return printParse(cmd, pipeline, in)
}

func printParse(cmd *cobra.Command, pipeline *ingest.Pipeline, in ingest.Input) error {
	stderr := cmd.ErrOrStderr()
	out, err := pipeline.Parse(cmd.Context(), in)
	if err != nil {
		f := ingest.Classify(err)
		failure(stderr, "%s: %s", f.Code, f.Message)
		if parseShowRaw && f.Raw != "" {
			fmt.Fprintln(cmd.OutOrStdout(), f.Raw)
		}
		return err
	}

	success(stderr, "parsed %s", in.FileName)
	field(stderr, "mime", out.MimeType)
	field(stderr, "outcome", out.Outcome)
	if out.RepairAttempted {
		warning(stderr, "model output needed one repair")
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out.Fragment)
}
