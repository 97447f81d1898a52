package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/ingest"
)

type scoreResult struct {
	File      string                        `json:"file" yaml:"file"`
	Breakdown ingest.ScoreBreakdown         `json:"quality" yaml:"quality"`
	Schema    ingest.SchemaValidationResult `json:"schema" yaml:"schema"`
}

func newScoreCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "score FILE",
		Short: "Print how a file's quality score is made up",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			content, err := os.ReadFile(path)
			if err != nil {
				return err
			}

			proc := ingest.NewProcessor(opts.ingestConfig(), ingest.WithLogger(opts.logger))
			bundle, err := proc.Process(cmd.Context(), content, filepath.Base(path))
			if err != nil {
				return fmt.Errorf("processing %s: %w", path, err)
			}

			return opts.encode(cmd.OutOrStdout(), scoreResult{
				File:      path,
				Breakdown: ingest.AnalyzeQuality(bundle.Table),
				Schema:    bundle.Schema,
			})
		},
	}
}
