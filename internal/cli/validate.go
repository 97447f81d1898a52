package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/ingest"
)

type validateResult struct {
	File string `json:"file" yaml:"file"`

	ingest.ValidationResult `yaml:",inline"`
}

func newValidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check files against the size, type and format rules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.ingestConfig()
			results := make([]validateResult, 0, len(args))
			invalid := 0
			for _, path := range args {
				res := validateResult{File: path}
				content, err := os.ReadFile(path)
				if err != nil {
					res.ValidationResult = ingest.ValidationResult{Errors: []string{err.Error()}, Warnings: []string{}}
				} else {
					res.ValidationResult = ingest.ValidateFile(content, filepath.Base(path), cfg)
				}
				if !res.Valid {
					invalid++
				}
				results = append(results, res)
			}

			if err := opts.encode(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			if invalid > 0 {
				return fmt.Errorf("%d of %d files failed validation", invalid, len(args))
			}
			return nil
		},
	}
}
