// Package cli implements the carsales command, which runs the ingestion
// pipeline on local files without the HTTP service or a database.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/ingest"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/logging"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	format     string
	logLevel   string
	maxSize    int64
	maxRecords int
	lenient    bool

	logger *slog.Logger
}

// ingestConfig builds the pipeline limits from the flags.
func (o *options) ingestConfig() ingest.Config {
	cfg := ingest.DefaultConfig()
	if o.maxSize > 0 {
		cfg.MaxFileSizeBytes = o.maxSize
	}
	if o.maxRecords > 0 {
		cfg.MaxRecords = o.maxRecords
	}
	cfg.StrictValidation = !o.lenient
	return cfg
}

// NewRootCmd returns the carsales command tree. Logs go to errOut so that
// stdout carries only the requested output.
func NewRootCmd(errOut io.Writer) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "carsales",
		Short: "Validate, clean and score car-sales datasets",
		Long: `carsales runs the dataset pipeline on local CSV, Excel and JSON files:
validation, parsing, cleaning, metadata, preview, quality score and the
car-sales schema check. Nothing is stored or published.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.format {
			case "json", "yaml":
			default:
				return fmt.Errorf("unknown format: %s (supported: json, yaml)", opts.format)
			}
			opts.logger = logging.New(errOut, opts.logLevel, "text")
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.format, "format", "json", "output format: json or yaml")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn or error")
	pf.Int64Var(&opts.maxSize, "max-size", 0, "maximum file size in bytes (default 50MiB)")
	pf.IntVar(&opts.maxRecords, "max-records", 0, "truncate tables to this many rows (default 1000000)")
	pf.BoolVar(&opts.lenient, "lenient", false, "skip the CSV header and delimiter check")

	root.AddCommand(newProcessCmd(opts), newValidateCmd(opts), newScoreCmd(opts))
	return root
}

// encode writes v in the selected format.
func (o *options) encode(w io.Writer, v any) error {
	if o.format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
