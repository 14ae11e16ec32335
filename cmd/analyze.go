package main

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/readiness-cli/internal/analyzer"
	"github.com/sells-group/readiness-cli/internal/ingest"
	"github.com/sells-group/readiness-cli/internal/model"
)

type analyzeOptions struct {
	Country       string
	ERP           string
	Questionnaire model.Questionnaire
}

var analyzeOpts analyzeOptions

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze an invoice export and print the readiness report",
	Long:  "Parses a JSON, CSV or XLSX invoice export (use - for stdin), scores it and prints the report as JSON. Nothing is stored.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}
		return runAnalyze(cmd, args[0], analyzeOpts)
	},
}

func runAnalyze(cmd *cobra.Command, path string, opts analyzeOptions) error {
	body, err := readInput(cmd.InOrStdin(), path)
	if err != nil {
		return err
	}

	name := path
	if path == "-" {
		name = ""
	}
	res, err := ingest.Parse(ingest.DetectFormat(filepath.Base(name), "", body), body, cfg.Ingest.MaxRows)
	if err != nil {
		return eris.Wrapf(err, "parse %s", path)
	}
	zap.L().Debug("parsed upload",
		zap.String("format", string(res.Format)),
		zap.Int("rows", res.RowsParsed),
		zap.Int("total_rows", res.TotalRows),
	)

	s, err := loadSchema()
	if err != nil {
		return err
	}
	report, err := newAnalyzer(s, "").Analyze(cmd.Context(), analyzer.Input{
		Records:       res.Records,
		RowsParsed:    res.RowsParsed,
		TotalRows:     res.TotalRows,
		Questionnaire: opts.Questionnaire,
		Country:       opts.Country,
		ERP:           opts.ERP,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(report), "write report")
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		body, err := io.ReadAll(stdin)
		return body, eris.Wrap(err, "read stdin")
	}
	body, err := os.ReadFile(path)
	return body, eris.Wrapf(err, "read %s", path)
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeOpts.Country, "country", "", "country code recorded in report metadata")
	f.StringVar(&analyzeOpts.ERP, "erp", "", "source ERP recorded in report metadata")
	f.BoolVar(&analyzeOpts.Questionnaire.Webhooks, "webhooks", false, "integration supports webhooks")
	f.BoolVar(&analyzeOpts.Questionnaire.SandboxEnv, "sandbox-env", false, "integration has a sandbox environment")
	f.BoolVar(&analyzeOpts.Questionnaire.Retries, "retries", false, "integration retries failed submissions")
	rootCmd.AddCommand(analyzeCmd)
}
