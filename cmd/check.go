package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpusforge/fimgen/internal/corpus"
	"github.com/corpusforge/fimgen/internal/dataset"
	"github.com/corpusforge/fimgen/internal/syntax"
)

var (
	checkInput   string
	checkOutDir  string
	checkMaxErrs int
	checkLang    string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Classify corpus records by syntax-error count",
	Long:  "Parses every record and splits the file into valid, minor_errors, and major_errors JSONL buckets. Records with no usable text land in the major bucket.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Flags().Changed("max-errors") {
			cfg.Check.MaxErrors = checkMaxErrs
		}
		if err := cfg.Validate("check"); err != nil {
			return err
		}

		lang := effectiveLang(checkLang)
		parser, ok := syntax.Lookup(lang)
		if !ok {
			return eris.Errorf("check: no syntax backend for language %q", lang)
		}

		objects, readStats, err := corpus.ReadObjects(checkInput)
		if err != nil {
			return err
		}

		res := dataset.Check(objects, parser, cfg.Check.MaxErrors)

		buckets := []struct {
			bucket  dataset.CheckBucket
			objects []map[string]any
		}{
			{dataset.BucketValid, res.Valid},
			{dataset.BucketMinor, res.Minor},
			{dataset.BucketMajor, res.Major},
		}
		for _, b := range buckets {
			path := dataset.BucketName(checkInput, b.bucket, checkOutDir)
			if err := writeObjects(path, b.objects); err != nil {
				return err
			}
		}

		zap.L().Info("syntax check complete",
			zap.String("input", checkInput),
			zap.Int("lines", readStats.Lines),
			zap.Int("malformed", readStats.Malformed),
			zap.Int("valid", len(res.Valid)),
			zap.Int("minor_errors", len(res.Minor)),
			zap.Int("major_errors", len(res.Major)),
		)
		return nil
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkInput, "input", "", "input JSONL corpus (required)")
	checkCmd.Flags().StringVar(&checkOutDir, "output-dir", "", "directory for bucket files (default next to input)")
	checkCmd.Flags().IntVar(&checkMaxErrs, "max-errors", 0, "max parse errors for the minor bucket (default from config)")
	checkCmd.Flags().StringVar(&checkLang, "lang", "", "language hint (default from config)")
	_ = checkCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(checkCmd)
}

// writeObjects writes one JSON object per line to path.
func writeObjects(path string, objects []map[string]any) error {
	w, err := corpus.NewWriter(path)
	if err != nil {
		return err
	}
	for _, obj := range objects {
		if err := w.WriteObject(obj); err != nil {
			_ = w.Close()
			return err
		}
	}
	return w.Close()
}
