package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpusforge/fimgen/internal/analyze"
	"github.com/corpusforge/fimgen/internal/corpus"
)

var (
	anaInput  string
	anaSample int
	anaRanges []string
	anaReport string
	anaOutDir string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Estimate the token length distribution of a corpus",
	Long:  "Learns a chars-per-token ratio from the first records, estimates every record's token count, and prints the distribution. Requested token ranges are split out to side files, and an optional xlsx report captures the full result.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if anaSample > 0 {
			cfg.Analyze.SampleSize = anaSample
		}
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		ranges := make([]analyze.Range, 0, len(anaRanges))
		for _, s := range anaRanges {
			r, err := analyze.ParseRange(s)
			if err != nil {
				return err
			}
			ranges = append(ranges, r)
		}

		objects, readStats, err := corpus.ReadObjects(anaInput)
		if err != nil {
			return err
		}

		a := analyze.Run(objects, cfg.Analyze.SampleSize, ranges)

		for _, m := range a.Ranges {
			path := analyze.RangeFileName(anaInput, m.Range, anaOutDir)
			if err := writeObjects(path, m.Records); err != nil {
				return err
			}
			zap.L().Info("range file written",
				zap.String("path", path),
				zap.Int("records", len(m.Records)),
			)
		}

		if anaReport != "" {
			if err := analyze.WriteReport(anaReport, anaInput, a); err != nil {
				return err
			}
			zap.L().Info("report written", zap.String("path", anaReport))
		}

		if readStats.Malformed > 0 {
			zap.L().Warn("malformed lines dropped", zap.Int("count", readStats.Malformed))
		}

		formatAnalysis(os.Stdout, a)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&anaInput, "input", "", "input JSONL corpus (required)")
	analyzeCmd.Flags().IntVar(&anaSample, "sample", 0, "records to sample for the token ratio (default from config)")
	analyzeCmd.Flags().StringArrayVar(&anaRanges, "range", nil, "token range MIN-MAX to split into a side file (repeatable)")
	analyzeCmd.Flags().StringVar(&anaReport, "report", "", "write an xlsx report to this path")
	analyzeCmd.Flags().StringVar(&anaOutDir, "output-dir", "", "directory for range files (default next to input)")
	_ = analyzeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(analyzeCmd)
}

// formatAnalysis writes the human-readable summary and distribution.
func formatAnalysis(out io.Writer, a *analyze.Analysis) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Records:\t%d\n", a.Records)
	_, _ = fmt.Fprintf(w, "Empty texts:\t%d\n", a.EmptyTexts)
	_, _ = fmt.Fprintf(w, "Total chars:\t%d\n", a.TotalChars)
	_, _ = fmt.Fprintf(w, "Chars per token:\t%.2f (over %d sampled records)\n", a.CharsPerToken, a.SampleRecords)
	_, _ = fmt.Fprintf(w, "Tokens (est):\tmin %d  max %d  mean %.1f\n", a.MinTokens, a.MaxTokens, a.MeanTokens)
	_ = w.Flush()

	counted := a.Records - a.EmptyTexts
	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TOKENS (EST)\tRECORDS\tSHARE")
	_, _ = fmt.Fprintln(w, "------------\t-------\t-----")
	for _, b := range a.Buckets {
		share := 0.0
		if counted > 0 {
			share = float64(b.Count) / float64(counted) * 100
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%.1f%%\n", b.Label, b.Count, share)
	}
	_ = w.Flush()

	if len(a.Ranges) > 0 {
		_, _ = fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "RANGE\tRECORDS")
		_, _ = fmt.Fprintln(w, "-----\t-------")
		for _, m := range a.Ranges {
			_, _ = fmt.Fprintf(w, "%s\t%d\n", m.Range.Label(), len(m.Records))
		}
		_ = w.Flush()
	}
}
