package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpusforge/fimgen/internal/dataset"
)

var (
	mixInputs      []string
	mixPercent     float64
	mixMode        string
	mixOutDir      string
	mixOutExt      string
	mixConcurrency int
	mixLang        string
)

var mixCmd = &cobra.Command{
	Use:   "mix",
	Short: "Blend FIM conversions into training corpora",
	Long:  "Converts a percentage of records in each input file into FIM samples and writes a mixed output per input. Files are processed in parallel and each derives its seed from the run seed plus its basename, so batch results are reproducible regardless of order.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if cmd.Flags().Changed("fim-percent") {
			cfg.Mix.Percent = mixPercent
		}
		if mixMode != "" {
			cfg.Mix.Mode = mixMode
		}
		if mixOutExt != "" {
			cfg.Mix.OutExt = mixOutExt
		}
		if mixConcurrency > 0 {
			cfg.Mix.Concurrency = mixConcurrency
		}
		if err := cfg.Validate("mix"); err != nil {
			return err
		}

		mode, err := dataset.ParseMixMode(cfg.Mix.Mode)
		if err != nil {
			return err
		}

		sel, err := buildSelector(mixLang)
		if err != nil {
			return err
		}

		st, err := initManifest(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		eng := dataset.NewEngine(sel, st, effectiveSeed(cmd), cfg.Charset, cfg.Mix.Concurrency)
		stats, err := eng.RunMix(ctx, dataset.MixRequest{
			Inputs:  mixInputs,
			Percent: cfg.Mix.Percent,
			Mode:    mode,
			OutDir:  mixOutDir,
			OutExt:  cfg.Mix.OutExt,
		})
		if err != nil {
			return err
		}

		zap.L().Info("mix run written",
			zap.Int("inputs", len(mixInputs)),
			zap.Int("records_seen", stats.RecordsSeen),
			zap.Int("converted", stats.Converted),
			zap.Int("written", stats.Written),
		)
		return nil
	},
}

func init() {
	mixCmd.Flags().StringSliceVar(&mixInputs, "inputs", nil, "input JSONL corpus files (required)")
	mixCmd.Flags().Float64Var(&mixPercent, "fim-percent", 0, "percentage of records to convert (default from config)")
	mixCmd.Flags().StringVar(&mixMode, "mix-mode", "", "interleave or randomReplay (default from config)")
	mixCmd.Flags().StringVar(&mixOutDir, "output-dir", "", "directory for output files (default next to each input)")
	mixCmd.Flags().StringVar(&mixOutExt, "out-ext", "", "output file extension (default from config)")
	mixCmd.Flags().IntVar(&mixConcurrency, "concurrency", 0, "parallel input files (default from config)")
	mixCmd.Flags().Uint64("seed", 0, "random seed (default from config)")
	mixCmd.Flags().StringVar(&mixLang, "lang", "", "language hint (default from config)")
	_ = mixCmd.MarkFlagRequired("inputs")
	rootCmd.AddCommand(mixCmd)
}
