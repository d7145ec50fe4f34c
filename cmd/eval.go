package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpusforge/fimgen/internal/dataset"
)

var (
	evalInput   string
	evalOutput  string
	evalSamples int
	evalLang    string
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Build a FIM-only eval dataset from one corpus file",
	Long:  "Reads a JSONL corpus, converts every record that yields a valid span into a FIM sample, and writes them to the output file. Stops once the sample cap is reached.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if evalSamples > 0 {
			cfg.Eval.SamplesCap = evalSamples
		}
		if err := cfg.Validate("eval"); err != nil {
			return err
		}

		sel, err := buildSelector(evalLang)
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

		eng := dataset.NewEngine(sel, st, effectiveSeed(cmd), cfg.Charset, 1)
		stats, err := eng.RunEval(ctx, dataset.EvalRequest{
			Input:      evalInput,
			Output:     evalOutput,
			SamplesCap: cfg.Eval.SamplesCap,
		})
		if err != nil {
			return err
		}

		zap.L().Info("eval dataset written",
			zap.String("output", evalOutput),
			zap.Int("records", stats.Written),
			zap.Int("failed", stats.Failed),
		)
		return nil
	},
}

func init() {
	evalCmd.Flags().StringVar(&evalInput, "input", "", "input JSONL corpus (required)")
	evalCmd.Flags().StringVar(&evalOutput, "output", "", "output JSONL path (required)")
	evalCmd.Flags().IntVar(&evalSamples, "samples", 0, "max FIM samples to emit (default from config)")
	evalCmd.Flags().Uint64("seed", 0, "random seed (default from config)")
	evalCmd.Flags().StringVar(&evalLang, "lang", "", "language hint (default from config)")
	_ = evalCmd.MarkFlagRequired("input")
	_ = evalCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(evalCmd)
}
