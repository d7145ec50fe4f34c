package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpusforge/fimgen/internal/augment"
	"github.com/corpusforge/fimgen/internal/corpus"
)

var (
	augInput      string
	augOutput     string
	augMaxChanges int
	augLang       string
)

var augmentCmd = &cobra.Command{
	Use:   "augment",
	Short: "Rename declared variables to diversify a corpus",
	Long:  "Rewrites each record by renaming a few declared variables with random digit suffixes, updating every non-property occurrence. Records whose language has no parser pass through unchanged.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if augMaxChanges > 0 {
			cfg.Augment.MaxChanges = augMaxChanges
		}
		if err := cfg.Validate("augment"); err != nil {
			return err
		}

		lang := effectiveLang(augLang)
		ren := augment.NewRenamer(lang, cfg.Augment.MaxChanges)
		if !ren.Supported() {
			zap.L().Warn("no syntax backend for language, records pass through unchanged",
				zap.String("lang", lang),
			)
		}

		objects, readStats, err := corpus.ReadObjects(augInput)
		if err != nil {
			return err
		}

		changed := ren.Apply(objects, newRNG(effectiveSeed(cmd)))

		if err := writeObjects(augOutput, objects); err != nil {
			return err
		}

		zap.L().Info("augmentation complete",
			zap.String("output", augOutput),
			zap.Int("records", len(objects)),
			zap.Int("changed", changed),
			zap.Int("malformed", readStats.Malformed),
		)
		return nil
	},
}

func init() {
	augmentCmd.Flags().StringVar(&augInput, "input", "", "input JSONL corpus (required)")
	augmentCmd.Flags().StringVar(&augOutput, "output", "", "output JSONL path (required)")
	augmentCmd.Flags().IntVar(&augMaxChanges, "max-changes", 0, "max variables renamed per record (default from config)")
	augmentCmd.Flags().Uint64("seed", 0, "random seed (default from config)")
	augmentCmd.Flags().StringVar(&augLang, "lang", "", "language hint (default from config)")
	_ = augmentCmd.MarkFlagRequired("input")
	_ = augmentCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(augmentCmd)
}
