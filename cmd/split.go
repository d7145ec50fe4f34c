package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpusforge/fimgen/internal/corpus"
	"github.com/corpusforge/fimgen/internal/dataset"
)

var (
	splitInput    string
	splitOutput   string
	splitSize     int
	splitTrain    float64
	splitValid    float64
	splitTest     float64
	splitSeparate bool
)

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Sample a corpus and assign train/valid/test labels",
	Long:  "Shuffles the corpus with the run seed, keeps up to --size records, and labels contiguous shares as train, valid, and test. Writes one combined file with a split field, and optionally one file per share.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cmd.Flags().Changed("size") {
			cfg.Split.Size = splitSize
		}
		if cmd.Flags().Changed("train") {
			cfg.Split.Ratios.Train = splitTrain
		}
		if cmd.Flags().Changed("valid") {
			cfg.Split.Ratios.Valid = splitValid
		}
		if cmd.Flags().Changed("test") {
			cfg.Split.Ratios.Test = splitTest
		}
		if err := cfg.Validate("split"); err != nil {
			return err
		}

		objects, readStats, err := corpus.ReadObjects(splitInput)
		if err != nil {
			return err
		}

		sampled, counts := dataset.Split(objects, newRNG(effectiveSeed(cmd)), cfg.Split.Size, cfg.Split.Ratios)

		output := splitOutput
		if output == "" {
			output = splitFileName(splitInput, splitInput, "split")
		}
		if err := writeObjects(output, sampled); err != nil {
			return err
		}

		if splitSeparate {
			byLabel := map[string][]map[string]any{}
			for _, obj := range sampled {
				label, _ := obj["split"].(string)
				byLabel[label] = append(byLabel[label], obj)
			}
			for _, label := range []string{dataset.SplitTrain, dataset.SplitValid, dataset.SplitTest} {
				path := splitFileName(splitInput, output, label)
				if err := writeObjects(path, byLabel[label]); err != nil {
					return err
				}
			}
		}

		zap.L().Info("split written",
			zap.String("output", output),
			zap.Int("lines", readStats.Lines),
			zap.Int("sampled", len(sampled)),
			zap.Int("train", counts[dataset.SplitTrain]),
			zap.Int("valid", counts[dataset.SplitValid]),
			zap.Int("test", counts[dataset.SplitTest]),
		)
		return nil
	},
}

func init() {
	splitCmd.Flags().StringVar(&splitInput, "input", "", "input JSONL corpus (required)")
	splitCmd.Flags().StringVar(&splitOutput, "output", "", "combined output path (default <input>_split)")
	splitCmd.Flags().IntVar(&splitSize, "size", 0, "records to keep, 0 for all (default from config)")
	splitCmd.Flags().Float64Var(&splitTrain, "train", 0, "train share (default from config)")
	splitCmd.Flags().Float64Var(&splitValid, "valid", 0, "valid share (default from config)")
	splitCmd.Flags().Float64Var(&splitTest, "test", 0, "test share (default from config)")
	splitCmd.Flags().Uint64("seed", 0, "random seed (default from config)")
	splitCmd.Flags().BoolVar(&splitSeparate, "separate", false, "also write one file per share")
	_ = splitCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(splitCmd)
}

// splitFileName places a labeled sibling of input in ref's directory:
// data.jsonl with label train becomes data_train.jsonl.
func splitFileName(input, ref, label string) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(filepath.Base(input), ext)
	return filepath.Join(filepath.Dir(ref), fmt.Sprintf("%s_%s%s", stem, label, ext))
}
