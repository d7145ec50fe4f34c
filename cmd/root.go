package main

import (
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corpusforge/fimgen/internal/config"
	"github.com/corpusforge/fimgen/internal/span"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "fimgen",
	Short: "Fill-in-the-middle pretraining data toolkit",
	Long:  "Builds FIM eval and training datasets from JSONL code corpora: weighted span selection, seeded deterministic mixing, syntax gating, identifier augmentation, and run manifests.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

// rngStream is the fixed second PCG seed word. Commands that shuffle or
// sample locally use the same stream as the dataset engine, so a given
// seed means the same thing everywhere.
const rngStream = 0x66696d67656e

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, rngStream))
}

// effectiveSeed returns the --seed flag when the caller set it, the
// configured seed otherwise. Zero is a legitimate seed, so flag presence
// is checked rather than the value.
func effectiveSeed(cmd *cobra.Command) uint64 {
	if cmd.Flags().Changed("seed") {
		v, _ := cmd.Flags().GetUint64("seed")
		return v
	}
	return cfg.Seed
}

// buildSelector assembles the span selector for one run. The --lang
// override lands before the policy lookup so per-language weights key
// off the language actually in effect.
func buildSelector(lang string) (*span.Selector, error) {
	sc := cfg.Span
	if lang != "" {
		sc.Language = lang
	}
	if cfg.Policy != "" {
		pol, err := span.LoadPolicy(cfg.Policy)
		if err != nil {
			return nil, err
		}
		sc = pol.Apply(sc)
	}
	return span.NewSelector(sc)
}

// effectiveLang resolves the language hint for commands that consult the
// syntax registry directly.
func effectiveLang(lang string) string {
	if lang != "" {
		return lang
	}
	return cfg.Span.Language
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
