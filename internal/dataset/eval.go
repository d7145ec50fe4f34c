package dataset

import (
	"math/rand/v2"

	"github.com/corpusforge/fimgen/internal/corpus"
	"github.com/corpusforge/fimgen/internal/fim"
	"github.com/corpusforge/fimgen/internal/span"
)

// convertHeadroom is the extra length a text must clear beyond the
// minimum span size before conversion is worth attempting. Too short
// a text leaves no room for both a middle and its context.
const convertHeadroom = 10

// BuildEval converts records into an FIM-only evaluation set. Each
// record gets the aux text when present, one selector attempt cycle,
// and is dropped on failure; originals are never passed through.
// Processing stops once samplesCap examples exist; a cap of zero means
// unlimited.
func BuildEval(records []corpus.Record, sel *span.Selector, rng *rand.Rand, samplesCap int) ([]string, *Stats) {
	stats := NewStats()
	minLen := sel.Config().MinLen

	var out []string
	for _, rec := range records {
		if samplesCap > 0 && len(out) >= samplesCap {
			break
		}
		stats.RecordsSeen++

		text := rec.EvalText()
		if len(text) < minLen+convertHeadroom {
			stats.Skipped++
			continue
		}
		sp, ok := sel.Pick(text, rng)
		if !ok {
			stats.Failed++
			continue
		}
		stats.CountSpan(sp.Strategy)
		out = append(out, fim.Build(text, sp.Start, sp.End).Tagged())
	}
	stats.Written = len(out)
	return out, stats
}
