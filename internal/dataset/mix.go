package dataset

import (
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/corpusforge/fimgen/internal/corpus"
	"github.com/corpusforge/fimgen/internal/fim"
	"github.com/corpusforge/fimgen/internal/span"
)

// MixMode selects how originals and converted examples are ordered in
// a mixed output file.
type MixMode string

const (
	// MixInterleave scatters FIM examples proportionally through the
	// originals so the FIM ratio stays steady across the file.
	MixInterleave MixMode = "interleave"
	// MixRandomReplay shuffles originals and FIM examples together.
	MixRandomReplay MixMode = "randomReplay"
)

// ParseMixMode resolves a mode name, ignoring case and separator style
// so flag spellings like random-replay work.
func ParseMixMode(s string) (MixMode, error) {
	norm := strings.NewReplacer("-", "", "_", "").Replace(s)
	for _, m := range []MixMode{MixInterleave, MixRandomReplay} {
		if strings.EqualFold(norm, string(m)) {
			return m, nil
		}
	}
	return "", eris.Errorf("unknown mix mode %q (want interleave or randomReplay)", s)
}

// Mix converts approximately percent% of records to FIM examples and
// merges them with the originals. Every record's base text survives as
// a pass-through line whether or not it was chosen, so the output is a
// superset of the input.
func Mix(records []corpus.Record, sel *span.Selector, rng *rand.Rand, percent float64, mode MixMode) ([]string, *Stats) {
	stats := NewStats()
	stats.RecordsSeen = len(records)

	n := len(records)
	k := int(math.Round(percent / 100 * float64(n)))
	if k > n {
		k = n
	}
	if k < 0 {
		k = 0
	}

	minAttempt := sel.Config().MinLen + convertHeadroom

	var fimPool []string
	for _, i := range chooseIndices(rng, n, k) {
		for _, text := range []string{records[i].Base, records[i].Aux} {
			if text == "" {
				continue
			}
			if len(text) < minAttempt {
				stats.Skipped++
				continue
			}
			fimPool = appendConversion(fimPool, text, sel, rng, stats)
		}
	}

	originals := make([]string, 0, n)
	for _, rec := range records {
		if rec.Base != "" {
			originals = append(originals, rec.Base)
		}
	}

	var out []string
	switch mode {
	case MixRandomReplay:
		out = append(out, originals...)
		out = append(out, fimPool...)
		rng.Shuffle(len(out), func(a, b int) { out[a], out[b] = out[b], out[a] })
	default:
		out = interleave(fimPool, originals)
	}
	stats.Written = len(out)
	return out, stats
}

// appendConversion attempts one text conversion, recording the outcome
// either way. Selector failures just skip this conversion; the record
// itself survives through the originals.
func appendConversion(pool []string, text string, sel *span.Selector, rng *rand.Rand, stats *Stats) []string {
	sp, ok := sel.Pick(text, rng)
	if !ok {
		stats.Failed++
		return pool
	}
	stats.CountSpan(sp.Strategy)
	return append(pool, fim.Build(text, sp.Start, sp.End).Tagged())
}

// chooseIndices picks k distinct indices from [0, n) with a partial
// Fisher-Yates pass, then sorts them so conversions visit records in
// file order. The chosen set is a pure function of the rng state.
func chooseIndices(rng *rand.Rand, n, k int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	chosen := idx[:k]
	sort.Ints(chosen)
	return chosen
}

// interleave merges the FIM pool into the originals so the running
// share of FIM lines tracks the overall ratio within one item at any
// prefix of the output.
func interleave(fimPool, originals []string) []string {
	if len(fimPool) == 0 {
		return originals
	}
	if len(originals) == 0 {
		return fimPool
	}

	out := make([]string, 0, len(fimPool)+len(originals))
	i, j := 0, 0
	for i < len(fimPool) || j < len(originals) {
		progF := float64(i) / float64(len(fimPool))
		progO := float64(j) / float64(len(originals))
		if i < len(fimPool) && (progF <= progO || j >= len(originals)) {
			out = append(out, fimPool[i])
			i++
		} else {
			out = append(out, originals[j])
			j++
		}
	}
	return out
}
