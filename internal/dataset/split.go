package dataset

import (
	"math"
	"math/rand/v2"

	"github.com/rotisserie/eris"
)

// Split labels.
const (
	SplitTrain = "train"
	SplitValid = "valid"
	SplitTest  = "test"
)

// SplitRatios apportions a sampled record set into train, valid, and
// test shares. The three ratios must sum to one.
type SplitRatios struct {
	Train float64 `yaml:"train" mapstructure:"train"`
	Valid float64 `yaml:"valid" mapstructure:"valid"`
	Test  float64 `yaml:"test" mapstructure:"test"`
}

// Validate rejects negative ratios and sums away from one.
func (r SplitRatios) Validate() error {
	if r.Train < 0 || r.Valid < 0 || r.Test < 0 {
		return eris.New("split ratios must not be negative")
	}
	if math.Abs(r.Train+r.Valid+r.Test-1) > 1e-6 {
		return eris.Errorf("split ratios must sum to 1, got %g", r.Train+r.Valid+r.Test)
	}
	return nil
}

// Split samples size records uniformly (everything when size is zero
// or exceeds the input), then assigns split labels to contiguous
// ranges of the shuffled sample: train first, then valid, then test.
// Each returned object carries a "split" field; counts reports the
// size of each share.
func Split(objects []map[string]any, rng *rand.Rand, size int, ratios SplitRatios) ([]map[string]any, map[string]int) {
	sampled := make([]map[string]any, len(objects))
	copy(sampled, objects)
	rng.Shuffle(len(sampled), func(a, b int) { sampled[a], sampled[b] = sampled[b], sampled[a] })

	if size <= 0 || size > len(sampled) {
		size = len(sampled)
	}
	sampled = sampled[:size]

	nTrain := int(float64(size) * ratios.Train)
	nValid := int(float64(size) * ratios.Valid)

	counts := map[string]int{SplitTrain: 0, SplitValid: 0, SplitTest: 0}
	for i, obj := range sampled {
		label := SplitTest
		switch {
		case i < nTrain:
			label = SplitTrain
		case i < nTrain+nValid:
			label = SplitValid
		}
		obj["split"] = label
		counts[label]++
	}
	return sampled, counts
}
