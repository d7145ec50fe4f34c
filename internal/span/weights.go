package span

import (
	"math/rand/v2"

	"github.com/rotisserie/eris"
)

// Weights holds the relative draw weight of each strategy. Weights
// need not sum to one; draws normalize over the current total, which
// is what redistributes mass when a strategy drops out.
type Weights struct {
	Function   float64 `yaml:"function" mapstructure:"function"`
	Line       float64 `yaml:"line" mapstructure:"line"`
	Identifier float64 `yaml:"identifier" mapstructure:"identifier"`
	Token      float64 `yaml:"token" mapstructure:"token"`
}

// Total returns the weight mass currently in play.
func (w Weights) Total() float64 {
	return w.Function + w.Line + w.Identifier + w.Token
}

// Validate rejects negative weights and an all-zero distribution.
func (w Weights) Validate() error {
	for _, v := range []float64{w.Function, w.Line, w.Identifier, w.Token} {
		if v < 0 {
			return eris.New("strategy weights must not be negative")
		}
	}
	if w.Total() <= 0 {
		return eris.New("at least one strategy weight must be positive")
	}
	return nil
}

// Without zeroes one strategy's weight, leaving the rest untouched.
func (w Weights) Without(s Strategy) Weights {
	switch s {
	case StrategyFunction:
		w.Function = 0
	case StrategyLine:
		w.Line = 0
	case StrategyIdentifier:
		w.Identifier = 0
	case StrategyToken:
		w.Token = 0
	}
	return w
}

// Get returns the weight for one strategy.
func (w Weights) Get(s Strategy) float64 {
	switch s {
	case StrategyFunction:
		return w.Function
	case StrategyLine:
		return w.Line
	case StrategyIdentifier:
		return w.Identifier
	case StrategyToken:
		return w.Token
	}
	return 0
}

// Draw samples a strategy proportionally to the current weights using
// a single rng draw. It reports false when no weight mass remains.
func (w Weights) Draw(rng *rand.Rand) (Strategy, bool) {
	total := w.Total()
	if total <= 0 {
		return "", false
	}
	r := rng.Float64() * total

	acc := 0.0
	var last Strategy
	for _, s := range Strategies {
		v := w.Get(s)
		if v <= 0 {
			continue
		}
		last = s
		acc += v
		if r <= acc {
			return s, true
		}
	}
	return last, true
}
