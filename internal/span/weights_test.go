package span

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		weights Weights
		wantErr string
	}{
		{"defaults", Weights{Function: 0.4, Line: 0.3, Identifier: 0.2, Token: 0.1}, ""},
		{"unnormalized", Weights{Function: 4, Line: 3, Identifier: 2, Token: 1}, ""},
		{"single strategy", Weights{Line: 1}, ""},
		{"negative", Weights{Function: -0.1, Line: 1}, "negative"},
		{"all zero", Weights{}, "at least one"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWeightsDrawDistribution(t *testing.T) {
	t.Parallel()

	w := Weights{Function: 0.4, Line: 0.3, Identifier: 0.2, Token: 0.1}
	rng := rand.New(rand.NewPCG(1, 2))

	const n = 20000
	counts := map[Strategy]int{}
	for i := 0; i < n; i++ {
		s, ok := w.Draw(rng)
		require.True(t, ok)
		counts[s]++
	}

	assert.InDelta(t, 0.4, float64(counts[StrategyFunction])/n, 0.02)
	assert.InDelta(t, 0.3, float64(counts[StrategyLine])/n, 0.02)
	assert.InDelta(t, 0.2, float64(counts[StrategyIdentifier])/n, 0.02)
	assert.InDelta(t, 0.1, float64(counts[StrategyToken])/n, 0.02)
}

func TestWeightsDrawNeverPicksZeroWeight(t *testing.T) {
	t.Parallel()

	w := Weights{Line: 0.7}
	rng := rand.New(rand.NewPCG(3, 4))

	for i := 0; i < 1000; i++ {
		s, ok := w.Draw(rng)
		require.True(t, ok)
		assert.Equal(t, StrategyLine, s)
	}
}

func TestWeightsDrawRenormalizesAfterWithout(t *testing.T) {
	t.Parallel()

	w := Weights{Function: 0.4, Line: 0.3, Identifier: 0.2, Token: 0.1}.Without(StrategyFunction)
	rng := rand.New(rand.NewPCG(5, 6))

	const n = 20000
	counts := map[Strategy]int{}
	for i := 0; i < n; i++ {
		s, ok := w.Draw(rng)
		require.True(t, ok)
		counts[s]++
	}

	assert.Zero(t, counts[StrategyFunction])
	assert.InDelta(t, 0.5, float64(counts[StrategyLine])/n, 0.02)
	assert.InDelta(t, 1.0/3, float64(counts[StrategyIdentifier])/n, 0.02)
	assert.InDelta(t, 1.0/6, float64(counts[StrategyToken])/n, 0.02)
}

func TestWeightsDrawExhausted(t *testing.T) {
	t.Parallel()

	w := Weights{Token: 1}.Without(StrategyToken)
	rng := rand.New(rand.NewPCG(7, 8))

	_, ok := w.Draw(rng)
	assert.False(t, ok)
}

func TestWeightsWithout(t *testing.T) {
	t.Parallel()

	w := Weights{Function: 0.4, Line: 0.3, Identifier: 0.2, Token: 0.1}
	got := w.Without(StrategyIdentifier)

	assert.Zero(t, got.Identifier)
	assert.Equal(t, w.Function, got.Function)
	assert.Equal(t, w.Line, got.Line)
	assert.Equal(t, w.Token, got.Token)
	assert.InDelta(t, 0.8, got.Total(), 1e-9)
}
