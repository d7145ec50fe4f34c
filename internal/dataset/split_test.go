package dataset

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func splitObjects(n int) []map[string]any {
	objs := make([]map[string]any, n)
	for i := range objs {
		objs[i] = map[string]any{"id": fmt.Sprintf("rec-%03d", i)}
	}
	return objs
}

func TestSplitRatiosValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, SplitRatios{Train: 0.9, Valid: 0.05, Test: 0.05}.Validate())
	assert.NoError(t, SplitRatios{Train: 1}.Validate())

	err := SplitRatios{Train: 1.1, Valid: -0.1}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "negative")

	err = SplitRatios{Train: 0.5, Valid: 0.2, Test: 0.2}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sum to 1")
}

func TestSplitCountsAndLabels(t *testing.T) {
	t.Parallel()

	sampled, counts := Split(splitObjects(100), testRNG(42), 0, SplitRatios{Train: 0.8, Valid: 0.1, Test: 0.1})
	require.Len(t, sampled, 100)
	assert.Equal(t, map[string]int{SplitTrain: 80, SplitValid: 10, SplitTest: 10}, counts)

	// Labels are assigned to contiguous ranges of the shuffled sample.
	for i, obj := range sampled {
		want := SplitTest
		switch {
		case i < 80:
			want = SplitTrain
		case i < 90:
			want = SplitValid
		}
		assert.Equal(t, want, obj["split"], "index %d", i)
	}
}

func TestSplitSampleSize(t *testing.T) {
	t.Parallel()

	sampled, counts := Split(splitObjects(100), testRNG(1), 10, SplitRatios{Train: 0.8, Valid: 0.1, Test: 0.1})
	require.Len(t, sampled, 10)
	assert.Equal(t, 8, counts[SplitTrain])
	assert.Equal(t, 1, counts[SplitValid])
	assert.Equal(t, 1, counts[SplitTest])

	// Oversized requests fall back to the whole input.
	sampled, _ = Split(splitObjects(5), testRNG(1), 50, SplitRatios{Train: 1})
	assert.Len(t, sampled, 5)
}

func TestSplitShareTruncation(t *testing.T) {
	t.Parallel()

	// 7 * 0.5 and 7 * 0.25 truncate, so test absorbs the remainder.
	_, counts := Split(splitObjects(7), testRNG(1), 0, SplitRatios{Train: 0.5, Valid: 0.25, Test: 0.25})
	assert.Equal(t, map[string]int{SplitTrain: 3, SplitValid: 1, SplitTest: 3}, counts)
}

func TestSplitDeterminism(t *testing.T) {
	t.Parallel()
	ratios := SplitRatios{Train: 0.8, Valid: 0.1, Test: 0.1}

	ids := func(objs []map[string]any) []string {
		out := make([]string, len(objs))
		for i, obj := range objs {
			out[i] = obj["id"].(string)
		}
		return out
	}

	first, _ := Split(splitObjects(50), testRNG(42), 20, ratios)
	second, _ := Split(splitObjects(50), testRNG(42), 20, ratios)
	assert.Equal(t, ids(first), ids(second))

	other, _ := Split(splitObjects(50), testRNG(7), 20, ratios)
	assert.NotEqual(t, ids(first), ids(other))
}
