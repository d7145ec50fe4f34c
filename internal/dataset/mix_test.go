package dataset

import (
	"fmt"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpusforge/fimgen/internal/corpus"
)

const tagPrefix = "<|fim_prefix|>"

func countTagged(lines []string) int {
	n := 0
	for _, line := range lines {
		if strings.HasPrefix(line, tagPrefix) {
			n++
		}
	}
	return n
}

func TestChooseIndices(t *testing.T) {
	t.Parallel()

	chosen := chooseIndices(testRNG(42), 10, 2)
	require.Len(t, chosen, 2)
	assert.True(t, sort.IntsAreSorted(chosen))
	assert.NotEqual(t, chosen[0], chosen[1])
	for _, i := range chosen {
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 10)
	}

	again := chooseIndices(testRNG(42), 10, 2)
	assert.Equal(t, chosen, again)

	all := chooseIndices(testRNG(1), 5, 5)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, all)

	none := chooseIndices(testRNG(1), 5, 0)
	assert.Empty(t, none)
}

func TestMixSelectsTwentyPercent(t *testing.T) {
	t.Parallel()
	sel := lineSelector(t, 10, 200)
	recs := singleLineRecords(10)

	out, stats := Mix(recs, sel, testRNG(42), 20, MixInterleave)
	assert.Equal(t, 2, stats.Converted)
	assert.Equal(t, 2, countTagged(out))
	assert.Len(t, out, 12)

	// Same seed reproduces the identical output, index choice included.
	again, _ := Mix(recs, sel, testRNG(42), 20, MixInterleave)
	assert.Equal(t, out, again)
}

func TestMixConservation(t *testing.T) {
	t.Parallel()
	sel := lineSelector(t, 10, 200)
	recs := singleLineRecords(8)

	for _, mode := range []MixMode{MixInterleave, MixRandomReplay} {
		out, stats := Mix(recs, sel, testRNG(3), 50, mode)

		assert.Len(t, out, 8+stats.Converted, "mode %s", mode)
		assert.Equal(t, stats.Converted, countTagged(out), "mode %s", mode)

		// Every original survives exactly once, untouched.
		for _, rec := range recs {
			n := 0
			for _, line := range out {
				if line == rec.Base {
					n++
				}
			}
			assert.Equal(t, 1, n, "mode %s original %q", mode, rec.Base)
		}
	}
}

func TestMixAuxConvertsIndependently(t *testing.T) {
	t.Parallel()
	sel := lineSelector(t, 10, 200)

	recs := make([]corpus.Record, 3)
	for i := range recs {
		recs[i] = corpus.Record{
			Base: fmt.Sprintf("base record %02d padded to enough length", i),
			Aux:  fmt.Sprintf("aux record %02d padded to enough length", i),
		}
	}

	out, stats := Mix(recs, sel, testRNG(5), 100, MixInterleave)
	assert.Equal(t, 6, stats.Converted)
	assert.Equal(t, 6, countTagged(out))
	assert.Len(t, out, 9)

	var baseFIM, auxFIM int
	for _, line := range out {
		if !strings.HasPrefix(line, tagPrefix) {
			continue
		}
		if strings.Contains(line, "base record") {
			baseFIM++
		}
		if strings.Contains(line, "aux record") {
			auxFIM++
		}
	}
	assert.Equal(t, 3, baseFIM)
	assert.Equal(t, 3, auxFIM)
}

func TestMixFailuresKeepOriginals(t *testing.T) {
	t.Parallel()
	sel := lineSelector(t, 10, 200)

	// Two below the attempt threshold, one attemptable but blank.
	blank := strings.Repeat(" ", 30)
	recs := []corpus.Record{{Base: "tiny"}, {Base: "also tiny"}, {Base: blank}}
	out, stats := Mix(recs, sel, testRNG(1), 100, MixInterleave)

	assert.Equal(t, []string{"tiny", "also tiny", blank}, out)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Converted)
	assert.Equal(t, 3, stats.Written)
}

func TestMixPercentBounds(t *testing.T) {
	t.Parallel()
	sel := lineSelector(t, 10, 200)
	recs := singleLineRecords(4)

	out, stats := Mix(recs, sel, testRNG(1), 0, MixInterleave)
	assert.Len(t, out, 4)
	assert.Equal(t, 0, stats.Converted)

	_, stats = Mix(recs, sel, testRNG(1), 150, MixInterleave)
	assert.Equal(t, 4, stats.Converted)
}

func TestMixRandomReplayMultiset(t *testing.T) {
	t.Parallel()
	sel := lineSelector(t, 10, 200)
	recs := singleLineRecords(3)

	// percent 60 of 3 records rounds to exactly 2 conversions.
	out, stats := Mix(recs, sel, testRNG(11), 60, MixRandomReplay)
	require.Len(t, out, 5)
	assert.Equal(t, 2, stats.Converted)

	// Whole-line spans make each tagged line fully predictable, so the
	// output multiset must be the 3 originals plus 2 tag-wrapped ones.
	wrapped := map[string]bool{}
	for _, rec := range recs {
		wrapped["<|fim_prefix|><|fim_suffix|><|fim_middle|>"+rec.Base] = true
	}
	seen := map[string]int{}
	for _, line := range out {
		seen[line]++
	}
	tagged := 0
	for line, n := range seen {
		if strings.HasPrefix(line, tagPrefix) {
			tagged += n
			assert.True(t, wrapped[line], "unexpected tagged line %q", line)
			assert.Equal(t, 1, n)
		}
	}
	assert.Equal(t, 2, tagged)
	for _, rec := range recs {
		assert.Equal(t, 1, seen[rec.Base])
	}
}

func TestInterleaveSmoothness(t *testing.T) {
	t.Parallel()

	cases := []struct {
		nFIM, nOrig int
	}{
		{10, 30},
		{3, 7},
		{5, 5},
		{1, 9},
	}
	for _, tc := range cases {
		fimPool := make([]string, tc.nFIM)
		for i := range fimPool {
			fimPool[i] = fmt.Sprintf("%sF%d", tagPrefix, i)
		}
		originals := make([]string, tc.nOrig)
		for i := range originals {
			originals[i] = fmt.Sprintf("O%d", i)
		}

		out := interleave(fimPool, originals)
		require.Len(t, out, tc.nFIM+tc.nOrig)

		r := float64(tc.nFIM) / float64(tc.nFIM+tc.nOrig)
		for a := 0; a < len(out); a++ {
			for b := a + 1; b <= len(out); b++ {
				n := countTagged(out[a:b])
				w := float64(b - a)
				assert.LessOrEqual(t, mathAbs(float64(n)-w*r), 1+1e-9,
					"%d/%d window [%d,%d)", tc.nFIM, tc.nOrig, a, b)
			}
		}
	}
}

func mathAbs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func TestInterleaveEdgeCases(t *testing.T) {
	t.Parallel()

	originals := []string{"a", "b"}
	assert.Equal(t, originals, interleave(nil, originals))

	fimPool := []string{tagPrefix + "x"}
	assert.Equal(t, fimPool, interleave(fimPool, nil))

	// Ties in progress favor the FIM side, so a mixed file leads with
	// a converted example.
	out := interleave([]string{tagPrefix + "f"}, []string{"o1", "o2"})
	assert.Equal(t, []string{tagPrefix + "f", "o1", "o2"}, out)
}

func TestParseMixMode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    MixMode
		wantErr bool
	}{
		{"interleave", MixInterleave, false},
		{"INTERLEAVE", MixInterleave, false},
		{"randomReplay", MixRandomReplay, false},
		{"randomreplay", MixRandomReplay, false},
		{"random-replay", MixRandomReplay, false},
		{"random_replay", MixRandomReplay, false},
		{"shuffle", "", true},
		{"", "", true},
	}
	for _, tc := range cases {
		got, err := ParseMixMode(tc.in)
		if tc.wantErr {
			require.Error(t, err, tc.in)
			assert.Contains(t, err.Error(), "unknown mix mode")
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}
}
