package analyze

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func TestParseRange(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    Range
		wantErr bool
	}{
		{in: "2800-3200", want: Range{Min: 2800, Max: 3200}},
		{in: " 100 - 200 ", want: Range{Min: 100, Max: 200}},
		{in: "0-0", want: Range{Min: 0, Max: 0}},
		{in: "3000", wantErr: true},
		{in: "a-b", wantErr: true},
		{in: "500-100", wantErr: true},
		{in: "-5-10", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseRange(tc.in)
		if tc.wantErr {
			assert.Error(t, err, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestRangeContains(t *testing.T) {
	t.Parallel()

	r := Range{Min: 100, Max: 200}
	assert.True(t, r.Contains(100))
	assert.True(t, r.Contains(200))
	assert.False(t, r.Contains(99))
	assert.False(t, r.Contains(201))
	assert.Equal(t, "100-200", r.Label())
}

// Texts with known lengths so the ratio and every estimate are exact:
// the 22-char sample has 4 lexical tokens, giving 5.5 chars per token.
func analysisObjects() []map[string]any {
	return []map[string]any{
		{"text": "alpha beta gamma delta"},                       // 22 chars -> 4 tokens
		{"text": "one two three four five six seven eight nine"}, // 44 chars -> 8 tokens
		{"text": "abcde fghij"},                                  // 11 chars -> 2 tokens
		{"note": "no text here"},
	}
}

func TestRunEstimatesFromSample(t *testing.T) {
	t.Parallel()

	a := Run(analysisObjects(), 1, nil)

	assert.Equal(t, 4, a.Records)
	assert.Equal(t, 1, a.EmptyTexts)
	assert.Equal(t, 1, a.SampleRecords)
	assert.Equal(t, 22, a.SampleChars)
	assert.Equal(t, 4, a.SampleTokens)
	assert.InDelta(t, 5.5, a.CharsPerToken, 1e-9)
	assert.Equal(t, 77, a.TotalChars)

	assert.Equal(t, 2, a.MinTokens)
	assert.Equal(t, 8, a.MaxTokens)
	assert.InDelta(t, 14.0/3, a.MeanTokens, 1e-9)
}

func TestRunBucketsAndRanges(t *testing.T) {
	t.Parallel()

	a := Run(analysisObjects(), 1, []Range{
		{Min: 3, Max: 10},
		{Min: 1000, Max: 2000},
	})

	// All three estimates land in the first bucket.
	require.NotEmpty(t, a.Buckets)
	assert.Equal(t, "0-256", a.Buckets[0].Label)
	assert.Equal(t, 3, a.Buckets[0].Count)
	for _, b := range a.Buckets[1:] {
		assert.Zero(t, b.Count, b.Label)
	}

	// Estimates 4 and 8 fall inside 3-10; nothing reaches 1000.
	require.Len(t, a.Ranges, 2)
	assert.Len(t, a.Ranges[0].Records, 2)
	assert.Empty(t, a.Ranges[1].Records)
}

func TestRunSampleLargerThanFile(t *testing.T) {
	t.Parallel()

	a := Run(analysisObjects(), 100, nil)
	assert.Equal(t, 3, a.SampleRecords)
	assert.Equal(t, 77, a.SampleChars)
}

func TestRunNoUsableText(t *testing.T) {
	t.Parallel()

	a := Run([]map[string]any{{"note": "x"}, {"note": "y"}}, 10, []Range{{Min: 0, Max: 100}})
	assert.Equal(t, 2, a.EmptyTexts)
	assert.Zero(t, a.CharsPerToken)
	assert.Zero(t, a.Estimate("anything"))
	assert.Empty(t, a.Ranges[0].Records)
}

func TestRangeFileName(t *testing.T) {
	t.Parallel()

	r := Range{Min: 2800, Max: 3200}
	assert.Equal(t, filepath.Join("/data", "test_2800-3200tok.jsonl"),
		RangeFileName(filepath.Join("/data", "test.jsonl"), r, ""))
	assert.Equal(t, filepath.Join("/out", "test_2800-3200tok.jsonl"),
		RangeFileName(filepath.Join("/data", "test.jsonl"), r, "/out"))
}

func TestWriteReport(t *testing.T) {
	t.Parallel()

	a := Run(analysisObjects(), 1, []Range{{Min: 3, Max: 10}})
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteReport(path, "test.jsonl", a))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)

	summary, ok := f.Sheet["Summary"]
	require.True(t, ok)
	require.NotEmpty(t, summary.Rows)
	assert.Equal(t, "Input", summary.Rows[0].Cells[0].String())
	assert.Equal(t, "test.jsonl", summary.Rows[0].Cells[1].String())

	dist, ok := f.Sheet["Distribution"]
	require.True(t, ok)
	// Header plus one row per bucket.
	require.Len(t, dist.Rows, 1+len(a.Buckets))
	assert.Equal(t, "0-256", dist.Rows[1].Cells[0].String())
	n, err := dist.Rows[1].Cells[1].Int()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	ranges, ok := f.Sheet["Ranges"]
	require.True(t, ok)
	require.Len(t, ranges.Rows, 2)
	assert.Equal(t, "3-10", ranges.Rows[1].Cells[0].String())
}
