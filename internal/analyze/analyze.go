// Package analyze estimates token statistics for corpus files. Exact
// token counts belong to the training tokenizer, which is not part of
// this toolkit; the estimate lexes a small sample to learn a
// chars-per-token ratio and scales every record's byte length by it.
package analyze

import (
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/corpusforge/fimgen/internal/corpus"
	"github.com/corpusforge/fimgen/internal/lexical"
)

// Range is an inclusive estimated-token interval records can be
// filtered into.
type Range struct {
	Min int
	Max int
}

// ParseRange reads a "MIN-MAX" flag value.
func ParseRange(s string) (Range, error) {
	lo, hi, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return Range{}, eris.Errorf("analyze: range %q must look like MIN-MAX", s)
	}
	minTok, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return Range{}, eris.Wrapf(err, "analyze: range %q", s)
	}
	maxTok, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return Range{}, eris.Wrapf(err, "analyze: range %q", s)
	}
	if minTok < 0 || maxTok < minTok {
		return Range{}, eris.Errorf("analyze: range %q must satisfy 0 <= MIN <= MAX", s)
	}
	return Range{Min: minTok, Max: maxTok}, nil
}

// Contains reports whether an estimated token count falls inside the
// range.
func (r Range) Contains(tokens int) bool {
	return tokens >= r.Min && tokens <= r.Max
}

// Label names the range in filenames and report rows.
func (r Range) Label() string {
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}

// bucketEdges delimit the distribution: one bucket per adjacent pair
// plus an unbounded tail.
var bucketEdges = []int{0, 256, 512, 1024, 2048, 4096, 8192, 16384}

// Bucket is one distribution bin over estimated token counts. Max is
// exclusive; zero means unbounded.
type Bucket struct {
	Label string
	Min   int
	Max   int
	Count int
}

// RangeMatch collects the records whose estimated token count fell
// inside one requested range. A record can match several overlapping
// ranges.
type RangeMatch struct {
	Range   Range
	Records []map[string]any
}

// Analysis is the full result for one input file.
type Analysis struct {
	Records       int
	EmptyTexts    int
	TotalChars    int
	SampleRecords int
	SampleChars   int
	SampleTokens  int
	CharsPerToken float64
	MinTokens     int
	MaxTokens     int
	MeanTokens    float64
	Buckets       []Bucket
	Ranges        []RangeMatch
}

// Run analyzes decoded corpus objects: it learns the chars-per-token
// ratio from the first sampleSize records with usable text, estimates
// every record's token count from its length, and fills the
// distribution and the requested range filters.
func Run(objects []map[string]any, sampleSize int, ranges []Range) *Analysis {
	a := &Analysis{
		Records: len(objects),
		Buckets: newBuckets(),
	}
	for _, r := range ranges {
		a.Ranges = append(a.Ranges, RangeMatch{Range: r})
	}

	a.sampleRatio(objects, sampleSize)

	first := true
	var totalTokens int
	for _, obj := range objects {
		text := corpus.TextOf(obj)
		if text == "" {
			a.EmptyTexts++
			continue
		}
		a.TotalChars += len(text)

		tokens := a.Estimate(text)
		totalTokens += tokens
		if first || tokens < a.MinTokens {
			a.MinTokens = tokens
		}
		if first || tokens > a.MaxTokens {
			a.MaxTokens = tokens
		}
		first = false

		a.bucketFor(tokens).Count++
		for i := range a.Ranges {
			if a.Ranges[i].Range.Contains(tokens) {
				a.Ranges[i].Records = append(a.Ranges[i].Records, obj)
			}
		}
	}

	if counted := a.Records - a.EmptyTexts; counted > 0 {
		a.MeanTokens = float64(totalTokens) / float64(counted)
	}
	return a
}

// Estimate converts a text to an estimated token count under the
// learned ratio. With no ratio available every estimate is zero.
func (a *Analysis) Estimate(text string) int {
	if a.CharsPerToken <= 0 {
		return 0
	}
	return int(math.Round(float64(len(text)) / a.CharsPerToken))
}

// sampleRatio lexes the first sampleSize records with usable text and
// derives chars per token from their totals.
func (a *Analysis) sampleRatio(objects []map[string]any, sampleSize int) {
	for _, obj := range objects {
		if a.SampleRecords >= sampleSize {
			break
		}
		text := corpus.TextOf(obj)
		if text == "" {
			continue
		}
		tokens := lexical.CodeTokens(lexical.Scan(text))
		a.SampleRecords++
		a.SampleChars += len(text)
		a.SampleTokens += len(tokens)
	}
	if a.SampleTokens > 0 {
		a.CharsPerToken = float64(a.SampleChars) / float64(a.SampleTokens)
	}
}

func newBuckets() []Bucket {
	buckets := make([]Bucket, 0, len(bucketEdges))
	for i := 1; i < len(bucketEdges); i++ {
		buckets = append(buckets, Bucket{
			Label: fmt.Sprintf("%d-%d", bucketEdges[i-1], bucketEdges[i]),
			Min:   bucketEdges[i-1],
			Max:   bucketEdges[i],
		})
	}
	last := bucketEdges[len(bucketEdges)-1]
	return append(buckets, Bucket{Label: fmt.Sprintf("%d+", last), Min: last})
}

func (a *Analysis) bucketFor(tokens int) *Bucket {
	for i := range a.Buckets {
		b := &a.Buckets[i]
		if tokens >= b.Min && (b.Max == 0 || tokens < b.Max) {
			return b
		}
	}
	return &a.Buckets[len(a.Buckets)-1]
}

// RangeFileName derives the side-file path for one range filter:
// data.jsonl with range 2800-3200 becomes data_2800-3200tok.jsonl. An
// empty outDir keeps the input's directory.
func RangeFileName(input string, r Range, outDir string) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(filepath.Base(input), ext)
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	return filepath.Join(outDir, fmt.Sprintf("%s_%stok%s", stem, r.Label(), ext))
}
