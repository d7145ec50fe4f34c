package dataset

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/corpusforge/fimgen/internal/corpus"
	"github.com/corpusforge/fimgen/internal/syntax"
)

// CheckBucket labels a record's syntax-gate classification.
type CheckBucket string

const (
	BucketValid CheckBucket = "valid"
	BucketMinor CheckBucket = "minor_errors"
	BucketMajor CheckBucket = "major_errors"
)

// CheckResult groups the records of one classified input file by bucket.
type CheckResult struct {
	Valid []map[string]any
	Minor []map[string]any
	Major []map[string]any
}

// Counts returns per-bucket record counts for the run summary.
func (r *CheckResult) Counts() map[string]int {
	return map[string]int{
		string(BucketValid): len(r.Valid),
		string(BucketMinor): len(r.Minor),
		string(BucketMajor): len(r.Major),
	}
}

// Check classifies records by parse-error count: zero errors is valid,
// up to maxErrors is minor, anything beyond that is major. Records with
// no usable text also land in the major bucket.
func Check(objects []map[string]any, p syntax.Parser, maxErrors int) *CheckResult {
	res := &CheckResult{}
	for _, obj := range objects {
		text := corpus.TextOf(obj)
		if text == "" {
			res.Major = append(res.Major, obj)
			continue
		}
		rep := p.Check(text)
		switch {
		case rep.ErrorCount == 0:
			res.Valid = append(res.Valid, obj)
		case rep.ErrorCount <= maxErrors:
			res.Minor = append(res.Minor, obj)
		default:
			res.Major = append(res.Major, obj)
		}
	}
	return res
}

// BucketName derives the output path for one bucket file, keeping the
// input's extension: data.jsonl becomes data_valid.jsonl. An empty
// outDir keeps the input's directory.
func BucketName(input string, bucket CheckBucket, outDir string) string {
	ext := filepath.Ext(input)
	stem := strings.TrimSuffix(filepath.Base(input), ext)
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	return filepath.Join(outDir, fmt.Sprintf("%s_%s%s", stem, bucket, ext))
}
