// Package dataset turns corpus files into training and evaluation
// sets: FIM-only eval builds, mixed original/FIM training files, and
// train/valid/test splits. All randomness flows through explicit
// generators so a seed reproduces a byte-identical output.
package dataset

import "github.com/corpusforge/fimgen/internal/span"

// Stats tallies one conversion's record outcomes. RecordsSeen counts
// loaded records the conversion visited; Skipped and Malformed carry
// the loader's counts for unusable lines.
type Stats struct {
	RecordsSeen int                   `json:"records_seen"`
	Skipped     int                   `json:"skipped"`
	Malformed   int                   `json:"malformed"`
	Converted   int                   `json:"converted"`
	Failed      int                   `json:"failed"`
	Written     int                   `json:"written"`
	PerStrategy map[span.Strategy]int `json:"per_strategy,omitempty"`
}

// NewStats returns an empty tally.
func NewStats() *Stats {
	return &Stats{PerStrategy: map[span.Strategy]int{}}
}

// CountSpan records one successful conversion and its strategy.
func (s *Stats) CountSpan(st span.Strategy) {
	s.Converted++
	s.PerStrategy[st]++
}

// Merge folds another tally into this one, used to aggregate per-file
// stats into a run total.
func (s *Stats) Merge(other *Stats) {
	if other == nil {
		return
	}
	s.RecordsSeen += other.RecordsSeen
	s.Skipped += other.Skipped
	s.Malformed += other.Malformed
	s.Converted += other.Converted
	s.Failed += other.Failed
	s.Written += other.Written
	for strat, n := range other.PerStrategy {
		s.PerStrategy[strat] += n
	}
}
