// Package span selects middle spans from corpus texts for
// fill-in-the-middle conversion. Four strategies compete under
// configured weights: function bodies, line runs, identifier
// extensions, and lexical token runs. Selection is driven entirely by
// an explicit random generator, so a seed reproduces the same spans.
package span

import (
	"github.com/rotisserie/eris"
)

// Strategy names a span-selection method.
type Strategy string

const (
	StrategyFunction   Strategy = "function"
	StrategyLine       Strategy = "line"
	StrategyIdentifier Strategy = "identifier"
	StrategyToken      Strategy = "token"
)

// Strategies lists all strategies in draw order.
var Strategies = []Strategy{StrategyFunction, StrategyLine, StrategyIdentifier, StrategyToken}

// Span is a half-open byte range [Start, End) within a text, tagged
// with the strategy that produced it.
type Span struct {
	Start    int
	End      int
	Strategy Strategy
}

// Len returns the span length in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Config bounds span selection. MinLen and MaxLen constrain the middle
// length in bytes; MaxRetries caps strategy attempts per record.
// Language is the hint handed to the syntax capability and may name a
// language without a parser, which only disables the function strategy.
type Config struct {
	MinLen     int     `yaml:"min_len" mapstructure:"min_len"`
	MaxLen     int     `yaml:"max_len" mapstructure:"max_len"`
	MaxRetries int     `yaml:"max_retries" mapstructure:"max_retries"`
	Language   string  `yaml:"language" mapstructure:"language"`
	Weights    Weights `yaml:"weights" mapstructure:"weights"`
}

// Validate rejects configurations that must fail at startup rather
// than during processing.
func (c Config) Validate() error {
	if c.MinLen <= 0 {
		return eris.New("min_len must be positive")
	}
	if c.MaxLen < c.MinLen {
		return eris.New("max_len must be at least min_len")
	}
	if c.MaxRetries < 1 {
		return eris.New("max_retries must be at least 1")
	}
	return c.Weights.Validate()
}
