// Package fim assembles fill-in-the-middle training examples. A source
// text is split at a span into prefix, middle, and suffix, and rendered
// with sentinel tags so a model learns to produce the middle from the
// surrounding context.
package fim

import "fmt"

// Sentinel tags. These exact literals are what downstream tokenizers
// register as special tokens, so they are not configurable.
const (
	PrefixTag = "<|fim_prefix|>"
	SuffixTag = "<|fim_suffix|>"
	MiddleTag = "<|fim_middle|>"
)

// Example is one fill-in-the-middle example. Prefix and Suffix may be
// empty; Middle never is.
type Example struct {
	Prefix string
	Middle string
	Suffix string
}

// Build splits text at the half-open byte span [start, end). The span
// must satisfy 0 <= start < end <= len(text); violating that is a
// caller bug and panics.
func Build(text string, start, end int) Example {
	if start < 0 || start >= end || end > len(text) {
		panic(fmt.Sprintf("fim: span [%d,%d) out of bounds for %d byte text", start, end, len(text)))
	}
	return Example{
		Prefix: text[:start],
		Middle: text[start:end],
		Suffix: text[end:],
	}
}

// Tagged renders the example in training order: prefix context, suffix
// context, then the middle last so an autoregressive model generates
// the infill after seeing both sides.
func (e Example) Tagged() string {
	return PrefixTag + e.Prefix + SuffixTag + e.Suffix + MiddleTag + e.Middle
}
