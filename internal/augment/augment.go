// Package augment perturbs corpus records to diversify training data.
// The single transform renames declared variables by appending random
// digits, touching every non-property occurrence so the record stays
// self-consistent.
package augment

import (
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/corpusforge/fimgen/internal/syntax"
)

// Renamer rewrites declared variable names in one language. Records in
// a language without a parser pass through unchanged.
type Renamer struct {
	parser     syntax.Parser
	maxChanges int
}

// NewRenamer builds a renamer for a language hint. maxChanges caps how
// many distinct names one record can lose.
func NewRenamer(lang string, maxChanges int) *Renamer {
	p, _ := syntax.Lookup(lang)
	return &Renamer{parser: p, maxChanges: maxChanges}
}

// Supported reports whether the language has a parser backing the
// renamer.
func (r *Renamer) Supported() bool { return r.parser != nil }

// Rename rewrites between one and maxChanges declared names in text,
// drawing names, the change count, and the digit suffixes from rng.
// The second result is the number of names renamed; zero means the
// text came back untouched (no parser, no declarations, or a parse
// failure).
func (r *Renamer) Rename(text string, rng *rand.Rand) (string, int) {
	if r.parser == nil || r.maxChanges < 1 {
		return text, 0
	}
	tree, err := r.parser.Parse(text)
	if err != nil {
		return text, 0
	}
	names := declaredNames(tree)
	if len(names) == 0 {
		return text, 0
	}

	limit := r.maxChanges
	if limit > len(names) {
		limit = len(names)
	}
	n := 1 + rng.IntN(limit)

	mapping := make(map[string]string, n)
	for _, name := range sampleNames(rng, names, n) {
		mapping[name] = digitName(name, rng)
	}

	return rewrite(text, tree, mapping), len(mapping)
}

// declaredNames lists distinct declared identifiers in first-occurrence
// order, so selection depends only on the rng and never on map order.
func declaredNames(tree *syntax.Tree) []string {
	seen := make(map[string]bool, len(tree.Declared))
	var names []string
	for _, d := range tree.Declared {
		if d.Name == "" || seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		names = append(names, d.Name)
	}
	return names
}

// sampleNames picks n distinct names with a partial Fisher-Yates pass.
func sampleNames(rng *rand.Rand, names []string, n int) []string {
	picked := make([]string, len(names))
	copy(picked, names)
	for i := 0; i < n; i++ {
		j := i + rng.IntN(len(picked)-i)
		picked[i], picked[j] = picked[j], picked[i]
	}
	return picked[:n]
}

// digitName appends one to three random digits to a name.
func digitName(name string, rng *rand.Rand) string {
	b := []byte(name)
	for i, n := 0, 1+rng.IntN(3); i < n; i++ {
		b = append(b, byte('0'+rng.IntN(10)))
	}
	return string(b)
}

// rewrite replaces every renamed occurrence except property accesses.
// Occurrence spans never overlap, so a single ascending pass keeps all
// offsets valid.
func rewrite(text string, tree *syntax.Tree, mapping map[string]string) string {
	type repl struct {
		start, end int
		name       string
	}
	var repls []repl
	for _, id := range tree.Idents {
		if id.Property {
			continue
		}
		if newName, ok := mapping[id.Name]; ok {
			repls = append(repls, repl{start: id.Start, end: id.End, name: newName})
		}
	}
	if len(repls) == 0 {
		return text
	}
	sort.Slice(repls, func(a, b int) bool { return repls[a].start < repls[b].start })

	var b strings.Builder
	b.Grow(len(text) + 3*len(repls))
	last := 0
	for _, rp := range repls {
		b.WriteString(text[last:rp.start])
		b.WriteString(rp.name)
		last = rp.end
	}
	b.WriteString(text[last:])
	return b.String()
}

// Apply renames variables in each record's working text in place,
// preferring the text field and falling back to code. It returns how
// many records changed.
func (r *Renamer) Apply(objects []map[string]any, rng *rand.Rand) int {
	changed := 0
	for _, obj := range objects {
		field := "text"
		s, ok := obj[field].(string)
		if !ok || s == "" {
			field = "code"
			s, ok = obj[field].(string)
		}
		if !ok || s == "" {
			continue
		}
		out, n := r.Rename(s, rng)
		if n > 0 && out != s {
			obj[field] = out
			changed++
		}
	}
	return changed
}
