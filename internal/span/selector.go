package span

import (
	"math/rand/v2"
	"regexp"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/corpusforge/fimgen/internal/lexical"
	"github.com/corpusforge/fimgen/internal/syntax"
)

// Inner draw budgets for locators that sample positions before
// checking bounds. The outer retry loop is governed by
// Config.MaxRetries; these only bound a single attempt.
const (
	lineTries  = 30
	tokenTries = 20
	maxLineRun = 20
)

var identRE = regexp.MustCompile(`[A-Za-z_]\w*`)

// outcome is the attempt result consumed by the retry loop.
type outcome int

const (
	found outcome = iota
	noSpan
	unavailable
)

// Selector picks spans according to configured strategy weights and
// length bounds. A Selector is stateless across calls and safe for
// concurrent use as long as each call gets its own rng.
type Selector struct {
	cfg Config
}

// NewSelector validates the configuration once so processing never
// has to.
func NewSelector(cfg Config) (*Selector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrap(err, "span: invalid config")
	}
	return &Selector{cfg: cfg}, nil
}

// Config returns the bounds the selector enforces.
func (s *Selector) Config() Config { return s.cfg }

// Pick selects one middle span from text, drawing a fresh strategy for
// each attempt up to MaxRetries. A strategy whose collaborator is
// unavailable loses its weight for the remaining attempts, shifting
// mass to the others. The second result is false when every attempt
// failed; callers treat that as "record not converted", never as an
// error.
func (s *Selector) Pick(text string, rng *rand.Rand) (Span, bool) {
	weights := s.cfg.Weights
	ctx := &pickContext{text: text}

	for attempt := 0; attempt < s.cfg.MaxRetries; attempt++ {
		strat, ok := weights.Draw(rng)
		if !ok {
			break
		}
		sp, out := s.locate(ctx, strat, rng)
		switch out {
		case found:
			return sp, true
		case unavailable:
			weights = weights.Without(strat)
		}
	}
	return Span{}, false
}

func (s *Selector) locate(ctx *pickContext, strat Strategy, rng *rand.Rand) (Span, outcome) {
	switch strat {
	case StrategyFunction:
		return s.locateFunction(ctx, rng)
	case StrategyLine:
		return s.locateLine(ctx, rng)
	case StrategyIdentifier:
		return s.locateIdentifier(ctx, rng)
	default:
		return s.locateToken(ctx, rng)
	}
}

// locateFunction picks uniformly among function bodies whose length
// fits the bounds. The span convention is the brace-delimited body
// including both braces, held fixed for every language backend.
func (s *Selector) locateFunction(ctx *pickContext, rng *rand.Rand) (Span, outcome) {
	parser, ok := syntax.Lookup(s.cfg.Language)
	if !ok {
		return Span{}, unavailable
	}
	tree, err := ctx.parse(parser)
	if err != nil {
		return Span{}, noSpan
	}

	var bodies []syntax.Function
	for _, fn := range tree.Functions {
		if n := fn.BodyLen(); n >= s.cfg.MinLen && n <= s.cfg.MaxLen {
			bodies = append(bodies, fn)
		}
	}
	if len(bodies) == 0 {
		return Span{}, noSpan
	}
	fn := bodies[rng.IntN(len(bodies))]
	return Span{Start: fn.BodyStart, End: fn.BodyEnd, Strategy: StrategyFunction}, found
}

// locateLine picks a random contiguous run of whole lines, terminators
// included, whose total length fits the bounds.
func (s *Selector) locateLine(ctx *pickContext, rng *rand.Rand) (Span, outcome) {
	if len(ctx.text) < s.cfg.MinLen {
		return Span{}, noSpan
	}
	lines := ctx.lineSpans()
	if len(lines) == 0 {
		return Span{}, noSpan
	}

	maxRun := min(maxLineRun, len(lines))
	for try := 0; try < lineTries; try++ {
		run := 1 + rng.IntN(maxRun)
		start := rng.IntN(len(lines) - run + 1)
		lo := lines[start].start
		hi := lines[start+run-1].end
		if n := hi - lo; n < s.cfg.MinLen || n > s.cfg.MaxLen {
			continue
		}
		if isBlank(ctx.text[lo:hi]) {
			continue
		}
		return Span{Start: lo, End: hi, Strategy: StrategyLine}, found
	}
	return Span{}, noSpan
}

// locateIdentifier picks one identifier occurrence and, when it is
// shorter than MinLen, extends rightward over adjacent lexical tokens.
// Only one occurrence is drawn per attempt.
func (s *Selector) locateIdentifier(ctx *pickContext, rng *rand.Rand) (Span, outcome) {
	occ := ctx.identSpans(s.cfg.Language)
	if len(occ) == 0 {
		return Span{}, noSpan
	}
	id := occ[rng.IntN(len(occ))]
	return s.extend(ctx, id.start, id.end, StrategyIdentifier)
}

// locateToken picks a random lexical token as the span seed and
// extends it the same way identifiers extend.
func (s *Selector) locateToken(ctx *pickContext, rng *rand.Rand) (Span, outcome) {
	tokens := ctx.lex()
	if len(tokens) == 0 {
		return Span{}, noSpan
	}
	for try := 0; try < tokenTries; try++ {
		t := tokens[rng.IntN(len(tokens))]
		sp, out := s.extend(ctx, t.Start, t.End, StrategyToken)
		if out != found {
			continue
		}
		if isBlank(ctx.text[sp.Start:sp.End]) {
			continue
		}
		return sp, found
	}
	return Span{}, noSpan
}

// extend grows [start, end) rightward one lexical token at a time
// until the span reaches MinLen. Running out of source below MinLen or
// overflowing MaxLen fails the attempt.
func (s *Selector) extend(ctx *pickContext, start, end int, strat Strategy) (Span, outcome) {
	tokens := ctx.lex()
	i := sort.Search(len(tokens), func(k int) bool { return tokens[k].Start >= end })

	for end-start < s.cfg.MinLen {
		if i >= len(tokens) {
			return Span{}, noSpan
		}
		end = tokens[i].End
		i++
	}
	if end-start > s.cfg.MaxLen {
		return Span{}, noSpan
	}
	return Span{Start: start, End: end, Strategy: strat}, found
}

func isBlank(s string) bool { return strings.TrimSpace(s) == "" }

// region is a half-open byte range used for cached line and identifier
// positions.
type region struct {
	start, end int
}

// pickContext caches derived views of one text (line boundaries,
// lexical tokens, identifier occurrences, syntax tree) so retry
// attempts that revisit a strategy do not re-derive them.
type pickContext struct {
	text string

	lines     []region
	linesOnce bool

	tokens     []lexical.Token
	tokensOnce bool

	idents     []region
	identsOnce bool

	tree     *syntax.Tree
	treeErr  error
	treeOnce bool
}

// lineSpans splits the text into lines with terminators retained, so
// concatenating any run reproduces the source bytes exactly.
func (c *pickContext) lineSpans() []region {
	if c.linesOnce {
		return c.lines
	}
	c.linesOnce = true

	start := 0
	for i := 0; i < len(c.text); i++ {
		if c.text[i] == '\n' {
			c.lines = append(c.lines, region{start, i + 1})
			start = i + 1
		}
	}
	if start < len(c.text) {
		c.lines = append(c.lines, region{start, len(c.text)})
	}
	return c.lines
}

func (c *pickContext) lex() []lexical.Token {
	if !c.tokensOnce {
		c.tokensOnce = true
		c.tokens = lexical.Scan(c.text)
	}
	return c.tokens
}

func (c *pickContext) parse(p syntax.Parser) (*syntax.Tree, error) {
	if !c.treeOnce {
		c.treeOnce = true
		c.tree, c.treeErr = p.Parse(c.text)
	}
	return c.tree, c.treeErr
}

// identSpans lists identifier occurrences, preferring the syntax tree
// and falling back to a conservative regex when no parser exists for
// the language or the text does not parse.
func (c *pickContext) identSpans(lang string) []region {
	if c.identsOnce {
		return c.idents
	}
	c.identsOnce = true

	if parser, ok := syntax.Lookup(lang); ok {
		if tree, err := c.parse(parser); err == nil {
			for _, id := range tree.Idents {
				c.idents = append(c.idents, region{id.Start, id.End})
			}
			return c.idents
		}
	}
	for _, m := range identRE.FindAllStringIndex(c.text, -1) {
		c.idents = append(c.idents, region{m[0], m[1]})
	}
	return c.idents
}
