package syntax

import "github.com/corpusforge/fimgen/internal/lexical"

// cstyleParser is a token-level heuristic for brace languages
// (TypeScript, ArkTS, JavaScript, Java, C family). It recognizes
// function-shaped constructs as an identifier followed by a balanced
// argument list and a balanced brace block. Strings and comments are
// opaque tokens, so brackets inside them never confuse the matcher.
type cstyleParser struct{}

// cstyleKeywords are identifiers that look like call heads but open
// control-flow blocks instead of function bodies.
var cstyleKeywords = map[string]bool{
	"if":           true,
	"for":          true,
	"while":        true,
	"switch":       true,
	"catch":        true,
	"return":       true,
	"function":     true,
	"else":         true,
	"do":           true,
	"new":          true,
	"typeof":       true,
	"delete":       true,
	"in":           true,
	"of":           true,
	"await":        true,
	"yield":        true,
	"with":         true,
	"synchronized": true,
}

// declKeywords introduce a variable declaration in the languages this
// backend covers.
var declKeywords = map[string]bool{
	"let":   true,
	"const": true,
	"var":   true,
}

func (cstyleParser) Parse(text string) (*Tree, error) {
	code := lexical.CodeTokens(lexical.Scan(text))
	tree := &Tree{}

	for i, tok := range code {
		if tok.Kind != lexical.KindIdent {
			continue
		}
		occ := Ident{Name: tok.Value, Start: tok.Start, End: tok.End}
		if i > 0 && code[i-1].Kind == lexical.KindPunct && code[i-1].Value == "." {
			occ.Property = true
		}
		tree.Idents = append(tree.Idents, occ)

		if i > 0 && code[i-1].Kind == lexical.KindIdent && declKeywords[code[i-1].Value] {
			tree.Declared = append(tree.Declared, occ)
		}
		if fn, ok := matchFunction(code, i); ok {
			tree.Functions = append(tree.Functions, fn)
		}
	}
	return tree, nil
}

// matchFunction tries to read ident '(' args ')' [annotation] '{' body
// '}' starting at the identifier with index i. The annotation slot
// covers return types ("): string {", generics included) and Java
// throws clauses; any token outside the annotation set rejects the
// candidate so ordinary call statements never match.
func matchFunction(code []lexical.Token, i int) (Function, bool) {
	if cstyleKeywords[code[i].Value] {
		return Function{}, false
	}
	if i+1 >= len(code) || code[i+1].Kind != lexical.KindLParen {
		return Function{}, false
	}
	rparen := matchBracket(code, i+1, lexical.KindLParen, lexical.KindRParen)
	if rparen < 0 {
		return Function{}, false
	}
	lbrace := rparen + 1
	for lbrace < len(code) && annotationToken(code[lbrace]) {
		lbrace++
	}
	if lbrace >= len(code) || code[lbrace].Kind != lexical.KindLBrace {
		return Function{}, false
	}
	rbrace := matchBracket(code, lbrace, lexical.KindLBrace, lexical.KindRBrace)
	if rbrace < 0 {
		return Function{}, false
	}
	return Function{
		Name:      code[i].Value,
		Start:     code[i].Start,
		End:       code[rbrace].End,
		BodyStart: code[lbrace].Start,
		BodyEnd:   code[rbrace].End,
	}, true
}

func annotationToken(t lexical.Token) bool {
	switch t.Kind {
	case lexical.KindIdent, lexical.KindLBracket, lexical.KindRBracket:
		return true
	case lexical.KindPunct:
		switch t.Value {
		case ":", ".", "|", "&", "<", ">", ",", "?":
			return true
		}
	}
	return false
}

// matchBracket returns the index of the token closing the bracket that
// opens at start, or -1 when the stream ends first. Only the given
// bracket kind participates in depth tracking.
func matchBracket(code []lexical.Token, start int, open, closing lexical.Kind) int {
	depth := 0
	for j := start; j < len(code); j++ {
		switch code[j].Kind {
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}

func (cstyleParser) Check(text string) Report {
	code := lexical.CodeTokens(lexical.Scan(text))
	rep := Report{NodeCount: len(code)}

	opens := map[lexical.Kind]lexical.Kind{
		lexical.KindRBrace:   lexical.KindLBrace,
		lexical.KindRParen:   lexical.KindLParen,
		lexical.KindRBracket: lexical.KindLBracket,
	}

	var stack []lexical.Kind
	for _, tok := range code {
		switch tok.Kind {
		case lexical.KindLBrace, lexical.KindLParen, lexical.KindLBracket:
			stack = append(stack, tok.Kind)
		case lexical.KindRBrace, lexical.KindRParen, lexical.KindRBracket:
			switch {
			case len(stack) == 0:
				rep.ErrorCount++
			case stack[len(stack)-1] != opens[tok.Kind]:
				rep.ErrorCount++
				stack = stack[:len(stack)-1]
			default:
				stack = stack[:len(stack)-1]
			}
		}
	}
	rep.ErrorCount += len(stack)
	return rep
}
