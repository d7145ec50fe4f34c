// Package lexical tokenizes source text into coarse lexical units:
// comments, string literals, numbers, identifiers, brackets, and
// punctuation. It is language-agnostic and never fails, so callers can
// lex arbitrary corpus text without a parser for its language.
package lexical

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// Kind classifies a lexical unit.
type Kind int

const (
	KindComment Kind = iota
	KindString
	KindNumber
	KindIdent
	KindWhitespace
	KindLBrace
	KindRBrace
	KindLParen
	KindRParen
	KindLBracket
	KindRBracket
	KindPunct
)

func (k Kind) String() string {
	switch k {
	case KindComment:
		return "comment"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindIdent:
		return "ident"
	case KindWhitespace:
		return "whitespace"
	case KindLBrace:
		return "lbrace"
	case KindRBrace:
		return "rbrace"
	case KindLParen:
		return "lparen"
	case KindRParen:
		return "rparen"
	case KindLBracket:
		return "lbracket"
	case KindRBracket:
		return "rbracket"
	default:
		return "punct"
	}
}

// Token is a single lexical unit. Start and End are byte offsets into
// the scanned text, with End exclusive. Offsets always fall on rune
// boundaries.
type Token struct {
	Kind  Kind
	Start int
	End   int
	Value string
}

// IsCode reports whether the token carries code content rather than
// whitespace.
func (t Token) IsCode() bool {
	return t.Kind != KindWhitespace
}

// def defines the lexical rules. Rule order matters: comments and
// strings must win over the punctuation catch-all, and the catch-all
// must stay last so every rune matches some rule.
var def = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*|/\*(?:[^*]|\*+[^*/])*\*+/|#[^\n]*`},
	{Name: "String", Pattern: "\"(?:[^\"\\\\\\n]|\\\\.)*\"|'(?:[^'\\\\\\n]|\\\\.)*'|`[^`]*`"},
	{Name: "Number", Pattern: `[0-9]+(?:\.[0-9]+)?`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Whitespace", Pattern: `\s+`},
	{Name: "LBrace", Pattern: `\{`},
	{Name: "RBrace", Pattern: `\}`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "LBracket", Pattern: `\[`},
	{Name: "RBracket", Pattern: `\]`},
	{Name: "Punct", Pattern: `[^\sA-Za-z0-9_]`},
})

var kindBySymbol = buildKindMap()

func buildKindMap() map[lexer.TokenType]Kind {
	syms := def.Symbols()
	return map[lexer.TokenType]Kind{
		syms["Comment"]:    KindComment,
		syms["String"]:     KindString,
		syms["Number"]:     KindNumber,
		syms["Ident"]:      KindIdent,
		syms["Whitespace"]: KindWhitespace,
		syms["LBrace"]:     KindLBrace,
		syms["RBrace"]:     KindRBrace,
		syms["LParen"]:     KindLParen,
		syms["RParen"]:     KindRParen,
		syms["LBracket"]:   KindLBracket,
		syms["RBracket"]:   KindRBracket,
		syms["Punct"]:      KindPunct,
	}
}

// Scan tokenizes text. The rule set is total, so the returned tokens
// cover every byte of the input in order.
func Scan(text string) []Token {
	lx, err := def.Lex("", strings.NewReader(text))
	if err != nil {
		return nil
	}
	raw, err := lexer.ConsumeAll(lx)
	if err != nil {
		return nil
	}

	tokens := make([]Token, 0, len(raw))
	for _, t := range raw {
		if t.EOF() {
			break
		}
		start := t.Pos.Offset
		tokens = append(tokens, Token{
			Kind:  kindBySymbol[t.Type],
			Start: start,
			End:   start + len(t.Value),
			Value: t.Value,
		})
	}
	return tokens
}

// CodeTokens filters whitespace out of a token stream.
func CodeTokens(tokens []Token) []Token {
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if t.IsCode() {
			out = append(out, t)
		}
	}
	return out
}
