package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanCoversInput(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"let x = 42;",
		"function add(a, b) {\n  return a + b;\n}\n",
		`const s = "hello \"world\""; // trailing`,
		"/* block\n comment */ x?.y ?? z",
		"π = 3.14; // unicode idents fall through to punct",
		"`template\nliteral` + 'single'",
		"unterminated \" quote",
		"",
	}

	for _, input := range inputs {
		tokens := Scan(input)
		offset := 0
		for _, tok := range tokens {
			require.Equal(t, offset, tok.Start, "gap before %q in %q", tok.Value, input)
			require.Equal(t, tok.Value, input[tok.Start:tok.End])
			offset = tok.End
		}
		assert.Equal(t, len(input), offset, "tokens must cover %q", input)
	}
}

func TestScanKinds(t *testing.T) {
	t.Parallel()

	tokens := Scan(`let total = compute(10, "x"); // done`)

	kinds := make([]Kind, 0, len(tokens))
	for _, tok := range tokens {
		if tok.IsCode() {
			kinds = append(kinds, tok.Kind)
		}
	}
	assert.Equal(t, []Kind{
		KindIdent, KindIdent, KindPunct, KindIdent,
		KindLParen, KindNumber, KindPunct, KindString, KindRParen,
		KindPunct, KindComment,
	}, kinds)
}

func TestScanCommentForms(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"line", "x // rest of line\ny", "// rest of line"},
		{"block", "a /* spans\nlines */ b", "/* spans\nlines */"},
		{"hash", "a # python style\nb", "# python style"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var comments []string
			for _, tok := range Scan(tt.input) {
				if tok.Kind == KindComment {
					comments = append(comments, tok.Value)
				}
			}
			require.Len(t, comments, 1)
			assert.Equal(t, tt.want, comments[0])
		})
	}
}

func TestScanStringForms(t *testing.T) {
	t.Parallel()

	tokens := Scan("a = \"dq \\\" esc\" + 'sq' + `bt\nmultiline`")

	var strs []string
	for _, tok := range tokens {
		if tok.Kind == KindString {
			strs = append(strs, tok.Value)
		}
	}
	assert.Equal(t, []string{"\"dq \\\" esc\"", "'sq'", "`bt\nmultiline`"}, strs)
}

func TestScanOffsetsAreByteOffsets(t *testing.T) {
	t.Parallel()

	input := "vär = 1"
	tokens := Scan(input)

	// "ä" is two bytes; the number token must land after it correctly.
	var num Token
	for _, tok := range tokens {
		if tok.Kind == KindNumber {
			num = tok
		}
	}
	assert.Equal(t, "1", input[num.Start:num.End])
}

func TestCodeTokens(t *testing.T) {
	t.Parallel()

	tokens := Scan("a  b\n\tc")
	code := CodeTokens(tokens)

	require.Len(t, code, 3)
	for _, tok := range code {
		assert.NotEqual(t, KindWhitespace, tok.Kind)
	}
}
