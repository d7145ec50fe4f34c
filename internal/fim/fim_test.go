package fim

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRoundTrip(t *testing.T) {
	t.Parallel()

	text := "const greeting = 'hello';\nconsole.log(greeting);\n"

	tests := []struct {
		name       string
		start, end int
	}{
		{"interior", 6, 14},
		{"from start", 0, 5},
		{"to end", 26, len(text)},
		{"whole text", 0, len(text)},
		{"single byte", 10, 11},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := Build(text, tt.start, tt.end)
			assert.Equal(t, text, ex.Prefix+ex.Middle+ex.Suffix)
			assert.Equal(t, text[tt.start:tt.end], ex.Middle)
			assert.NotEmpty(t, ex.Middle)
		})
	}
}

func TestTaggedOrder(t *testing.T) {
	t.Parallel()

	ex := Build("abcdef", 2, 4)
	got := ex.Tagged()

	assert.Equal(t, "<|fim_prefix|>ab<|fim_suffix|>ef<|fim_middle|>cd", got)

	// The middle always comes after both context tags.
	assert.Less(t, strings.Index(got, PrefixTag), strings.Index(got, SuffixTag))
	assert.Less(t, strings.Index(got, SuffixTag), strings.Index(got, MiddleTag))
}

func TestTaggedEmptyContexts(t *testing.T) {
	t.Parallel()

	whole := Build("xy", 0, 2)
	assert.Equal(t, "<|fim_prefix|><|fim_suffix|><|fim_middle|>xy", whole.Tagged())
}

func TestBuildPanicsOutOfBounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		start, end int
	}{
		{"negative start", -1, 3},
		{"empty span", 2, 2},
		{"inverted span", 4, 2},
		{"end past text", 0, 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Panics(t, func() { Build("abcdef", tt.start, tt.end) })
		})
	}
}
