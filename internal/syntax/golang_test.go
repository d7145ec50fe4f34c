package syntax

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const goSample = `package demo

import "fmt"

func Greet(name string) string {
	msg := fmt.Sprintf("hello %s", name)
	return msg
}

var handler = func() {
	count := 0
	count++
}
`

func TestGoParseFunctions(t *testing.T) {
	t.Parallel()

	tree, err := golang.Parse(goSample)
	require.NoError(t, err)
	require.Len(t, tree.Functions, 2)

	named := tree.Functions[0]
	assert.Equal(t, "Greet", named.Name)
	assert.Equal(t, byte('{'), goSample[named.BodyStart])
	assert.Equal(t, byte('}'), goSample[named.BodyEnd-1])
	assert.Contains(t, goSample[named.BodyStart:named.BodyEnd], "msg :=")

	lit := tree.Functions[1]
	assert.Empty(t, lit.Name)
	assert.Contains(t, goSample[lit.BodyStart:lit.BodyEnd], "count++")
}

func TestGoParseIdents(t *testing.T) {
	t.Parallel()

	tree, err := golang.Parse(goSample)
	require.NoError(t, err)

	byName := map[string][]Ident{}
	for _, id := range tree.Idents {
		byName[id.Name] = append(byName[id.Name], id)
		assert.Equal(t, id.Name, goSample[id.Start:id.End])
	}

	require.NotEmpty(t, byName["Sprintf"])
	assert.True(t, byName["Sprintf"][0].Property)
	require.NotEmpty(t, byName["fmt"])
	assert.False(t, byName["fmt"][0].Property)
}

func TestGoParseDeclared(t *testing.T) {
	t.Parallel()

	tree, err := golang.Parse(goSample)
	require.NoError(t, err)

	names := map[string]bool{}
	for _, id := range tree.Declared {
		names[id.Name] = true
	}
	assert.True(t, names["msg"])
	assert.True(t, names["count"])
	assert.True(t, names["handler"])
	assert.False(t, names["Greet"])
}

func TestGoParseError(t *testing.T) {
	t.Parallel()

	_, err := golang.Parse("func {{{")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse go source")
}

func TestGoCheck(t *testing.T) {
	t.Parallel()

	clean := golang.Check(goSample)
	assert.Zero(t, clean.ErrorCount)
	assert.Positive(t, clean.NodeCount)

	broken := golang.Check(strings.Replace(goSample, "return msg", "return )", 1))
	assert.Positive(t, broken.ErrorCount)
}
