package program

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itree"
	"itree/expr"
)

const diamond = `
name: diamond
entry: 1
blocks:
  - id: 1
    branch: {cond: "x > 0", then: 2, else: 3}
  - id: 2
    next: 4
  - id: 3
    assume: "y == 1"
    next: 4
  - id: 4
    branch: {cond: "(x > 0 && y == 1)", then: 5, else: 6}
  - id: 5
    error: "both branches taken"
  - id: 6
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(diamond))
	require.NoError(t, err)
	assert.Equal(t, "diamond", p.Name)
	assert.Equal(t, itree.ProgramPoint(1), p.Entry)
	assert.Equal(t, 6, p.Len())

	b1, ok := p.Block(1)
	require.True(t, ok)
	assert.Equal(t, &Branch{Cond: expr.Gts("x", 0), Then: 2, Else: 3}, b1.Branch)
	assert.False(t, b1.IsTerminal())

	b3, _ := p.Block(3)
	assert.Equal(t, expr.Eqs("y", 1), b3.Assume)
	require.NotNil(t, b3.Next)
	assert.Equal(t, itree.ProgramPoint(4), *b3.Next)

	b5, _ := p.Block(5)
	assert.True(t, b5.IsTerminal())
	assert.Equal(t, "both branches taken", b5.Error)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diamond.yaml")
	require.NoError(t, os.WriteFile(path, []byte(diamond), 0o600))
	p, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, p.Len())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseErrors(t *testing.T) {
	var errorTest = []struct {
		src    string
		target error
	}{
		{"entry: 9\nblocks:\n  - id: 1\n", ErrUnknownBlock},
		{"entry: 1\nblocks:\n  - id: 1\n    next: 2\n", ErrUnknownBlock},
		{"entry: 1\nblocks:\n  - id: 1\n  - id: 1\n", ErrDuplicateBlock},
		{"entry: 1\nblocks:\n  - id: 1\n    branch: {cond: \"x > 0\", then: 2, else: 2}\n    next: 2\n  - id: 2\n", ErrAmbiguousJump},
		{"entry: 1\nblocks:\n  - id: 1\n    assume: \"x >\"\n", expr.ErrSyntax},
	}
	for i, test := range errorTest {
		_, err := Parse([]byte(test.src))
		assert.ErrorIs(t, err, test.target, "test %v", i)
	}
}
