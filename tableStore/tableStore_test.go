package tableStore

import (
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itree"
	"itree/expr"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open("", discardLogger)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type flatEntry struct {
	Location    itree.ProgramPoint
	Interpolant []string
}

func flatten(entries []*itree.Entry) []flatEntry {
	out := []flatEntry{}
	for _, e := range entries {
		fe := flatEntry{Location: e.Location(), Interpolant: []string{}}
		for _, c := range e.Interpolant() {
			fe.Interpolant = append(fe.Interpolant, c.String())
		}
		out = append(out, fe)
	}
	return out
}

func sampleTable() []*itree.Entry {
	entries := []*itree.Entry{}
	for i := 0; i < 12; i++ {
		entries = append(entries, itree.MakeEntry(itree.ProgramPoint(i%3), []expr.Expr{
			expr.Gts("x", int64(i)),
			expr.MustParse("(y == 1 || !(z < -2))"),
		}))
	}
	return append(entries, itree.MakeEntry(7, nil))
}

func TestSaveLoadKeepsOrder(t *testing.T) {
	s := openInMemory(t)
	table := sampleTable()
	require.NoError(t, s.Save("run-a", table))

	got, err := s.Load("run-a")
	require.NoError(t, err)
	if diff := cmp.Diff(flatten(table), flatten(got)); diff != "" {
		t.Errorf("unexpected table (-want +got):\n%s", diff)
	}
}

func TestSaveReplacesTable(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.Save("run-a", sampleTable()))
	require.NoError(t, s.Save("run-a", []*itree.Entry{itree.MakeEntry(4, []expr.Expr{expr.Les("x", 0)})}))

	got, err := s.Load("run-a")
	require.NoError(t, err)
	assert.Equal(t, []flatEntry{{Location: 4, Interpolant: []string{"x <= 0"}}}, flatten(got))
}

func TestRunsAreSeparate(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.Save("run-b", sampleTable()[:2]))
	require.NoError(t, s.Save("run-a", sampleTable()[:1]))

	a, err := s.Load("run-a")
	require.NoError(t, err)
	assert.Len(t, a, 1)
	missing, err := s.Load("run-c")
	require.NoError(t, err)
	assert.Empty(t, missing)

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Equal(t, []string{"run-a", "run-b"}, runs)
}

func TestInvalidRunID(t *testing.T) {
	s := openInMemory(t)
	assert.ErrorIs(t, s.Save("", nil), ErrInvalidRunID)
	_, err := s.Load("a/b")
	assert.ErrorIs(t, err, ErrInvalidRunID)
}

func TestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, discardLogger)
	require.NoError(t, err)
	require.NoError(t, s.Save("run-a", sampleTable()))
	require.NoError(t, s.Close())

	s, err = Open(dir, discardLogger)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load("run-a")
	require.NoError(t, err)
	assert.Len(t, got, 13)
}

func TestPreloadFromStore(t *testing.T) {
	s := openInMemory(t)
	require.NoError(t, s.Save("run-a", sampleTable()))
	entries, err := s.Load("run-a")
	require.NoError(t, err)

	tree := itree.New(&rootState{}, itree.WithRunID("run-b"), itree.WithLogger(discardLogger))
	tree.Preload(entries...)
	assert.Len(t, tree.Table(), 13)
}

type rootState struct {
	node *itree.Node
}

func (s *rootState) Constraints() []expr.Expr { return nil }
func (s *rootState) ITreeNode() *itree.Node { return s.node }
func (s *rootState) SetITreeNode(n *itree.Node) { s.node = n }
