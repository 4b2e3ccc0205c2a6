package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itree"
	"itree/expr"
	"itree/scheduler"
	"itree/solver"
)

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
timeout: 250ms
maxTableEntries: 64
maxSteps: 1000
strategy: random
seed: 7
logLevel: debug
storePath: /var/lib/itree
solverAddress: localhost:9000
`))
	require.NoError(t, err)
	assert.Equal(t, Engine{
		Timeout:         250 * time.Millisecond,
		MaxTableEntries: 64,
		MaxSteps:        1000,
		Strategy:        "random",
		Seed:            7,
		LogLevel:        "debug",
		StorePath:       "/var/lib/itree",
		SolverAddress:   "localhost:9000",
	}, cfg)

	sch, err := cfg.Scheduler()
	require.NoError(t, err)
	assert.IsType(t, &scheduler.Random{}, sch)
}

func TestParseKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("maxSteps: 10\n"))
	require.NoError(t, err)
	want := Default()
	want.MaxSteps = 10
	assert.Equal(t, want, cfg)
}

func TestValidate(t *testing.T) {
	var validateTest = []string{
		"timeout: -1s",
		"maxTableEntries: -1",
		"maxSteps: -3",
		"maxDepth: -3",
		"strategy: astar",
		"logLevel: loud",
	}
	for _, src := range validateTest {
		_, err := Parse([]byte(src))
		assert.ErrorIs(t, err, ErrInvalid, src)
	}
}

func TestLoadWithEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "itree.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategy: bfs\nmaxSteps: 10\n"), 0o600))
	t.Setenv("ITREE_MAX_STEPS", "20")
	t.Setenv("ITREE_IGNORE_ERRORS", "true")
	t.Setenv("ITREE_TIMEOUT", "1s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "bfs", cfg.Strategy)
	assert.Equal(t, 20, cfg.MaxSteps)
	assert.True(t, cfg.IgnoreErrors)
	assert.Equal(t, time.Second, cfg.Timeout)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsMalformedEnvironment(t *testing.T) {
	var envTest = []struct {
		name, value string
	}{
		{"ITREE_TIMEOUT", "abc"},
		{"ITREE_MAX_TABLE_ENTRIES", "many"},
		{"ITREE_MAX_STEPS", "1.5"},
		{"ITREE_MAX_DEPTH", "deep"},
		{"ITREE_SEED", "x"},
		{"ITREE_IGNORE_ERRORS", "sometimes"},
	}
	for _, test := range envTest {
		t.Run(test.name, func(t *testing.T) {
			t.Setenv(test.name, test.value)
			_, err := Load("")
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"
	var buf bytes.Buffer
	logger := cfg.Logger(&buf)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestOptions(t *testing.T) {
	cfg := Default()
	cfg.IgnoreErrors = true
	opts, err := cfg.ExplorerOptions()
	require.NoError(t, err)
	assert.Len(t, opts, 5)
	assert.Len(t, cfg.TreeOptions(), 1)
}

func TestOpenLocalSolver(t *testing.T) {
	cfg := Default()
	slv, closeSolver, err := cfg.OpenSolver(context.Background(), slog.Default())
	require.NoError(t, err)
	defer closeSolver()
	assert.IsType(t, &solver.Gini{}, slv)
}

func TestOpenUnreachableSolver(t *testing.T) {
	cfg := Default()
	cfg.SolverAddress = "127.0.0.1:1"
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, _, err := cfg.OpenSolver(ctx, slog.Default())
	assert.ErrorIs(t, err, solver.ErrUnavailable)
}

func TestOpenStore(t *testing.T) {
	cfg := Default()
	store, err := cfg.OpenStore(slog.Default())
	require.NoError(t, err)
	assert.Nil(t, store)

	cfg.StorePath = t.TempDir()
	store, err = cfg.OpenStore(slog.Default())
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.Save("run", []*itree.Entry{itree.MakeEntry(1, []expr.Expr{expr.Gts("x", 0)})}))
	entries, err := store.Load("run")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
