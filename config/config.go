package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"gopkg.in/yaml.v3"

	"itree"
	"itree/explorer"
	"itree/scheduler"
	"itree/solver"
	"itree/solverGrpc"
	"itree/tableStore"
)

var ErrInvalid = errors.New("config: invalid configuration")

// Configures an analysis run
type Engine struct {
	// Bound on each solver query. 0 leaves queries unbounded.
	Timeout time.Duration `yaml:"timeout"`
	// Bound on the subsumption table. 0 leaves it unbounded.
	MaxTableEntries int `yaml:"maxTableEntries"`
	// Bound on the blocks executed across all paths. 0 leaves it unbounded.
	MaxSteps int `yaml:"maxSteps"`
	// Bound on the blocks executed by one path. 0 leaves it unbounded.
	MaxDepth int `yaml:"maxDepth"`
	// Search strategy: dfs, bfs or random
	Strategy string `yaml:"strategy"`
	// Seed of the random strategy
	Seed int64 `yaml:"seed"`
	// Continue after the first error block is reached
	IgnoreErrors bool `yaml:"ignoreErrors"`
	// debug, info, warn or error
	LogLevel string `yaml:"logLevel"`
	// Directory of the table store. Empty disables persisting tables.
	StorePath string `yaml:"storePath"`
	// Address of a remote solver service. Empty uses the local solver.
	SolverAddress string `yaml:"solverAddress"`
}

func Default() Engine {
	return Engine{
		Timeout:  5 * time.Second,
		Strategy: "dfs",
		LogLevel: "info",
	}
}

// Decode a YAML configuration. Fields that are not set keep their default value.
func Parse(data []byte) (Engine, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Load the configuration at path and apply the ITREE_* environment overrides.
// An empty path only applies the overrides to the defaults.
func Load(path string) (Engine, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: decode %v: %w", path, err)
		}
	}
	if err := loadFromEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFromEnv(cfg *Engine) error {
	if v := os.Getenv("ITREE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: ITREE_TIMEOUT: %v", ErrInvalid, err)
		}
		cfg.Timeout = d
	}
	for name, field := range map[string]*int{
		"ITREE_MAX_TABLE_ENTRIES": &cfg.MaxTableEntries,
		"ITREE_MAX_STEPS":         &cfg.MaxSteps,
		"ITREE_MAX_DEPTH":         &cfg.MaxDepth,
	} {
		if v := os.Getenv(name); v != "" {
			i, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%w: %v: %v", ErrInvalid, name, err)
			}
			*field = i
		}
	}
	if v := os.Getenv("ITREE_STRATEGY"); v != "" {
		cfg.Strategy = v
	}
	if v := os.Getenv("ITREE_SEED"); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: ITREE_SEED: %v", ErrInvalid, err)
		}
		cfg.Seed = i
	}
	if v := os.Getenv("ITREE_IGNORE_ERRORS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: ITREE_IGNORE_ERRORS: %v", ErrInvalid, err)
		}
		cfg.IgnoreErrors = b
	}
	if v := os.Getenv("ITREE_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ITREE_STORE_PATH"); v != "" {
		cfg.StorePath = v
	}
	if v := os.Getenv("ITREE_SOLVER_ADDRESS"); v != "" {
		cfg.SolverAddress = v
	}
	return nil
}

func (c Engine) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be >= 0", ErrInvalid)
	}
	if c.MaxTableEntries < 0 {
		return fmt.Errorf("%w: maxTableEntries must be >= 0", ErrInvalid)
	}
	if c.MaxSteps < 0 {
		return fmt.Errorf("%w: maxSteps must be >= 0", ErrInvalid)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("%w: maxDepth must be >= 0", ErrInvalid)
	}
	if _, err := scheduler.New(c.Strategy, c.Seed); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

func (c Engine) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return level, fmt.Errorf("%w: logLevel %q", ErrInvalid, c.LogLevel)
	}
	return level, nil
}

// A text logger writing to w at the configured level
func (c Engine) Logger(w io.Writer) *slog.Logger {
	level, _ := c.Level()
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (c Engine) Scheduler() (scheduler.Scheduler, error) {
	return scheduler.New(c.Strategy, c.Seed)
}

// Options for the interpolation tree of a run. Additional options are applied after the configured ones.
func (c Engine) TreeOptions(extra ...itree.Option) []itree.Option {
	return append([]itree.Option{itree.MaxTableEntries(c.MaxTableEntries)}, extra...)
}

// Options for an explorer. Additional options are applied after the configured ones.
func (c Engine) ExplorerOptions(extra ...explorer.Option) ([]explorer.Option, error) {
	sch, err := c.Scheduler()
	if err != nil {
		return nil, err
	}
	opts := []explorer.Option{
		explorer.WithScheduler(sch),
		explorer.Timeout(c.Timeout),
		explorer.MaxSteps(c.MaxSteps),
		explorer.MaxDepth(c.MaxDepth),
	}
	if c.IgnoreErrors {
		opts = append(opts, explorer.IgnoreErrors())
	}
	return append(opts, extra...), nil
}

// The solver of a run: the remote solver service when an address is configured, the local solver otherwise.
//
// The remote service is pinged before it is returned. The returned function releases the solver.
func (c Engine) OpenSolver(ctx context.Context, logger *slog.Logger, opts ...grpc.DialOption) (solver.Solver, func() error, error) {
	if c.SolverAddress == "" {
		return solver.NewGini(logger), func() error { return nil }, nil
	}
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(solverGrpc.LoggingInterceptor(logger)),
	}, opts...)
	client, err := solverGrpc.Dial(c.SolverAddress, opts...)
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, nil, err
	}
	return client, client.Close, nil
}

// The table store of a run, or nil when no store path is configured
func (c Engine) OpenStore(logger *slog.Logger) (*tableStore.Store, error) {
	if c.StorePath == "" {
		return nil, nil
	}
	return tableStore.Open(c.StorePath, logger)
}
