package explorer

import (
	"log/slog"
	"time"

	"itree"
	"itree/expr"
	"itree/scheduler"
)

// Configures an Explorer
type Option interface{}

type schedulerOption struct{ sch scheduler.Scheduler }

// Use the provided scheduler to select the next pending state.
//
// Default value is depth first search.
func WithScheduler(sch scheduler.Scheduler) Option {
	return schedulerOption{sch: sch}
}

type timeoutOption struct{ d time.Duration }

// Bound the time spent on each solver query.
//
// Default value is 0, which leaves queries unbounded.
func Timeout(d time.Duration) Option {
	return timeoutOption{d: d}
}

type maxStepsOption struct{ n int }

// Stop the exploration after n blocks have been executed across all paths.
//
// Default value is 0, which does not bound the exploration.
func MaxSteps(n int) Option {
	return maxStepsOption{n: n}
}

type maxDepthOption struct{ n int }

// Cut paths that have executed n blocks.
//
// Cut paths are left in the tree, so none of their ancestors are tabled.
// Default value is 0, which does not bound the paths.
func MaxDepth(n int) Option {
	return maxDepthOption{n: n}
}

type ignoreErrorsOption struct{}

// Continue exploring when an error block is reached.
// The errors are returned together when the exploration ends.
//
// By default the exploration stops at the first error.
func IgnoreErrors() Option {
	return ignoreErrorsOption{}
}

type ignorePanicsOption struct{}

// Do not recover panics raised while exploring.
//
// By default panics are recovered and returned as errors.
func IgnorePanics() Option {
	return ignorePanicsOption{}
}

type treeOptions struct{ opts []itree.Option }

// Options passed to the interpolation tree of every run
func WithTreeOptions(opts ...itree.Option) Option {
	return treeOptions{opts: opts}
}

type loggerOption struct{ logger *slog.Logger }

// Use the provided logger. Default value is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return loggerOption{logger: logger}
}

type preloadOption struct{ entries []*itree.Entry }

// Start every run with the provided subsumption table entries, e.g. entries saved by an earlier run.
func WithPreload(entries ...*itree.Entry) Option {
	return preloadOption{entries: entries}
}

type initialConstraintsOption struct{ constraints []expr.Expr }

// Constraints that hold on entry of the program
func InitialConstraints(constraints ...expr.Expr) Option {
	return initialConstraintsOption{constraints: constraints}
}
