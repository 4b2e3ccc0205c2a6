package itree

import (
	"log/slog"
)

// Configures a Tree. See MaxTableEntries, WithLogger, WithMetrics and WithRunID.
type Option interface{}

type maxTableEntriesOption struct{ n int }

// Bound the number of entries in the subsumption table.
//
// When the table is full the oldest entry is evicted before a new one is stored.
// Default value is 0, which leaves the table unbounded.
func MaxTableEntries(n int) Option {
	return maxTableEntriesOption{n: n}
}

type loggerOption struct{ logger *slog.Logger }

// Use the provided logger.
//
// Default value is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return loggerOption{logger: logger}
}

type metricsOption struct{ m *Metrics }

// Record tree activity in the provided metrics.
//
// Default value is a set of unregistered collectors.
func WithMetrics(m *Metrics) Option {
	return metricsOption{m: m}
}

type runIDOption struct{ id string }

// Identify the analysis run the tree belongs to.
//
// Default value is a random UUID.
func WithRunID(id string) Option {
	return runIDOption{id: id}
}
