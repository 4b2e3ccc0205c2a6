package tableStore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"itree"
	"itree/expr"
)

var ErrInvalidRunID = errors.New("tableStore: invalid run id")

const keyPrefix = "table/"

// Persists subsumption tables so that a later run can start from the entries of an earlier one.
//
// Tables are stored per run id. Entries are kept in insertion order, which is the order they are tried in.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// The stored form of an entry
type record struct {
	ProgramPoint uint64   `json:"programPoint"`
	Interpolant  []string `json:"interpolant"`
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// Open the store in the directory at path. An empty path opens an in-memory store.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0750); err != nil {
			return nil, fmt.Errorf("tableStore: create directory %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path).WithSyncWrites(true)
	}
	opts = opts.WithNumVersionsToKeep(1).WithLogger(&badgerLogger{logger: logger})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("tableStore: open: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func runPrefix(runID string) ([]byte, error) {
	if runID == "" || strings.Contains(runID, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRunID, runID)
	}
	return []byte(keyPrefix + runID + "/"), nil
}

// Replace the table stored for runID with entries
func (s *Store) Save(runID string, entries []*itree.Entry) error {
	prefix, err := runPrefix(runID)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, prefix); err != nil {
			return err
		}
		for i, e := range entries {
			rec := record{ProgramPoint: uint64(e.Location())}
			for _, c := range e.Interpolant() {
				rec.Interpolant = append(rec.Interpolant, c.String())
			}
			val, err := json.Marshal(rec)
			if err != nil {
				return err
			}
			// Zero padded so that keys sort in insertion order
			key := fmt.Sprintf("%s%010d", prefix, i)
			if err := txn.Set([]byte(key), val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tableStore: save %v: %w", runID, err)
	}
	s.logger.Debug("table saved", slog.String("run", runID), slog.Int("entries", len(entries)))
	return nil
}

func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	keys := [][]byte{}
	for it.Rewind(); it.Valid(); it.Next() {
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	it.Close()
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// The table stored for runID, in insertion order. A run without a stored table has no entries.
func (s *Store) Load(runID string) ([]*itree.Entry, error) {
	prefix, err := runPrefix(runID)
	if err != nil {
		return nil, err
	}
	entries := []*itree.Entry{}
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var rec record
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
			if err != nil {
				return fmt.Errorf("entry %s: %w", item.Key(), err)
			}
			interpolant := make([]expr.Expr, 0, len(rec.Interpolant))
			for _, text := range rec.Interpolant {
				c, err := expr.Parse(text)
				if err != nil {
					return fmt.Errorf("entry %s: %w", item.Key(), err)
				}
				interpolant = append(interpolant, c)
			}
			entries = append(entries, itree.MakeEntry(itree.ProgramPoint(rec.ProgramPoint), interpolant))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tableStore: load %v: %w", runID, err)
	}
	return entries, nil
}

// The ids of all runs with a stored table, in key order
func (s *Store) Runs() ([]string, error) {
	runs := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			rest := strings.TrimPrefix(string(it.Item().Key()), keyPrefix)
			runID, _, _ := strings.Cut(rest, "/")
			if len(runs) == 0 || runs[len(runs)-1] != runID {
				runs = append(runs, runID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tableStore: list runs: %w", err)
	}
	return runs, nil
}
