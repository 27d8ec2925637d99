package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"go-callgraph-precision/internal/analysis"
	"go-callgraph-precision/internal/callgraph"
	"go-callgraph-precision/internal/ir"
)

// ErrRunNotFound is returned when no run is stored under a name.
var ErrRunNotFound = errors.New("run not found")

const runPrefix = "run/"

// Run is one persisted call graph together with the statistics of the
// analysis that produced it.
type Run struct {
	Name      string               `json:"name"`
	Algorithm analysis.Algorithm   `json:"algorithm"`
	CreatedAt time.Time            `json:"created_at"`
	Stats     analysis.Stats       `json:"stats"`
	Nodes     []ir.MethodSignature `json:"nodes"`
	Edges     []callgraph.Edge     `json:"edges"`
}

// Graph rebuilds the call graph of the run.
func (r *Run) Graph() *callgraph.Graph {
	g := callgraph.New()
	for _, n := range r.Nodes {
		g.AddNode(n)
	}
	for _, e := range r.Edges {
		g.AddEdge(e.Caller, e.Callee)
	}
	return g
}

// Summary describes a stored run without its graph.
type Summary struct {
	Name      string
	Algorithm analysis.Algorithm
	CreatedAt time.Time
	Nodes     int
	Edges     int
}

// Store keeps runs keyed by name.
type Store struct {
	db *badger.DB
}

// Open opens the store described by cfg. Caller must Close it.
func Open(cfg Config) (*Store, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func runKey(name string) []byte {
	return []byte(runPrefix + name)
}

// Save stores g under name, replacing an earlier run of the same name.
func (s *Store) Save(name string, g *callgraph.Graph, stats analysis.Stats) (*Run, error) {
	if name == "" {
		return nil, errors.New("run name must not be empty")
	}
	run := &Run{
		Name:      name,
		Algorithm: stats.Algorithm,
		CreatedAt: time.Now().UTC(),
		Stats:     stats,
		Nodes:     g.Nodes(),
		Edges:     g.Edges(),
	}
	data, err := json.Marshal(run)
	if err != nil {
		return nil, fmt.Errorf("encode run %s: %w", name, err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(runKey(name), data)
	})
	if err != nil {
		return nil, fmt.Errorf("save run %s: %w", name, err)
	}
	return run, nil
}

// Load returns the run stored under name.
func (s *Store) Load(name string) (*Run, error) {
	var run Run
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(runKey(name))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, name)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &run)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", name, err)
	}
	return &run, nil
}

// List summarises every stored run ordered by name.
func (s *Store) List() ([]Summary, error) {
	var out []Summary
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var run Run
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &run)
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", strings.TrimPrefix(string(item.Key()), runPrefix), err)
			}
			out = append(out, Summary{
				Name:      run.Name,
				Algorithm: run.Algorithm,
				CreatedAt: run.CreatedAt,
				Nodes:     len(run.Nodes),
				Edges:     len(run.Edges),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return out, nil
}

// Delete removes the run stored under name.
func (s *Store) Delete(name string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(runKey(name)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: %s", ErrRunNotFound, name)
			}
			return err
		}
		return txn.Delete(runKey(name))
	})
	if err != nil {
		return fmt.Errorf("delete run %s: %w", name, err)
	}
	return nil
}
