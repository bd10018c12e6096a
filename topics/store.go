// Package topics keeps the rotation of newsletter topics. Every topic is
// either pending or completed; Next moves a random pending topic to
// completed and persists the change before returning it. When pending runs
// dry the completed topics are recycled, so no topic repeats until every
// other topic has been used once.
//
// The store assumes a single process owns the backend. Two processes
// sharing one file can both draw from the same pending set.
package topics

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"

	"newsletter_copilot/logging"
)

var (
	// ErrNoTopicsAvailable means both pending and completed are empty.
	ErrNoTopicsAvailable = errors.New("no topics available")
	// ErrPersistence means the state could not be written; the selection
	// that triggered the write was not committed.
	ErrPersistence = errors.New("topic store persistence failure")
)

// State is the full persisted rotation.
type State struct {
	Pending   []string `json:"pending" yaml:"pending"`
	Completed []string `json:"completed" yaml:"completed"`
}

// Clone returns a deep copy with non-nil slices.
func (s State) Clone() State {
	return State{
		Pending:   append(make([]string, 0, len(s.Pending)), s.Pending...),
		Completed: append(make([]string, 0, len(s.Completed)), s.Completed...),
	}
}

// Len is the total number of topics.
func (s State) Len() int {
	return len(s.Pending) + len(s.Completed)
}

// normalize drops duplicates, keeping the first occurrence. Pending is
// scanned before completed. It reports whether anything was dropped.
func (s State) normalize() (State, bool) {
	seen := make(map[string]struct{}, s.Len())
	out := State{Pending: []string{}, Completed: []string{}}
	dropped := false
	keep := func(dst []string, src []string) []string {
		for _, t := range src {
			if _, dup := seen[t]; dup {
				dropped = true
				continue
			}
			seen[t] = struct{}{}
			dst = append(dst, t)
		}
		return dst
	}
	out.Pending = keep(out.Pending, s.Pending)
	out.Completed = keep(out.Completed, s.Completed)
	return out, dropped
}

// Stats summarizes the rotation.
type Stats struct {
	Pending   int `json:"pending"`
	Completed int `json:"completed"`
	Total     int `json:"total"`
}

// Backend loads and saves the whole state at once.
type Backend interface {
	// Load returns the stored state and whether one existed.
	Load(ctx context.Context) (State, bool, error)
	// Save replaces the stored state atomically.
	Save(ctx context.Context, state State) error
}

// Store hands out topics without repetition. Safe for concurrent use
// within one process.
type Store struct {
	mu      sync.Mutex
	backend Backend
	state   State
	intn    func(int) int
	logger  logging.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithRand makes selection deterministic, for tests.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.intn = r.IntN }
}

// WithLogger sets the store logger.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open loads the persisted state. If the backend has none yet, pending is
// seeded from seed (duplicates dropped) and written back immediately. An
// existing state is never re-seeded.
func Open(ctx context.Context, backend Backend, seed []string, opts ...Option) (*Store, error) {
	if backend == nil {
		return nil, errors.New("topic backend is required")
	}
	s := &Store{
		backend: backend,
		intn:    rand.IntN,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	state, found, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load topics: %w", err)
	}
	if !found {
		state, _ = State{Pending: seed}.normalize()
		if err := backend.Save(ctx, state); err != nil {
			return nil, fmt.Errorf("%w: seed topics: %w", ErrPersistence, err)
		}
		s.logger.Info("topic store seeded", logging.Int("topics", state.Len()))
	} else {
		var dropped bool
		state, dropped = state.normalize()
		if dropped {
			if err := backend.Save(ctx, state); err != nil {
				return nil, fmt.Errorf("%w: rewrite deduplicated topics: %w", ErrPersistence, err)
			}
			s.logger.Warn("duplicate topics dropped from persisted state", logging.Int("topics", state.Len()))
		}
	}
	s.state = state
	return s, nil
}

// Next selects a pending topic uniformly at random, marks it completed and
// persists the change. If the write fails the in-memory state is left as it
// was and the error wraps ErrPersistence.
func (s *Store) Next(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.Clone()
	recycled := false
	if len(next.Pending) == 0 {
		if len(next.Completed) == 0 {
			return "", ErrNoTopicsAvailable
		}
		next.Pending, next.Completed = next.Completed, []string{}
		recycled = true
	}

	i := s.intn(len(next.Pending))
	topic := next.Pending[i]
	next.Pending = append(next.Pending[:i], next.Pending[i+1:]...)
	next.Completed = append(next.Completed, topic)

	if err := s.backend.Save(ctx, next); err != nil {
		return "", fmt.Errorf("%w: commit %q: %w", ErrPersistence, topic, err)
	}
	s.state = next

	if recycled {
		s.logger.Info("topic rotation recycled", logging.Int("topics", next.Len()))
	}
	s.logger.Debug("topic selected",
		logging.String("topic", topic),
		logging.Int("pending", len(next.Pending)),
		logging.Int("completed", len(next.Completed)),
	)
	return topic, nil
}

// Reset moves every topic back to pending, completed first, and persists it.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := State{
		Pending:   append(append([]string{}, s.state.Completed...), s.state.Pending...),
		Completed: []string{},
	}
	if err := s.backend.Save(ctx, next); err != nil {
		return fmt.Errorf("%w: reset: %w", ErrPersistence, err)
	}
	s.state = next
	return nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Stats returns counts for the current state.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Pending:   len(s.state.Pending),
		Completed: len(s.state.Completed),
		Total:     s.state.Len(),
	}
}
