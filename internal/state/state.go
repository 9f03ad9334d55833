package state

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anjumanuel/digital-commerce-readiness/internal/engine"
	"github.com/anjumanuel/digital-commerce-readiness/internal/errs"
)

// ErrSessionNotFound is returned for an unknown or deleted session id.
var ErrSessionNotFound = errors.New("session not found")

// Session is one dashboard viewer's filter state.
type Session struct {
	ID        string             `json:"id"`
	Filters   engine.FilterState `json:"filters"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// Validator checks a candidate filter state before it is stored.
type Validator func(engine.FilterState) error

// Store holds every live session. Sessions are handed out as copies, so a
// render pass always reads a consistent snapshot.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	validate Validator
	now      func() time.Time
}

// NewStore creates an empty store. validate may be nil.
func NewStore(validate Validator) *Store {
	if validate == nil {
		validate = func(engine.FilterState) error { return nil }
	}
	return &Store{
		sessions: make(map[string]*Session),
		validate: validate,
		now:      time.Now,
	}
}

// Create registers a new session with the given initial filters.
func (s *Store) Create(initial engine.FilterState) (Session, error) {
	if err := s.validate(initial); err != nil {
		return Session{}, err
	}
	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Filters:   initial.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess.copy(), nil
}

// Get returns a snapshot of a session.
func (s *Store) Get(id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return sess.copy(), nil
}

// Delete removes a session.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Apply applies a filter event to a session. The event is validated against
// the dataset first; a rejected event leaves the session unchanged.
func (s *Store) Apply(id string, ev Event) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}

	next := sess.Filters.Clone()
	if err := ev.apply(&next); err != nil {
		return Session{}, err
	}
	if err := s.validate(next); err != nil {
		return Session{}, err
	}
	sess.Filters = next
	sess.UpdatedAt = s.now()
	return sess.copy(), nil
}

func (sess *Session) copy() Session {
	out := *sess
	out.Filters = sess.Filters.Clone()
	return out
}

// ============================================================================
// EVENTS
// ============================================================================

// Event is a discrete user filter action. Each replaces one field.
type Event interface {
	apply(*engine.FilterState) error
}

// ReplaceClusters replaces the selected cluster set. An empty set is valid
// and empties every row-preserving chart.
type ReplaceClusters struct{ Clusters []string }

// ReplaceRegion selects a single region; "" clears the selection.
type ReplaceRegion struct{ Region string }

// ReplaceCompare replaces the regions shown side by side.
type ReplaceCompare struct{ Regions []string }

// ReplaceMetric selects the numeric column used by metric-driven charts.
type ReplaceMetric struct{ Metric string }

func (e ReplaceClusters) apply(fs *engine.FilterState) error {
	fs.SelectedClusters = append([]string{}, e.Clusters...)
	return nil
}

func (e ReplaceRegion) apply(fs *engine.FilterState) error {
	fs.SelectedRegion = e.Region
	return nil
}

func (e ReplaceCompare) apply(fs *engine.FilterState) error {
	fs.CompareRegions = append([]string{}, e.Regions...)
	return nil
}

func (e ReplaceMetric) apply(fs *engine.FilterState) error {
	if e.Metric == "" {
		return &errs.NotFoundError{What: "numeric column", Name: e.Metric}
	}
	fs.SelectedMetric = e.Metric
	return nil
}
