package engine

import (
	"sync"

	"github.com/google/uuid"

	"weave/pkg/value"
)

// Continuation is the reified state a latent node suspends with: which
// node parked, which pin resumes it, and the walk's pure-node memo so
// resuming doesn't re-evaluate work already done upstream.
type Continuation struct {
	ID            uuid.UUID
	BlueprintID   string
	ExecutionID   string
	NodeID        string
	ResumePin     string
	Memo          map[string]value.Value
	WakeCondition map[string]interface{}
}

// ContinuationStore holds every parked latent continuation. Take is
// exactly-once: a continuation id can be resumed at most once; a second
// Resume of the same id finds nothing and reports ErrContinuationMissing.
type ContinuationStore struct {
	mu    sync.Mutex
	items map[uuid.UUID]*Continuation
}

func NewContinuationStore() *ContinuationStore {
	return &ContinuationStore{items: map[uuid.UUID]*Continuation{}}
}

func (s *ContinuationStore) Park(c *Continuation) uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.New()
	s.items[c.ID] = c
	return c.ID
}

// Take removes and returns a continuation, enforcing exactly-once
// resume: a second Take for the same id fails.
func (s *ContinuationStore) Take(id uuid.UUID) (*Continuation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.items[id]
	if !ok {
		return nil, false
	}
	delete(s.items, id)
	return c, true
}

func (s *ContinuationStore) CancelAll(blueprintID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.items {
		if c.BlueprintID == blueprintID {
			delete(s.items, id)
		}
	}
}

// Peek reads a parked continuation without taking it, used by
// wake-condition evaluation that needs to inspect (not yet resume) it.
func (s *ContinuationStore) Peek(id uuid.UUID) (*Continuation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.items[id]
	return c, ok
}

// MatchingPoint returns the ids of every parked continuation whose
// wake condition is a point-change on path.
func (s *ContinuationStore) MatchingPoint(path string) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []uuid.UUID
	for id, c := range s.items {
		if kind, _ := c.WakeCondition["kind"].(string); kind != WakeKindPoint {
			continue
		}
		if p, _ := c.WakeCondition["path"].(string); p == path {
			out = append(out, id)
		}
	}
	return out
}

func (s *ContinuationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
