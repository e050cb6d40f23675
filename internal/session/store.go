package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// Role identifies which side of the conversation produced a turn.
type Role string

const (
	RoleScammer Role = "scammer"
	RoleDecoy   Role = "decoy"
)

var ErrNotFound = errors.New("conversation not found")

// Turn is a single recorded message. Immutable once appended.
type Turn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// State is the mutable per-conversation record. It is owned by the Store;
// callers mutate it only inside Store.Update and otherwise see clones.
type State struct {
	ID             string          `json:"conversation_id"`
	Turns          []Turn          `json:"turns"`
	RiskFlags      map[string]bool `json:"risk_flags"`
	QuestionsAsked map[string]bool `json:"questions_asked"`
	TurnCount      int             `json:"turn_count"`
	StartedAt      time.Time       `json:"started_at"`
	LastActivityAt time.Time       `json:"last_activity_at"`
}

// AddRiskFlag records a triggered category. The flag set only grows.
func (s *State) AddRiskFlag(flag string) {
	if s.RiskFlags == nil {
		s.RiskFlags = make(map[string]bool)
	}
	s.RiskFlags[flag] = true
}

func (s *State) FlagCount() int { return len(s.RiskFlags) }

func (s *State) HasFlag(flag string) bool { return s.RiskFlags[flag] }

// MarkQuestionAsked records an investigative question so it is never reused
// within the session.
func (s *State) MarkQuestionAsked(q string) {
	if s.QuestionsAsked == nil {
		s.QuestionsAsked = make(map[string]bool)
	}
	s.QuestionsAsked[q] = true
}

func (s *State) QuestionAsked(q string) bool { return s.QuestionsAsked[q] }

// AppendTurn records a message in chronological order.
func (s *State) AppendTurn(role Role, text string, at time.Time) {
	s.Turns = append(s.Turns, Turn{Role: role, Text: text, At: at})
}

// Transcript concatenates all turns of the given role, oldest first.
func (s *State) Transcript(role Role) []string {
	out := make([]string, 0, len(s.Turns))
	for _, t := range s.Turns {
		if t.Role == role {
			out = append(out, t.Text)
		}
	}
	return out
}

// entry pairs a conversation's state with its serialization lock. evicted
// marks an entry condemned by the janitor or a reset; it is set under mu,
// and a condemned entry never accepts further mutations even if a caller
// obtained the pointer before the map deletion landed.
type entry struct {
	mu      sync.Mutex
	state   *State
	evicted bool
}

// Store owns all conversation state. Lookup is O(1) by conversation id;
// read-modify-write access is serialized per conversation so concurrent
// deliveries for the same id never lose flag or counter updates.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*entry
	idleTimeout time.Duration
	onEvict     func(*State)
}

func NewStore(idleTimeout time.Duration) *Store {
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &Store{
		sessions:    make(map[string]*entry),
		idleTimeout: idleTimeout,
	}
}

func (s *Store) SetEvictHook(hook func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = hook
}

func (s *Store) getOrCreate(id string) *entry {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[id]; ok {
		return e
	}
	now := time.Now().UTC()
	e = &entry{state: &State{
		ID:             id,
		RiskFlags:      make(map[string]bool),
		QuestionsAsked: make(map[string]bool),
		StartedAt:      now,
		LastActivityAt: now,
	}}
	s.sessions[id] = e
	return e
}

// Update runs fn against the session for id, creating it on first use.
// fn runs with the per-conversation lock held; the returned snapshot is a
// deep clone safe to read without further synchronization. A lookup that
// loses the race with eviction retries against a fresh entry, so the
// mutation always lands in live state.
func (s *Store) Update(id string, fn func(*State)) *State {
	for {
		e := s.getOrCreate(id)
		e.mu.Lock()
		if e.evicted {
			e.mu.Unlock()
			// Finish the eviction ourselves so the retry sees a fresh
			// entry instead of spinning on the condemned one.
			s.mu.Lock()
			if s.sessions[id] == e {
				delete(s.sessions, id)
			}
			s.mu.Unlock()
			continue
		}
		fn(e.state)
		e.state.LastActivityAt = time.Now().UTC()
		snap := clone(e.state)
		e.mu.Unlock()
		return snap
	}
}

// Get returns a snapshot of the session for id.
func (s *Store) Get(id string) (*State, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return nil, ErrNotFound
	}
	return clone(e.state), nil
}

// Reset drops the session for id. Returns ErrNotFound if it never existed.
// The entry is condemned before the map deletion so an Update holding a
// stale pointer retries instead of mutating removed state.
func (s *Store) Reset(id string) error {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	e.evicted = true
	e.mu.Unlock()

	s.mu.Lock()
	if s.sessions[id] == e {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	return nil
}

// List returns all known conversation ids in stable order.
func (s *Store) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// StartJanitor evicts idle sessions on a fixed interval until ctx is done.
// Eviction is keyed on last activity so long-running scam conversations
// stay alive while abandoned ones get reclaimed.
func (s *Store) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.evictIdle()
			}
		}
	}()
}

// evictIdle condemns idle entries under their own lock first, then removes
// them from the map. The two phases keep the lock order (store lock, then
// entry lock) consistent with Update's retry check.
func (s *Store) evictIdle() {
	now := time.Now().UTC()

	s.mu.RLock()
	entries := make(map[string]*entry, len(s.sessions))
	for id, e := range s.sessions {
		entries[id] = e
	}
	hook := s.onEvict
	s.mu.RUnlock()

	var (
		ids     []string
		evicted []*State
	)
	for id, e := range entries {
		e.mu.Lock()
		if !e.evicted && now.Sub(e.state.LastActivityAt) >= s.idleTimeout {
			e.evicted = true
			ids = append(ids, id)
			evicted = append(evicted, clone(e.state))
		}
		e.mu.Unlock()
	}
	if len(ids) == 0 {
		return
	}

	s.mu.Lock()
	for _, id := range ids {
		if s.sessions[id] == entries[id] {
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	if hook != nil {
		for _, st := range evicted {
			hook(st)
		}
	}
}

func clone(s *State) *State {
	c := *s
	c.Turns = append([]Turn(nil), s.Turns...)
	c.RiskFlags = make(map[string]bool, len(s.RiskFlags))
	for k, v := range s.RiskFlags {
		c.RiskFlags[k] = v
	}
	c.QuestionsAsked = make(map[string]bool, len(s.QuestionsAsked))
	for k, v := range s.QuestionsAsked {
		c.QuestionsAsked[k] = v
	}
	return &c
}
