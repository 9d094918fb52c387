// Package store owns all per-user conversational state: the period
// ledgers, the session mode, the active period pointer and the unlock
// registry. The conversation router and the payment reconciler both go
// through it, so every mutating operation on a single user is serialized
// behind that user's mutex while different users never contend.
package store

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"budgetwizard/internal/core"
)

const shardCount = 32

// Store is a sharded per-user state table. User records are created
// explicitly on first touch: a new user starts in ModeAdd with the
// current wall-clock month as active period, so every ledger operation
// sees a well-defined period.
type Store struct {
	now    func() time.Time
	shards [shardCount]shard
}

type shard struct {
	mu    sync.RWMutex
	users map[core.UserID]*userState
}

type userState struct {
	mu           sync.Mutex
	mode         core.Mode
	activePeriod string
	ledgers      map[string][]core.Entry
	unlocked     map[string]struct{}
}

// New creates a Store on the wall clock.
func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock creates a Store with an injectable clock, used by tests to
// pin the period derivation.
func NewWithClock(now func() time.Time) *Store {
	s := &Store{now: now}
	for i := range s.shards {
		s.shards[i].users = make(map[core.UserID]*userState)
	}
	return s
}

func (s *Store) user(id core.UserID) *userState {
	sh := &s.shards[uint64(id)%shardCount]
	sh.mu.RLock()
	u, ok := sh.users[id]
	sh.mu.RUnlock()
	if ok {
		return u
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if u, ok := sh.users[id]; ok {
		return u
	}
	u = &userState{
		mode:         core.ModeAdd,
		activePeriod: core.PeriodOf(s.now()),
		ledgers:      make(map[string][]core.Entry),
		unlocked:     make(map[string]struct{}),
	}
	sh.users[id] = u
	return u
}

// Append records an expense entry in the user's active period with the
// current timestamp.
func (s *Store) Append(id core.UserID, amount decimal.Decimal, category, notes string) {
	u := s.user(id)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ledgers[u.activePeriod] = append(u.ledgers[u.activePeriod], core.Entry{
		Amount:     amount,
		Category:   category,
		Notes:      notes,
		CapturedAt: s.now(),
	})
}

// Entries returns a copy of the active period's entries in insertion order.
func (s *Store) Entries(id core.UserID) []core.Entry {
	u := s.user(id)
	u.mu.Lock()
	defer u.mu.Unlock()
	live := u.ledgers[u.activePeriod]
	out := make([]core.Entry, len(live))
	copy(out, live)
	return out
}

// ClearActivePeriod empties the active period's ledger. Other periods and
// the active-period pointer are untouched.
func (s *Store) ClearActivePeriod(id core.UserID) {
	u := s.user(id)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.ledgers[u.activePeriod] = nil
}

// Mode returns the user's conversational mode.
func (s *Store) Mode(id core.UserID) core.Mode {
	u := s.user(id)
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.mode
}

// SetMode sets the user's conversational mode.
func (s *Store) SetMode(id core.UserID, mode core.Mode) {
	u := s.user(id)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.mode = mode
}

// ActivePeriod returns the period new entries currently land in.
func (s *Store) ActivePeriod(id core.UserID) string {
	u := s.user(id)
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.activePeriod
}

// SetActivePeriod points the user at an existing or new period without
// clearing anything.
func (s *Store) SetActivePeriod(id core.UserID, period string) {
	u := s.user(id)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.activePeriod = period
}

// ResetToNewPeriod moves the user to the current wall-clock month, clears
// that month's ledger and puts the user back into ModeAdd.
func (s *Store) ResetToNewPeriod(id core.UserID) {
	u := s.user(id)
	u.mu.Lock()
	defer u.mu.Unlock()
	period := core.PeriodOf(s.now())
	u.activePeriod = period
	u.ledgers[period] = nil
	u.mode = core.ModeAdd
}

// Unlock marks a period as paid for. The unlock set only ever grows.
func (s *Store) Unlock(id core.UserID, period string) {
	u := s.user(id)
	u.mu.Lock()
	defer u.mu.Unlock()
	u.unlocked[period] = struct{}{}
}

// IsUnlocked reports whether the user has paid for the given period.
func (s *Store) IsUnlocked(id core.UserID, period string) bool {
	u := s.user(id)
	u.mu.Lock()
	defer u.mu.Unlock()
	_, ok := u.unlocked[period]
	return ok
}
