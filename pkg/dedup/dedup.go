// Package dedup suppresses repeat scans of the same symbol within a time window.
//
// The store never reads the wall clock: every call carries the timestamp of the
// frame that produced the detection, so replayed or simulated streams behave
// exactly like live ones.
package dedup

import (
	"sync"
	"time"

	"github.com/Sumatoshi-tech/proscan/pkg/symbology"
)

// DefaultSweepEvery is the default number of admits between lazy eviction sweeps.
const DefaultSweepEvery = 256

// Outcome is the result of presenting an identity to the store.
type Outcome uint8

// Admit outcomes.
const (
	Admitted Outcome = iota
	Suppressed
)

func (o Outcome) String() string {
	if o == Suppressed {
		return "suppressed"
	}

	return "admitted"
}

// Store maps scan identities to their last admitted timestamp.
// All methods are safe for concurrent use; each Admit is atomic.
//
// A store may be shared by callers using different windows. Eviction keeps
// every entry younger than the largest window any caller has used, so a short
// window never forgets an identity a longer one still suppresses.
type Store struct {
	mu         sync.Mutex
	entries    map[symbology.Identity]time.Time
	maxWindow  time.Duration
	sweepEvery int
	sinceSweep int
}

// Option configures a Store.
type Option func(*Store)

// WithSweepEvery sets how many admits pass between eviction sweeps.
// Values below 1 sweep on every admit.
func WithSweepEvery(n int) Option {
	return func(s *Store) {
		s.sweepEvery = max(n, 1)
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		entries:    make(map[symbology.Identity]time.Time),
		sweepEvery: DefaultSweepEvery,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Admit decides whether id seen at ts is new.
//
// The scan is suppressed when id was admitted less than window before ts.
// A zero or negative window disables suppression and leaves the store untouched.
// A timestamp earlier than the recorded one counts as zero elapsed time and
// never moves the recorded timestamp backwards.
func (s *Store) Admit(id symbology.Identity, ts time.Time, window time.Duration) Outcome {
	if window <= 0 {
		return Admitted
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.maxWindow = max(s.maxWindow, window)

	s.sinceSweep++
	if s.sinceSweep >= s.sweepEvery {
		s.sweepLocked(ts)
	}

	if last, ok := s.entries[id]; ok {
		elapsed := max(ts.Sub(last), 0)
		if elapsed < window {
			return Suppressed
		}
	}

	s.entries[id] = ts

	return Admitted
}

// Sweep evicts every entry older than the largest window seen at now.
// It returns the number of entries removed.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.sweepLocked(now)
}

// MaxWindow returns the largest window any Admit call has used.
func (s *Store) MaxWindow() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.maxWindow
}

func (s *Store) sweepLocked(now time.Time) int {
	s.sinceSweep = 0

	var removed int

	for id, last := range s.entries {
		if now.Sub(last) > s.maxWindow {
			delete(s.entries, id)

			removed++
		}
	}

	return removed
}

// Len returns the number of tracked identities.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.entries)
}

// Clear forgets every identity.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.entries)
	s.maxWindow = 0
	s.sinceSweep = 0
}
