package session

import (
	"sync"
	"time"
)

// DefaultIdleTimeout is how long a session may sit idle before the
// janitor evicts it.
const DefaultIdleTimeout = 5 * time.Minute

// Store holds the active sessions, one slot per principal, with
// per-principal exclusive locking and idle eviction.
//
// The store-wide mutex guards only the map itself; all collaborator work
// during an attempt happens under the principal's lock, never under the
// map lock, so principals proceed fully in parallel.
type Store struct {
	mu      sync.Mutex
	entries map[string]*entry

	idleTimeout time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// entry is one principal's slot. Its mutex serializes all session
// operations for that principal.
type entry struct {
	mu       sync.Mutex
	sess     *Session
	lastSeen time.Time
}

// NewStore creates a session store. A positive idleTimeout starts a
// janitor goroutine that evicts sessions idle for longer than the
// timeout; zero disables eviction (tests only). Call Close to stop the
// janitor.
func NewStore(idleTimeout time.Duration) *Store {
	s := &Store{
		entries:     make(map[string]*entry),
		idleTimeout: idleTimeout,
		stop:        make(chan struct{}),
	}
	if idleTimeout > 0 {
		go s.janitor()
	}
	return s
}

// Acquire locks the principal's slot and returns a handle to it. The
// caller must Release the handle. Acquire blocks while another operation
// for the same principal is in flight; operations for other principals
// are unaffected.
//
// Between looking up the entry and winning its lock, the janitor may have
// swept the entry out of the map, so the lookup is re-checked under the
// map lock and retried on a mismatch. A handle therefore always refers to
// the entry currently installed for the principal.
func (s *Store) Acquire(principal string) *Handle {
	for {
		s.mu.Lock()
		e, ok := s.entries[principal]
		if !ok {
			e = &entry{lastSeen: time.Now()}
			s.entries[principal] = e
		}
		s.mu.Unlock()

		e.mu.Lock()
		s.mu.Lock()
		if s.entries[principal] == e {
			s.mu.Unlock()
			return &Handle{entry: e}
		}
		s.mu.Unlock()
		e.mu.Unlock()
	}
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.sess != nil {
			n++
		}
	}
	return n
}

// Close stops the janitor. Held handles stay valid.
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// janitor periodically evicts idle sessions and empty slots.
func (s *Store) janitor() {
	interval := s.idleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

// sweep removes slots that are idle past the timeout. Slots whose lock is
// currently held are skipped; they are by definition not idle. Empty
// slots are held to the same idle bound so a concurrent Acquire that just
// created one is never pulled out from under its caller.
func (s *Store) sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for principal, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if now.Sub(e.lastSeen) > s.idleTimeout {
			delete(s.entries, principal)
		}
		e.mu.Unlock()
	}
}

// Handle is an exclusively-held view of one principal's session slot.
type Handle struct {
	entry *entry
}

// Session returns the current session, or nil if none is active.
func (h *Handle) Session() *Session {
	return h.entry.sess
}

// Replace installs a new session, discarding any previous one
// (last-writer-wins).
func (h *Handle) Replace(sess *Session) {
	h.entry.sess = sess
}

// Delete destroys the current session.
func (h *Handle) Delete() {
	h.entry.sess = nil
}

// Release records activity and unlocks the slot.
func (h *Handle) Release() {
	h.entry.lastSeen = time.Now()
	h.entry.mu.Unlock()
}
