package session

import (
	"sync"
	"testing"
	"time"
)

func testSession(principal string) *Session {
	return &Session{
		ID:        "test-" + principal,
		Principal: principal,
		Prompts:   []string{"one", "two", "three"},
		StartedAt: time.Now(),
	}
}

func TestStoreAcquireSerializes(t *testing.T) {
	s := NewStore(0)
	defer s.Close()

	// Counter increments under the principal's lock; any interleaving
	// would lose updates.
	const goroutines = 8
	const iterations = 200
	counter := 0

	var wg sync.WaitGroup
	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range iterations {
				h := s.Acquire("alice")
				counter++
				h.Release()
			}
		}()
	}
	wg.Wait()

	if counter != goroutines*iterations {
		t.Fatalf("counter = %d, want %d", counter, goroutines*iterations)
	}
}

func TestStoreReplaceLastWriterWins(t *testing.T) {
	s := NewStore(0)
	defer s.Close()

	h := s.Acquire("alice")
	h.Replace(testSession("alice"))
	h.Release()

	second := testSession("alice")
	second.ID = "second"
	h = s.Acquire("alice")
	h.Replace(second)
	h.Release()

	h = s.Acquire("alice")
	if got := h.Session(); got == nil || got.ID != "second" {
		t.Fatalf("got session %+v, want ID second", got)
	}
	h.Release()

	if n := s.Len(); n != 1 {
		t.Fatalf("Len = %d, want 1", n)
	}
}

func TestStoreDelete(t *testing.T) {
	s := NewStore(0)
	defer s.Close()

	h := s.Acquire("alice")
	h.Replace(testSession("alice"))
	h.Release()

	h = s.Acquire("alice")
	h.Delete()
	h.Release()

	h = s.Acquire("alice")
	if h.Session() != nil {
		t.Fatal("session survived Delete")
	}
	h.Release()
}

func TestStoreSweepEvictsIdle(t *testing.T) {
	s := NewStore(0)
	s.idleTimeout = time.Minute
	defer s.Close()

	h := s.Acquire("alice")
	h.Replace(testSession("alice"))
	h.Release()
	h = s.Acquire("bob")
	h.Replace(testSession("bob"))
	h.Release()

	// Not idle long enough: nothing happens.
	s.sweep(time.Now())
	if n := s.Len(); n != 2 {
		t.Fatalf("Len after early sweep = %d, want 2", n)
	}

	// Past the timeout: both go.
	s.sweep(time.Now().Add(2 * time.Minute))
	if n := s.Len(); n != 0 {
		t.Fatalf("Len after sweep = %d, want 0", n)
	}
	h = s.Acquire("alice")
	if h.Session() != nil {
		t.Fatal("evicted session still visible")
	}
	h.Release()
}

func TestStoreAcquireSurvivesConcurrentSweep(t *testing.T) {
	s := NewStore(0)
	s.idleTimeout = time.Minute
	defer s.Close()

	// An aggressive sweeper evicts any unlocked slot it can grab. A
	// handle returned by Acquire must still be the entry installed in
	// the map; a detached entry would drop Replace on the floor and let
	// a second Acquire for the same principal run concurrently.
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				s.sweep(time.Now().Add(time.Hour))
			}
		}
	}()

	for i := range 1000 {
		h := s.Acquire("alice")
		h.Replace(testSession("alice"))
		s.mu.Lock()
		attached := s.entries["alice"] == h.entry
		s.mu.Unlock()
		if !attached {
			close(stop)
			wg.Wait()
			t.Fatalf("iteration %d: handle refers to an entry no longer in the map", i)
		}
		h.Delete()
		h.Release()
	}

	close(stop)
	wg.Wait()
}

func TestStoreSweepSkipsHeldSlots(t *testing.T) {
	s := NewStore(0)
	s.idleTimeout = time.Minute
	defer s.Close()

	h := s.Acquire("alice")
	h.Replace(testSession("alice"))

	// The slot is locked mid-operation; the sweep must leave it alone
	// no matter how stale lastSeen looks.
	s.sweep(time.Now().Add(time.Hour))
	if h.Session() == nil {
		t.Fatal("sweep evicted a held slot")
	}
	h.Release()

	if n := s.Len(); n != 1 {
		t.Fatalf("Len = %d, want 1", n)
	}
}
