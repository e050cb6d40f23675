package session

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestStoreUpdateCreatesAndMutates(t *testing.T) {
	s := NewStore(time.Minute)
	got := s.Update("conv-1", func(st *State) {
		st.AppendTurn(RoleScammer, "hello", time.Now().UTC())
		st.TurnCount++
		st.AddRiskFlag("urgency")
	})
	if got.ID != "conv-1" {
		t.Fatalf("ID = %q, want conv-1", got.ID)
	}
	if got.TurnCount != 1 || len(got.Turns) != 1 {
		t.Fatalf("unexpected state after update: %+v", got)
	}
	if !got.HasFlag("urgency") {
		t.Fatalf("risk flag not recorded: %+v", got.RiskFlags)
	}

	again, err := s.Get("conv-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if again.TurnCount != 1 {
		t.Fatalf("TurnCount = %d, want 1", again.TurnCount)
	}
}

func TestStoreSnapshotsAreIsolated(t *testing.T) {
	s := NewStore(time.Minute)
	snap := s.Update("conv-1", func(st *State) {
		st.AddRiskFlag("urgency")
	})
	snap.AddRiskFlag("threat")
	snap.Turns = append(snap.Turns, Turn{Role: RoleDecoy, Text: "x"})

	got, err := s.Get("conv-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.HasFlag("threat") || len(got.Turns) != 0 {
		t.Fatalf("snapshot mutation leaked into store: %+v", got)
	}
}

func TestStoreConcurrentUpdatesSameID(t *testing.T) {
	s := NewStore(time.Minute)
	const n = 64

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update("conv-1", func(st *State) {
				st.TurnCount++
			})
		}()
	}
	wg.Wait()

	got, err := s.Get("conv-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TurnCount != n {
		t.Fatalf("TurnCount = %d, want %d (lost updates)", got.TurnCount, n)
	}
}

func TestStoreResetAndList(t *testing.T) {
	s := NewStore(time.Minute)
	s.Update("b", func(*State) {})
	s.Update("a", func(*State) {})

	ids := s.List()
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("List() = %v, want [a b]", ids)
	}

	if err := s.Reset("a"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if err := s.Reset("a"); err != ErrNotFound {
		t.Fatalf("Reset() on missing id error = %v, want ErrNotFound", err)
	}
	if s.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", s.Count())
	}
}

func TestStoreUpdateNeverMutatesCondemnedEntry(t *testing.T) {
	s := NewStore(time.Minute)
	s.Update("conv-1", func(st *State) { st.TurnCount = 5 })

	// Condemn the live entry the way the janitor's first phase does,
	// delaying the map deletion so an Update can observe the condemned
	// entry and must retry rather than mutate it.
	s.mu.RLock()
	orphan := s.sessions["conv-1"]
	s.mu.RUnlock()

	orphan.mu.Lock()
	orphan.evicted = true
	orphan.mu.Unlock()

	go func() {
		time.Sleep(20 * time.Millisecond)
		s.mu.Lock()
		if s.sessions["conv-1"] == orphan {
			delete(s.sessions, "conv-1")
		}
		s.mu.Unlock()
	}()

	snap := s.Update("conv-1", func(st *State) { st.TurnCount++ })
	if snap.TurnCount != 1 {
		t.Fatalf("TurnCount = %d, want 1 from a fresh entry", snap.TurnCount)
	}

	orphan.mu.Lock()
	orphanCount := orphan.state.TurnCount
	orphan.mu.Unlock()
	if orphanCount != 5 {
		t.Fatalf("condemned state mutated: TurnCount = %d, want 5", orphanCount)
	}

	got, err := s.Get("conv-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.TurnCount != 1 {
		t.Fatalf("live TurnCount = %d, want 1 (update lost)", got.TurnCount)
	}
}

func TestStoreUpdatesDuringEvictionAreNotLost(t *testing.T) {
	s := NewStore(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartJanitor(ctx, time.Millisecond)

	// Resets race the janitor's map scans; every Update must still land
	// in whatever entry is live when it returns.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = s.Reset("conv-1")
		}
	}()

	for i := 0; i < 200; i++ {
		snap := s.Update("conv-1", func(st *State) { st.TurnCount++ })
		if snap.TurnCount < 1 {
			t.Fatalf("snapshot missing the update: %+v", snap)
		}
	}
	<-done
}

func TestStoreJanitorEvictsIdle(t *testing.T) {
	s := NewStore(30 * time.Millisecond)
	s.Update("conv-1", func(*State) {})

	evicted := make(chan string, 1)
	s.SetEvictHook(func(st *State) { evicted <- st.ID })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case id := <-evicted:
		if id != "conv-1" {
			t.Fatalf("evicted id = %q, want conv-1", id)
		}
	case <-time.After(time.Second):
		t.Fatalf("idle session was not evicted")
	}
	if _, err := s.Get("conv-1"); err != ErrNotFound {
		t.Fatalf("Get() after eviction error = %v, want ErrNotFound", err)
	}
}
