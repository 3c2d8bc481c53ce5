package server

import (
	"sync"
	"testing"
)

func TestRegistryRegisterLookup(t *testing.T) {
	r := newRegistry()
	c := &client{}

	id := r.register(c)
	if id == "" {
		t.Fatal("register returned empty ID")
	}

	got, ok := r.lookup(id)
	if !ok {
		t.Fatal("lookup failed after register")
	}
	if got != c {
		t.Error("lookup returned a different connection")
	}
}

func TestRegistryRegisterIdempotent(t *testing.T) {
	r := newRegistry()
	c := &client{}

	first := r.register(c)
	second := r.register(c)
	if first != second {
		t.Errorf("re-registering returned %q, want existing ID %q", second, first)
	}
	if r.len() != 1 {
		t.Errorf("len = %d, want 1", r.len())
	}
}

func TestRegistryRemove(t *testing.T) {
	r := newRegistry()
	c := &client{}
	id := r.register(c)

	r.remove(c)
	if _, ok := r.lookup(id); ok {
		t.Error("lookup succeeded after remove")
	}
	if r.len() != 0 {
		t.Errorf("len = %d, want 0", r.len())
	}

	// Removing an unregistered connection is a no-op.
	r.remove(&client{})
	r.remove(c)
}

func TestRegistryFreshIDAfterRemove(t *testing.T) {
	r := newRegistry()
	c := &client{}

	first := r.register(c)
	r.remove(c)
	second := r.register(c)
	if first == second {
		t.Error("re-registering after remove reused the old ID")
	}
}

func TestRegistryIDsSnapshot(t *testing.T) {
	r := newRegistry()
	want := make(map[string]bool)
	for i := 0; i < 5; i++ {
		want[r.register(&client{})] = true
	}

	ids := r.ids()
	if len(ids) != 5 {
		t.Fatalf("ids returned %d entries, want 5", len(ids))
	}
	for _, id := range ids {
		if !want[id] {
			t.Errorf("ids returned unknown ID %q", id)
		}
	}
}

// TestRegistryConcurrent exercises register/remove/lookup from many
// goroutines; run with -race.
func TestRegistryConcurrent(t *testing.T) {
	r := newRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				c := &client{}
				id := r.register(c)
				if _, ok := r.lookup(id); !ok {
					t.Error("lookup failed for registered connection")
					return
				}
				r.ids()
				r.remove(c)
				if _, ok := r.lookup(id); ok {
					t.Error("lookup succeeded after remove")
					return
				}
			}
		}()
	}
	wg.Wait()

	if r.len() != 0 {
		t.Errorf("len = %d after all removes, want 0", r.len())
	}
}
