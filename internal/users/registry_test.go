package users

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestRegisterAndLookup(t *testing.T) {
	registry := NewRegistry()

	user, err := registry.Register("alice", "hash", false)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID == "" {
		t.Fatal("Expected a non-empty user ID")
	}

	found, err := registry.GetByUsername("alice")
	if err != nil {
		t.Fatalf("GetByUsername failed: %v", err)
	}
	if found.ID != user.ID {
		t.Fatalf("Expected user %s, got %s", user.ID, found.ID)
	}

	if _, err := registry.GetByUsername("bob"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestRegisterRejectsDuplicate(t *testing.T) {
	registry := NewRegistry()

	if _, err := registry.Register("alice", "hash", false); err != nil {
		t.Fatalf("First Register failed: %v", err)
	}
	if _, err := registry.Register("alice", "other", false); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("Expected ErrUsernameTaken, got %v", err)
	}
}

func TestRegisterConcurrentSameUsername(t *testing.T) {
	registry := NewRegistry()

	const workers = 32
	var successes int64
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := registry.Register("alice", "hash", false); err == nil {
				atomic.AddInt64(&successes, 1)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("Expected exactly one successful registration, got %d", successes)
	}
}
