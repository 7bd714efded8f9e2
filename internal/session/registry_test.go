package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// memStore is an in-memory TokenStore for registry tests.
type memStore struct {
	mu        sync.Mutex
	rows      map[string]time.Time
	insertErr error
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[string]time.Time)}
}

func (m *memStore) List(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tokens := make([]string, 0, len(m.rows))
	for t := range m.rows {
		tokens = append(tokens, t)
	}
	return tokens, nil
}

func (m *memStore) Insert(_ context.Context, token string, expiresAt time.Time) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[token] = expiresAt
	return nil
}

func (m *memStore) Delete(_ context.Context, token string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rows, token)
	return nil
}

func (m *memStore) DeleteExpired(_ context.Context, before time.Time) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var removed []string
	for t, exp := range m.rows {
		if exp.Before(before) {
			removed = append(removed, t)
			delete(m.rows, t)
		}
	}
	return removed, nil
}

func TestCreateAndIsValid(t *testing.T) {
	reg := NewRegistry(newMemStore())
	ctx := context.Background()

	if reg.IsValid("tok-1") {
		t.Fatal("token should not be valid before Create")
	}

	if err := reg.Create(ctx, "tok-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if !reg.IsValid("tok-1") {
		t.Fatal("token should be valid after Create")
	}
	if reg.Len() != 1 {
		t.Errorf("expected 1 live session, got %d", reg.Len())
	}
}

func TestCreate_PersistFailureDoesNotCache(t *testing.T) {
	store := newMemStore()
	store.insertErr = errors.New("db down")
	reg := NewRegistry(store)

	if err := reg.Create(context.Background(), "tok-1", time.Now().Add(time.Hour)); err == nil {
		t.Fatal("expected persistence error")
	}

	// A token that failed to persist must not become valid in memory.
	if reg.IsValid("tok-1") {
		t.Fatal("token should not be valid after a failed Create")
	}
}

func TestRevoke_Idempotent(t *testing.T) {
	reg := NewRegistry(newMemStore())
	ctx := context.Background()

	if err := reg.Create(ctx, "tok-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	if err := reg.Revoke(ctx, "tok-1"); err != nil {
		t.Fatalf("Revoke() error: %v", err)
	}
	if reg.IsValid("tok-1") {
		t.Fatal("token should not be valid after Revoke")
	}

	// Revoking an absent token is a no-op, not an error.
	if err := reg.Revoke(ctx, "tok-1"); err != nil {
		t.Fatalf("second Revoke() error: %v", err)
	}
}

func TestInit_ReloadsFromStore(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	first := NewRegistry(store)
	if err := first.Create(ctx, "tok-1", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	// Simulate a process restart: a fresh registry over the same store.
	second := NewRegistry(store)
	if second.IsValid("tok-1") {
		t.Fatal("token should not be valid before Init")
	}
	if err := second.Init(ctx); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if !second.IsValid("tok-1") {
		t.Fatal("token should be valid after reload from store")
	}
}

func TestSweepExpired(t *testing.T) {
	store := newMemStore()
	reg := NewRegistry(store)
	ctx := context.Background()

	now := time.Now()
	if err := reg.Create(ctx, "stale", now.Add(-time.Minute)); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := reg.Create(ctx, "fresh", now.Add(time.Hour)); err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	removed, err := reg.SweepExpired(ctx, now)
	if err != nil {
		t.Fatalf("SweepExpired() error: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed session, got %d", removed)
	}
	if reg.IsValid("stale") {
		t.Error("stale token should be gone after sweep")
	}
	if !reg.IsValid("fresh") {
		t.Error("fresh token should survive sweep")
	}
}

func TestConcurrentAccess(t *testing.T) {
	reg := NewRegistry(newMemStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			token := string(rune('a' + n%26))
			_ = reg.Create(ctx, token, time.Now().Add(time.Hour))
			reg.IsValid(token)
			_ = reg.Revoke(ctx, token)
		}(i)
	}
	wg.Wait()
}
