package session

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TokenStore is the persistence interface the Registry operates over. It
// exists to allow testing without a real database.
type TokenStore interface {
	List(ctx context.Context) ([]string, error)
	Insert(ctx context.Context, token string, expiresAt time.Time) error
	Delete(ctx context.Context, token string) error
	DeleteExpired(ctx context.Context, before time.Time) ([]string, error)
}

// Registry tracks live refresh tokens. The persisted store is the source of
// truth at startup; after Init, membership checks are served from an
// in-memory set. It is safe for concurrent use.
//
// The memory set is never mutated ahead of a persistence success: a token
// that failed to persist must not become valid in memory.
type Registry struct {
	store TokenStore

	mu   sync.RWMutex
	live map[string]struct{}
}

// NewRegistry creates a Registry over the given store. Call Init before use.
func NewRegistry(store TokenStore) *Registry {
	return &Registry{
		store: store,
		live:  make(map[string]struct{}),
	}
}

// Init loads all persisted refresh tokens into the in-memory set. Sessions
// survive process restarts through this reload.
func (r *Registry) Init(ctx context.Context) error {
	tokens, err := r.store.List(ctx)
	if err != nil {
		return fmt.Errorf("loading sessions: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.live = make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		r.live[t] = struct{}{}
	}
	return nil
}

// Create persists the refresh token, then adds it to the memory set.
func (r *Registry) Create(ctx context.Context, token string, expiresAt time.Time) error {
	if err := r.store.Insert(ctx, token, expiresAt); err != nil {
		return err
	}

	r.mu.Lock()
	r.live[token] = struct{}{}
	r.mu.Unlock()
	return nil
}

// IsValid reports whether the token is a live session. Signature and expiry
// checks are the Issuer's job; this is membership only.
func (r *Registry) IsValid(token string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.live[token]
	return ok
}

// Revoke removes the token from the store, then from the memory set.
// Revoking an absent token is not an error.
func (r *Registry) Revoke(ctx context.Context, token string) error {
	if err := r.store.Delete(ctx, token); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.live, token)
	r.mu.Unlock()
	return nil
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

// SweepExpired deletes sessions that expired before now from the store and
// drops them from the memory set. Returns the number removed.
func (r *Registry) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	tokens, err := r.store.DeleteExpired(ctx, now)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	for _, t := range tokens {
		delete(r.live, t)
	}
	r.mu.Unlock()
	return len(tokens), nil
}
