// internal/store/memory.go
//
// In-memory registry of active games.
// Holds at most one game per key (channel id, or user id for daily puzzles).
//
// Characteristics:
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Start runs its factory under the write lock, so two racing starts for
//     the same key can never both succeed.
//   - No implicit expiry: games stay until End or Release removes them.
//   - State is lost when the process restarts.

package store

import (
	"errors"
	"sync"
)

var (
	// ErrAlreadyActive is returned by Start when the key already has a game.
	ErrAlreadyActive = errors.New("store: game already active")
	// ErrNotActive is returned by End when the key has no game.
	ErrNotActive = errors.New("store: no active game")
)

// Registry maps keys to their single active game.
type Registry[G comparable] struct {
	mu    sync.RWMutex // guards games
	games map[string]G
}

// NewRegistry constructs an empty Registry.
func NewRegistry[G comparable]() *Registry[G] {
	return &Registry[G]{games: make(map[string]G)}
}

// Start creates a game for key with factory. If key already has a game the
// existing one is left untouched and ErrAlreadyActive is returned. A factory
// error is returned as-is and nothing is stored.
func (r *Registry[G]) Start(key string, factory func() (G, error)) (G, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var zero G
	if _, ok := r.games[key]; ok {
		return zero, ErrAlreadyActive
	}
	g, err := factory()
	if err != nil {
		return zero, err
	}
	r.games[key] = g
	return g, nil
}

// Get returns the game for key, if any.
func (r *Registry[G]) Get(key string) (G, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[key]
	return g, ok
}

// End removes and returns the game for key.
func (r *Registry[G]) End(key string) (G, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[key]
	if !ok {
		var zero G
		return zero, ErrNotActive
	}
	delete(r.games, key)
	return g, nil
}

// Release removes key only while it still maps to g. Engines call it when a
// game ends on its own; a successor started under the same key is kept.
func (r *Registry[G]) Release(key string, g G) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.games[key]; ok && cur == g {
		delete(r.games, key)
		return true
	}
	return false
}

// Len reports the number of active games.
func (r *Registry[G]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}

// Keys lists the active keys in no particular order.
func (r *Registry[G]) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.games))
	for k := range r.games {
		out = append(out, k)
	}
	return out
}
