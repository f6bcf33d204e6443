package authstate

import (
	"context"
	"sync"

	"signups/internal/domain/authsession"
)

type entry struct {
	store       *Store
	unsubscribe func()
}

// Registry keeps one Store per live session token. Stores are created on
// first use and dropped when their session signs out.
type Registry struct {
	source SessionSource
	loader ProfileLoader

	mu      sync.Mutex
	entries map[string]entry
}

// NewRegistry creates an empty registry.
func NewRegistry(source SessionSource, loader ProfileLoader) *Registry {
	return &Registry{
		source:  source,
		loader:  loader,
		entries: make(map[string]entry),
	}
}

// Get returns the started Store for token, or nil when the token has no
// live session.
func (r *Registry) Get(ctx context.Context, token string) *Store {
	if token == "" {
		return nil
	}
	if _, ok := r.source.Get(token); !ok {
		r.remove(token)
		return nil
	}

	r.mu.Lock()
	if e, ok := r.entries[token]; ok {
		r.mu.Unlock()
		return e.store
	}
	st := New(token, r.source, r.loader)
	unsubscribe := r.source.Subscribe(token, func(ev authsession.Event) {
		if ev.Kind == authsession.SignedOut {
			r.remove(token)
		}
	})
	r.entries[token] = entry{store: st, unsubscribe: unsubscribe}
	r.mu.Unlock()

	st.Start(ctx)
	return st
}

// Len returns the number of live stores.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// CloseAll closes every store. Used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]entry)
	r.mu.Unlock()
	for _, e := range entries {
		e.unsubscribe()
		e.store.Close()
	}
}

func (r *Registry) remove(token string) {
	r.mu.Lock()
	e, ok := r.entries[token]
	delete(r.entries, token)
	r.mu.Unlock()
	if ok {
		e.unsubscribe()
		e.store.Close()
	}
}
