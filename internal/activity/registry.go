package activity

import (
	"sync"

	"github.com/souky-byte/opencode-studio/internal/db"
)

// Registry maps session id to its owned activity store. GetOrCreate is
// idempotent under concurrent callers: exactly one store is created per
// session id no matter how many goroutines race to create it.
type Registry struct {
	repo *db.ActivityRepo

	mu     sync.RWMutex
	stores map[string]*Store
}

// NewRegistry builds an empty registry. repo may be nil for a registry
// that does not durably persist activities (e.g. tests).
func NewRegistry(repo *db.ActivityRepo) *Registry {
	return &Registry{repo: repo, stores: make(map[string]*Store)}
}

// GetOrCreate returns the store for sessionID, creating it if absent.
// Double-checked locking: the common case (store already exists) only
// takes a read lock.
func (r *Registry) GetOrCreate(sessionID string) *Store {
	r.mu.RLock()
	if s, ok := r.stores[sessionID]; ok {
		r.mu.RUnlock()
		return s
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[sessionID]; ok {
		return s
	}
	s := NewStore(sessionID, r.repo)
	r.stores[sessionID] = s
	return s
}

// GetOrCreateWithHistory is GetOrCreate, additionally loading any prior
// activities from the repository before returning — so that a caller
// about to attach a subscriber observes the full durable history, not
// just what this process has pushed since startup. No-op if the store
// already existed in this process (it already holds its history) or if
// no repository is configured.
func (r *Registry) GetOrCreateWithHistory(sessionID string) (*Store, error) {
	r.mu.RLock()
	if s, ok := r.stores[sessionID]; ok {
		r.mu.RUnlock()
		return s, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.stores[sessionID]; ok {
		return s, nil
	}

	s := NewStore(sessionID, r.repo)
	if r.repo != nil {
		rows, err := r.repo.ListForSession(sessionID)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			msg, err := DecodeActivity(row.Kind, row.Payload)
			if err != nil {
				continue // skip rows this process no longer knows how to decode
			}
			seq := s.nextSeq
			s.nextSeq++
			b := approxBytes(msg)
			s.history = append(s.history, historyEntry{seq: seq, msg: msg, bytes: b})
			s.totalBytes += b
		}
	}
	r.stores[sessionID] = s
	return s, nil
}

// Get returns the store for sessionID if it exists, without creating one.
func (r *Registry) Get(sessionID string) (*Store, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.stores[sessionID]
	return s, ok
}

// Remove drops a session's store from the registry, e.g. once a session
// is known to be fully drained and will never be subscribed to again.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stores, sessionID)
}
