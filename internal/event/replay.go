package event

import (
	"sync"

	"github.com/google/uuid"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// DefaultEventBufferSize is the ring buffer capacity for the global SSE
// replay buffer (spec §4.7).
const DefaultEventBufferSize = 1000

// ReplayBuffer is a ring buffer of up to size envelopes. After scans for
// a given id and returns every envelope that arrived strictly after it;
// an id that has aged out of the buffer yields an empty slice, and the
// caller falls back to the live tail only.
type ReplayBuffer struct {
	mu   sync.RWMutex
	buf  []types.EventEnvelope
	size int
}

// NewReplayBuffer creates a buffer holding up to size envelopes.
func NewReplayBuffer(size int) *ReplayBuffer {
	return &ReplayBuffer{
		buf:  make([]types.EventEnvelope, 0, size),
		size: size,
	}
}

// Append adds env to the buffer, evicting the oldest entry if full.
func (r *ReplayBuffer) Append(env types.EventEnvelope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.buf) >= r.size {
		r.buf = append(r.buf[1:], env)
		return
	}
	r.buf = append(r.buf, env)
}

// After returns every envelope strictly after id, in arrival order. If
// id is not present in the buffer (never seen, or evicted), it returns
// an empty slice — the client has lagged beyond what we retain and will
// only receive the live tail going forward.
func (r *ReplayBuffer) After(id uuid.UUID) []types.EventEnvelope {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i, env := range r.buf {
		if env.ID == id {
			rest := make([]types.EventEnvelope, len(r.buf)-i-1)
			copy(rest, r.buf[i+1:])
			return rest
		}
	}
	return nil
}

// Snapshot returns a copy of every currently buffered envelope, oldest
// first — used to seed a brand-new SSE subscriber that sent no
// Last-Event-ID.
func (r *ReplayBuffer) Snapshot() []types.EventEnvelope {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.EventEnvelope, len(r.buf))
	copy(out, r.buf)
	return out
}
