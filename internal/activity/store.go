// Package activity implements the per-session activity store and
// registry: a bounded, ordered history of SessionActivityMsg values with
// a live broadcast channel, plus the review-text and SSE-part parsing
// that feeds it.
package activity

import (
	"encoding/json"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/souky-byte/opencode-studio/internal/db"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

// HistoryBytesLimit bounds the total approximate size of a session's
// retained history before FIFO eviction from the head kicks in.
const HistoryBytesLimit = 10 * 1024 * 1024 // 10 MiB

// BroadcastCapacity is the buffer size of each subscriber's channel.
const BroadcastCapacity = 1000

// Event pairs a history sequence number with the message at that
// position, used both for live broadcast and for Last-Event-ID replay.
type Event struct {
	Seq int
	Msg types.ActivityMsg
}

type historyEntry struct {
	seq   int
	msg   types.ActivityMsg
	bytes int
}

// Store is the append-only, byte-bounded activity history for a single
// session, plus a fan-out broadcast of live pushes.
type Store struct {
	sessionID string
	repo      *db.ActivityRepo

	mu         sync.RWMutex
	history    []historyEntry
	totalBytes int
	nextSeq    int
	finished   bool

	subMu     sync.Mutex
	subs      map[uint64]chan Event
	nextSubID uint64
}

// NewStore builds an empty activity store for a session. repo may be
// nil, in which case pushes are not durably persisted.
func NewStore(sessionID string, repo *db.ActivityRepo) *Store {
	return &Store{
		sessionID: sessionID,
		repo:      repo,
		subs:      make(map[uint64]chan Event),
	}
}

// Push appends msg to the history, evicting from the head if needed to
// stay under HistoryBytesLimit, persists it if a repository is
// configured, and broadcasts it to every live subscriber. A Finished
// message marks the store terminal but is still accepted and broadcast
// like any other push — late re-emissions from the backend are not
// rejected, only ignored by well-behaved consumers.
func (s *Store) Push(msg types.ActivityMsg) Event {
	approxSize := approxBytes(msg)

	s.mu.Lock()
	seq := s.nextSeq
	s.nextSeq++
	s.history = append(s.history, historyEntry{seq: seq, msg: msg, bytes: approxSize})
	s.totalBytes += approxSize
	for s.totalBytes > HistoryBytesLimit && len(s.history) > 1 {
		s.totalBytes -= s.history[0].bytes
		s.history = s.history[1:]
	}
	if _, ok := msg.(types.Finished); ok {
		s.finished = true
	}
	s.mu.Unlock()

	if s.repo != nil {
		id := msg.ID()
		if id == "" {
			// JsonPatch and Finished carry no backend correlation id;
			// mint one so the row still has a stable primary key.
			id = ulid.Make().String()
		}
		kind := msg.ActivityType()
		if err := s.repo.Append(s.sessionID, seq, id, kind, msg); err != nil {
			// Durable backfill is best-effort: history and live
			// broadcast remain canonical for this process's lifetime.
			_ = err
		}
	}

	ev := Event{Seq: seq, Msg: msg}
	s.broadcast(ev)
	return ev
}

// IsFinished reports whether a terminal Finished message has been
// pushed.
func (s *Store) IsFinished() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finished
}

// History returns a snapshot of the retained history in order.
func (s *Store) History() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.history))
	for i, e := range s.history {
		out[i] = Event{Seq: e.seq, Msg: e.msg}
	}
	return out
}

// After returns every retained event with sequence number > seq, used
// to serve Last-Event-ID resumption. If seq has already been evicted,
// this simply returns whatever is retained (the earliest available
// history), since the store makes no stronger guarantee once a
// sequence number ages out of the byte-bounded window.
func (s *Store) After(seq int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, e := range s.history {
		if e.seq > seq {
			out = append(out, Event{Seq: e.seq, Msg: e.msg})
		}
	}
	return out
}

// Subscribe attaches a new live subscriber and returns its channel plus
// an unsubscribe function. The channel has capacity BroadcastCapacity;
// a slow subscriber has messages dropped rather than blocking pushes —
// the retained history remains the canonical source for reconnection.
func (s *Store) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, BroadcastCapacity)

	s.subMu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = ch
	s.subMu.Unlock()

	unsubscribe := func() {
		s.subMu.Lock()
		if existing, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(existing)
		}
		s.subMu.Unlock()
	}
	return ch, unsubscribe
}

func (s *Store) broadcast(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Drop for this lagging subscriber; history stays canonical.
		}
	}
}

func approxBytes(msg types.ActivityMsg) int {
	data, err := json.Marshal(msg)
	if err != nil {
		return 0
	}
	return len(data)
}
