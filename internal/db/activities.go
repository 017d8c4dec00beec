package db

import (
	"encoding/json"
	"time"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// ActivityRepo durably persists ActivityMsg entries, giving the session
// activity store an optional repository for replay after a process
// restart.
type ActivityRepo struct {
	store *Store
}

// Activities returns the activity repository bound to this store.
func (s *Store) Activities() *ActivityRepo { return &ActivityRepo{store: s} }

// activityRow is the envelope persisted in session_activities: enough
// to reconstruct the ordered, typed history for a session.
type activityRow struct {
	ID       string
	Kind     string
	Payload  json.RawMessage
	ByteSize int
}

// Append persists one activity at the given sequence number.
func (r *ActivityRepo) Append(sessionID string, sequence int, id string, kind string, msg types.ActivityMsg) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err = r.store.db.Exec(
		`INSERT INTO session_activities (id, session_id, sequence, kind, payload_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		id, sessionID, sequence, kind, string(payload), time.Now(),
	)
	return err
}

// ListForSession returns the raw (kind, payload) pairs for a session in
// sequence order; the activity package decodes them back into the
// correct ActivityMsg variant by kind.
func (r *ActivityRepo) ListForSession(sessionID string) ([]struct {
	Kind    string
	Payload []byte
}, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows, err := r.store.db.Query(
		`SELECT kind, payload_json FROM session_activities WHERE session_id = ? ORDER BY sequence ASC`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []struct {
		Kind    string
		Payload []byte
	}
	for rows.Next() {
		var kind, payload string
		if err := rows.Scan(&kind, &payload); err != nil {
			return nil, err
		}
		out = append(out, struct {
			Kind    string
			Payload []byte
		}{Kind: kind, Payload: []byte(payload)})
	}
	return out, rows.Err()
}
