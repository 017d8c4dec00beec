package db

import (
	"database/sql"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// SessionRepo persists types.Session rows.
type SessionRepo struct {
	store *Store
}

// Sessions returns the session repository bound to this store.
func (s *Store) Sessions() *SessionRepo { return &SessionRepo{store: s} }

// Create inserts a new session row (status = Pending or Running).
func (r *SessionRepo) Create(sess types.Session) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err := r.store.db.Exec(
		`INSERT INTO sessions (id, task_id, phase, status, opencode_session_id, created_at,
		 implementation_phase_number, implementation_phase_title)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.TaskID, string(sess.Phase), string(sess.Status),
		nullString(sess.OpenCodeSessionID), sess.CreatedAt,
		nullInt(sess.ImplementationPhaseNumber), nullString(sess.ImplementationPhaseTitle),
	)
	return err
}

// UpdateStatus updates a session's terminal status (Completed or
// Failed) once the backend dispatch finishes.
func (r *SessionRepo) UpdateStatus(id string, status types.SessionStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err := r.store.db.Exec(`UPDATE sessions SET status = ? WHERE id = ?`, string(status), id)
	return err
}

// Get loads a session by id.
func (r *SessionRepo) Get(id string) (types.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	row := r.store.db.QueryRow(
		`SELECT id, task_id, phase, status, opencode_session_id, created_at,
		 implementation_phase_number, implementation_phase_title
		 FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// ListForTask returns every session dispatched for a task, oldest first.
func (r *SessionRepo) ListForTask(taskID string) ([]types.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows, err := r.store.db.Query(
		`SELECT id, task_id, phase, status, opencode_session_id, created_at,
		 implementation_phase_number, implementation_phase_title
		 FROM sessions WHERE task_id = ? ORDER BY created_at ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// RunningForTaskPhase returns the running session, if any, for a
// (task, phase) pair — used to enforce the at-most-one-Running
// invariant (spec §3).
func (r *SessionRepo) RunningForTaskPhase(taskID string, phase types.SessionPhase) (*types.Session, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	row := r.store.db.QueryRow(
		`SELECT id, task_id, phase, status, opencode_session_id, created_at,
		 implementation_phase_number, implementation_phase_title
		 FROM sessions WHERE task_id = ? AND phase = ? AND status = ? LIMIT 1`,
		taskID, string(phase), string(types.SessionRunning),
	)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func scanSession(row rowScanner) (types.Session, error) {
	var sess types.Session
	var phase, status string
	var opencodeID, phaseTitle sql.NullString
	var phaseNumber sql.NullInt64

	if err := row.Scan(&sess.ID, &sess.TaskID, &phase, &status, &opencodeID, &sess.CreatedAt,
		&phaseNumber, &phaseTitle); err != nil {
		return types.Session{}, err
	}
	sess.Phase = types.SessionPhase(phase)
	sess.Status = types.SessionStatus(status)
	sess.OpenCodeSessionID = nullableString(opencodeID)
	sess.ImplementationPhaseNumber = nullableInt(phaseNumber)
	sess.ImplementationPhaseTitle = nullableString(phaseTitle)
	return sess, nil
}
