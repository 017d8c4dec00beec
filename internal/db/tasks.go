package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// TaskRepo persists types.Task rows.
type TaskRepo struct {
	store *Store
}

// Tasks returns the task repository bound to this store.
func (s *Store) Tasks() *TaskRepo { return &TaskRepo{store: s} }

// Create inserts a new task.
func (r *TaskRepo) Create(task types.Task) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err := r.store.db.Exec(
		`INSERT INTO tasks (id, title, description, status, workspace_path, workspace_branch, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID, task.Title, task.Description, string(task.Status),
		nullString(task.WorkspacePath), nullString(task.WorkspaceBranch), task.CreatedAt, task.UpdatedAt,
	)
	return err
}

// Get loads a task by id.
func (r *TaskRepo) Get(id string) (types.Task, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	row := r.store.db.QueryRow(
		`SELECT id, title, description, status, workspace_path, workspace_branch, created_at, updated_at
		 FROM tasks WHERE id = ?`, id)
	return scanTask(row)
}

// List returns every task, most recently updated first.
func (r *TaskRepo) List() ([]types.Task, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows, err := r.store.db.Query(
		`SELECT id, title, description, status, workspace_path, workspace_branch, created_at, updated_at
		 FROM tasks ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateStatus persists a new status and bumps updated_at. Called only
// from internal/task.transition, which is the sole funnel for status
// writes (spec §4.1).
func (r *TaskRepo) UpdateStatus(id string, status types.TaskStatus, updatedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	res, err := r.store.db.Exec(
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), updatedAt, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s not found", id)
	}
	return nil
}

// SetWorkspace records the workspace directory and branch assigned to
// a task (the branch is needed later to Merge/Delete the workspace).
func (r *TaskRepo) SetWorkspace(id, path, branch string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err := r.store.db.Exec(`UPDATE tasks SET workspace_path = ?, workspace_branch = ? WHERE id = ?`, path, branch, id)
	return err
}

// Delete removes a task row.
func (r *TaskRepo) Delete(id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err := r.store.db.Exec(`DELETE FROM tasks WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (types.Task, error) {
	var t types.Task
	var status string
	var workspacePath, workspaceBranch sql.NullString

	if err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &workspacePath, &workspaceBranch, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return types.Task{}, err
	}
	t.Status = types.TaskStatus(status)
	t.WorkspacePath = nullableString(workspacePath)
	t.WorkspaceBranch = nullableString(workspaceBranch)
	return t, nil
}
