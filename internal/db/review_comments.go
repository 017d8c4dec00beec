package db

import (
	"database/sql"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// ReviewCommentRepo persists human-entered review comments consumed by
// FixPhase's human-feedback entry point.
type ReviewCommentRepo struct {
	store *Store
}

// ReviewComments returns the review comment repository bound to this store.
func (s *Store) ReviewComments() *ReviewCommentRepo { return &ReviewCommentRepo{store: s} }

// Create inserts a new open review comment.
func (r *ReviewCommentRepo) Create(c types.ReviewComment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err := r.store.db.Exec(
		`INSERT INTO review_comments (id, task_id, file_path, line_start, line_end, body, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TaskID, c.FilePath, nullInt(c.LineStart), nullInt(c.LineEnd), c.Body, string(c.Status),
	)
	return err
}

// ListOpenForTask returns every unresolved comment for a task, used to
// build a FixPhase prompt from human feedback.
func (r *ReviewCommentRepo) ListOpenForTask(taskID string) ([]types.ReviewComment, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	rows, err := r.store.db.Query(
		`SELECT id, task_id, file_path, line_start, line_end, body, status
		 FROM review_comments WHERE task_id = ? AND status = ? ORDER BY rowid ASC`,
		taskID, string(types.CommentOpen),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []types.ReviewComment
	for rows.Next() {
		c, err := scanReviewComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// MarkResolved transitions a review comment to resolved once a FixPhase
// run addressing it completes.
func (r *ReviewCommentRepo) MarkResolved(id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, err := r.store.db.Exec(
		`UPDATE review_comments SET status = ? WHERE id = ?`, string(types.CommentResolved), id,
	)
	return err
}

func scanReviewComment(row rowScanner) (types.ReviewComment, error) {
	var c types.ReviewComment
	var lineStart, lineEnd sql.NullInt64
	var status string

	if err := row.Scan(&c.ID, &c.TaskID, &c.FilePath, &lineStart, &lineEnd, &c.Body, &status); err != nil {
		return types.ReviewComment{}, err
	}
	c.LineStart = nullableInt(lineStart)
	c.LineEnd = nullableInt(lineEnd)
	c.Status = types.ReviewCommentStatus(status)
	return c, nil
}
