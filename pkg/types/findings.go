package types

// FindingSeverity classifies a ReviewFinding's importance.
type FindingSeverity string

const (
	SeverityError   FindingSeverity = "error"
	SeverityWarning FindingSeverity = "warning"
	SeverityInfo    FindingSeverity = "info"
)

// FindingStatus tracks disposition of a ReviewFinding across fix iterations.
type FindingStatus string

const (
	FindingPending FindingStatus = "pending"
	FindingFixed   FindingStatus = "fixed"
	FindingSkipped FindingStatus = "skipped"
)

// ReviewFinding is one issue reported by the AI reviewer (or a human),
// either via the findings MCP tool or a review comment thread.
type ReviewFinding struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Severity    FindingSeverity `json:"severity"`
	Status      FindingStatus   `json:"status"`
	FilePath    *string         `json:"filePath,omitempty"`
	LineStart   *int            `json:"lineStart,omitempty"`
	LineEnd     *int            `json:"lineEnd,omitempty"`
}

// ReviewFindings is the findings.json artifact: written by the findings
// MCP tool server (cmd/findings-mcp) and rewritten by ReviewPhase with
// file paths corrected against the review diff.
type ReviewFindings struct {
	TaskID    string          `json:"taskId"`
	SessionID string          `json:"sessionId"`
	Summary   string          `json:"summary"`
	Approved  bool            `json:"approved"`
	Findings  []ReviewFinding `json:"findings"`
}

// ReviewCommentStatus tracks whether a human-entered review comment has
// been addressed by a subsequent FixPhase.
type ReviewCommentStatus string

const (
	CommentOpen     ReviewCommentStatus = "open"
	CommentResolved ReviewCommentStatus = "resolved"
)

// ReviewComment is a human-entered comment against a file/line range,
// persisted in the review_comments table and consumable by FixPhase's
// second entry point.
type ReviewComment struct {
	ID        string              `json:"id"`
	TaskID    string              `json:"taskId"`
	FilePath  string              `json:"filePath"`
	LineStart *int                `json:"lineStart,omitempty"`
	LineEnd   *int                `json:"lineEnd,omitempty"`
	Body      string              `json:"body"`
	Status    ReviewCommentStatus `json:"status"`
}

// ReviewVerdictKind distinguishes the two outcomes the text classifier
// can reach. Findings-based rejection is detected separately, from
// findings.json, not from response text.
type ReviewVerdictKind string

const (
	VerdictApproved         ReviewVerdictKind = "approved"
	VerdictChangesRequested ReviewVerdictKind = "changes_requested"
)

// ReviewVerdict is the result of classifying a reviewer's final response
// text.
type ReviewVerdict struct {
	Kind     ReviewVerdictKind
	Feedback string // only set when Kind == VerdictChangesRequested
}
