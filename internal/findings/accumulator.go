package findings

import (
	"fmt"
	"sync"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// Accumulator collects the ReviewFinding values one review session's
// record_finding tool calls produce, plus the terminal summary/approved
// verdict from complete_review. It backs one MCPServer instance per
// session; the server and the accumulator share the same lifetime.
type Accumulator struct {
	taskID    string
	sessionID string

	mu       sync.Mutex
	findings []types.ReviewFinding
	summary  string
	approved *bool // nil until complete_review is called
}

// NewAccumulator builds an empty Accumulator for one review session.
func NewAccumulator(taskID, sessionID string) *Accumulator {
	return &Accumulator{taskID: taskID, sessionID: sessionID}
}

// Add appends a finding, minting its id from the current count the same
// way the reference findings server does ("finding-1", "finding-2", ...).
func (a *Accumulator) Add(f types.ReviewFinding) types.ReviewFinding {
	a.mu.Lock()
	defer a.mu.Unlock()
	f.ID = fmt.Sprintf("finding-%d", len(a.findings)+1)
	if f.Status == "" {
		f.Status = types.FindingPending
	}
	a.findings = append(a.findings, f)
	return f
}

// Complete records the reviewer's terminal verdict.
func (a *Accumulator) Complete(summary string, approved bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.summary = summary
	a.approved = &approved
}

// Snapshot returns the current state as the findings.json shape.
// Approved defaults to false (changes requested) until complete_review
// has been called at least once.
func (a *Accumulator) Snapshot() types.ReviewFindings {
	a.mu.Lock()
	defer a.mu.Unlock()

	approved := false
	if a.approved != nil {
		approved = *a.approved
	}

	out := make([]types.ReviewFinding, len(a.findings))
	copy(out, a.findings)

	return types.ReviewFindings{
		TaskID:    a.taskID,
		SessionID: a.sessionID,
		Summary:   a.summary,
		Approved:  approved,
		Findings:  out,
	}
}

// Completed reports whether complete_review has been called yet.
func (a *Accumulator) Completed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.approved != nil
}
