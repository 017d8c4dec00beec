// Package types provides the core data types for the opencode-studio server.
package types

import "time"

// TaskStatus is the task lifecycle state (sum type).
type TaskStatus string

const (
	StatusTodo           TaskStatus = "todo"
	StatusPlanning       TaskStatus = "planning"
	StatusPlanningReview TaskStatus = "planning_review"
	StatusInProgress     TaskStatus = "in_progress"
	StatusAiReview       TaskStatus = "ai_review"
	StatusFix            TaskStatus = "fix"
	StatusReview         TaskStatus = "review"
	StatusDone           TaskStatus = "done"
)

// Task is a unit of work tracked through the state machine in internal/task.
type Task struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Status        TaskStatus `json:"status"`
	WorkspacePath   *string    `json:"workspacePath,omitempty"`
	WorkspaceBranch *string    `json:"workspaceBranch,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// SessionPhase identifies which Phase a Session was dispatched for.
type SessionPhase string

const (
	PhasePlanning       SessionPhase = "planning"
	PhaseImplementation SessionPhase = "implementation"
	PhaseReview         SessionPhase = "review"
	PhaseFix            SessionPhase = "fix"
)

// SessionStatus is the lifecycle state of a backend dispatch.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// Session records one backend dispatch for a task/phase pair.
type Session struct {
	ID                        string        `json:"id"`
	TaskID                    string        `json:"taskId"`
	Phase                     SessionPhase  `json:"phase"`
	Status                    SessionStatus `json:"status"`
	OpenCodeSessionID         *string       `json:"opencodeSessionId,omitempty"`
	CreatedAt                 time.Time     `json:"createdAt"`
	ImplementationPhaseNumber *int          `json:"implementationPhaseNumber,omitempty"`
	ImplementationPhaseTitle  *string       `json:"implementationPhaseTitle,omitempty"`
}
