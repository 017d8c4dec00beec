package types

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a tagged sum over notifications published on the
// project-wide event bus and relayed on the global SSE stream.
type DomainEvent interface {
	EventName() string
	AffectedTaskID() string
}

// EventEnvelope wraps a DomainEvent with an id and timestamp for replay
// and SSE correlation.
type EventEnvelope struct {
	ID        uuid.UUID   `json:"id"`
	Timestamp time.Time   `json:"timestamp"`
	Event     DomainEvent `json:"event"`
}

type TaskCreated struct {
	TaskID string `json:"taskId"`
	Title  string `json:"title"`
}

func (e TaskCreated) EventName() string     { return "task.created" }
func (e TaskCreated) AffectedTaskID() string { return e.TaskID }

type TaskStatusChanged struct {
	TaskID string     `json:"taskId"`
	From   TaskStatus `json:"from"`
	To     TaskStatus `json:"to"`
}

func (e TaskStatusChanged) EventName() string     { return "task.status_changed" }
func (e TaskStatusChanged) AffectedTaskID() string { return e.TaskID }

type SessionStarted struct {
	SessionID         string       `json:"sessionId"`
	TaskID            string       `json:"taskId"`
	Phase             SessionPhase `json:"phase"`
	OpenCodeSessionID string       `json:"opencodeSessionId"`
	CreatedAt         time.Time    `json:"createdAt"`
}

func (e SessionStarted) EventName() string     { return "session.started" }
func (e SessionStarted) AffectedTaskID() string { return e.TaskID }

type SessionEnded struct {
	SessionID string `json:"sessionId"`
	TaskID    string `json:"taskId"`
	Success   bool   `json:"success"`
}

func (e SessionEnded) EventName() string     { return "session.ended" }
func (e SessionEnded) AffectedTaskID() string { return e.TaskID }

type PhaseCompleted struct {
	TaskID string       `json:"taskId"`
	Phase  SessionPhase `json:"phase"`
}

func (e PhaseCompleted) EventName() string     { return "phase.completed" }
func (e PhaseCompleted) AffectedTaskID() string { return e.TaskID }

type PhaseContinuing struct {
	TaskID      string `json:"taskId"`
	PhaseNumber int    `json:"phaseNumber"`
	TotalPhases int    `json:"totalPhases"`
}

func (e PhaseContinuing) EventName() string     { return "phase.continuing" }
func (e PhaseContinuing) AffectedTaskID() string { return e.TaskID }

type AgentMessageEvent struct {
	TaskID    string `json:"taskId"`
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
}

func (e AgentMessageEvent) EventName() string     { return "agent.message" }
func (e AgentMessageEvent) AffectedTaskID() string { return e.TaskID }

type ToolExecution struct {
	TaskID    string `json:"taskId"`
	SessionID string `json:"sessionId"`
	ToolName  string `json:"toolName"`
	Success   *bool  `json:"success,omitempty"`
}

func (e ToolExecution) EventName() string     { return "tool.execution" }
func (e ToolExecution) AffectedTaskID() string { return e.TaskID }

type WorkspaceCreated struct {
	TaskID string `json:"taskId"`
	Path   string `json:"path"`
}

func (e WorkspaceCreated) EventName() string     { return "workspace.created" }
func (e WorkspaceCreated) AffectedTaskID() string { return e.TaskID }

type WorkspaceMerged struct {
	TaskID string `json:"taskId"`
}

func (e WorkspaceMerged) EventName() string     { return "workspace.merged" }
func (e WorkspaceMerged) AffectedTaskID() string { return e.TaskID }

type WorkspaceDeleted struct {
	TaskID string `json:"taskId"`
}

func (e WorkspaceDeleted) EventName() string     { return "workspace.deleted" }
func (e WorkspaceDeleted) AffectedTaskID() string { return e.TaskID }

type ProjectOpened struct {
	Path         string `json:"path"`
	Name         string `json:"name"`
	WasInitialized bool `json:"wasInitialized"`
}

func (e ProjectOpened) EventName() string     { return "project.opened" }
func (e ProjectOpened) AffectedTaskID() string { return "" }

type ProjectClosed struct {
	Path string `json:"path"`
}

func (e ProjectClosed) EventName() string     { return "project.closed" }
func (e ProjectClosed) AffectedTaskID() string { return "" }

type RoadmapGenerationStarted struct {
	GenerationID string `json:"generationId"`
}

func (e RoadmapGenerationStarted) EventName() string     { return "roadmap.generation_started" }
func (e RoadmapGenerationStarted) AffectedTaskID() string { return "" }

type RoadmapGenerationProgress struct {
	GenerationID string `json:"generationId"`
	Message      string `json:"message"`
}

func (e RoadmapGenerationProgress) EventName() string     { return "roadmap.generation_progress" }
func (e RoadmapGenerationProgress) AffectedTaskID() string { return "" }

type RoadmapGenerationCompleted struct {
	GenerationID string `json:"generationId"`
}

func (e RoadmapGenerationCompleted) EventName() string     { return "roadmap.generation_completed" }
func (e RoadmapGenerationCompleted) AffectedTaskID() string { return "" }

type RoadmapGenerationFailed struct {
	GenerationID string `json:"generationId"`
	Error        string `json:"error"`
}

func (e RoadmapGenerationFailed) EventName() string     { return "roadmap.generation_failed" }
func (e RoadmapGenerationFailed) AffectedTaskID() string { return "" }

type ErrorEvent struct {
	TaskID  string `json:"taskId,omitempty"`
	Message string `json:"message"`
}

func (e ErrorEvent) EventName() string     { return "error" }
func (e ErrorEvent) AffectedTaskID() string { return e.TaskID }
