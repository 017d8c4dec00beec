package types

import "time"

// PlanPhase is one numbered section of a parsed plan document.
type PlanPhase struct {
	Number  int    `json:"number"` // 1-indexed
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ParsedPlan is the result of splitting a plan.md body into phases.
// A plan with no recognizable phase headers is treated as a single
// phase whose content is the entire body.
type ParsedPlan struct {
	Phases []PlanPhase `json:"phases"`
}

// IsSinglePhase reports whether the plan has exactly one phase.
func (p ParsedPlan) IsSinglePhase() bool {
	return len(p.Phases) == 1
}

// PhaseSummary is the distilled record of one completed implementation
// phase, either extracted from the assistant's structured block or
// synthesized from its raw text.
type PhaseSummary struct {
	PhaseNumber  int       `json:"phaseNumber"`
	Title        string    `json:"title"`
	SummaryText  string    `json:"summaryText"`
	FilesChanged []string  `json:"filesChanged"`
	Notes        *string   `json:"notes,omitempty"`
	CompletedAt  time.Time `json:"completedAt"`
}

// PhaseContextState is the persisted progress of a multi-phase
// ImplementationPhase run, written atomically to phase_context.json
// after every advance.
type PhaseContextState struct {
	PhaseNumber     int            `json:"phaseNumber"`
	TotalPhases     int            `json:"totalPhases"`
	CompletedPhases []PhaseSummary `json:"completedPhases"`
	PreviousSummary *PhaseSummary  `json:"previousSummary,omitempty"`
}

// IsComplete reports whether every phase has been completed.
func (s PhaseContextState) IsComplete() bool {
	return s.PhaseNumber > s.TotalPhases
}

// PhaseConfig is produced by Phase.BuildConfig and consumed by the
// ExecutionEngine to dispatch a session.
type PhaseConfig struct {
	Prompt            string            `json:"prompt"`
	WorkingDir        string            `json:"workingDir"`
	MCPServers        []string          `json:"mcpServers,omitempty"`
	SkipStatusUpdate  bool              `json:"skipStatusUpdate"`
	Metadata          map[string]string `json:"metadata,omitempty"`
}

// RequiredResources is declared up-front by a Phase so the engine knows
// which resources to acquire before dispatching a session.
type RequiredResources struct {
	NeedsWorkspace    bool
	NeedsMCPFindings  bool
	NeedsDiff         bool
}

// PhaseOutcomeKind tags the variant of a PhaseOutcome.
type PhaseOutcomeKind string

const (
	OutcomeTransition       PhaseOutcomeKind = "transition"
	OutcomeIterate          PhaseOutcomeKind = "iterate"
	OutcomeAwaitingApproval PhaseOutcomeKind = "awaiting_approval"
	OutcomeContinue         PhaseOutcomeKind = "continue"
	OutcomeComplete         PhaseOutcomeKind = "complete"
)

// PhaseOutcome is the result of Phase.ProcessResult.
type PhaseOutcome struct {
	Kind       PhaseOutcomeKind `json:"kind"`
	NextStatus TaskStatus       `json:"nextStatus,omitempty"`
	Feedback   string           `json:"feedback,omitempty"`
	Iteration  int              `json:"iteration,omitempty"`
	Phase      SessionPhase     `json:"phase,omitempty"`
}

// SessionOutput is what ExecutionEngine.run_session hands to
// Phase.ProcessResult: the canonical result of one backend dispatch.
type SessionOutput struct {
	SessionID         string `json:"sessionId"`
	OpenCodeSessionID string `json:"opencodeSessionId"`
	ResponseText      string `json:"responseText"`
	Success           bool   `json:"success"`
	Error             string `json:"error,omitempty"`
}
