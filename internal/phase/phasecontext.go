package phase

import (
	"sync"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// AtomicPhaseContext tracks progress through a multi-phase
// implementation. advance is the single writer per task; callers
// serialize reads and writes through this type's lock rather than the
// caller's own.
type AtomicPhaseContext struct {
	mu    sync.Mutex
	state types.PhaseContextState
}

// NewPhaseContext starts a fresh context for a plan with totalPhases
// phases.
func NewPhaseContext(totalPhases int) *AtomicPhaseContext {
	return &AtomicPhaseContext{state: types.PhaseContextState{PhaseNumber: 1, TotalPhases: totalPhases}}
}

// RestorePhaseContext rebuilds a context from a previously persisted
// snapshot (loaded from phase_context.json on startup/resume).
func RestorePhaseContext(state types.PhaseContextState) *AtomicPhaseContext {
	return &AtomicPhaseContext{state: state}
}

// CurrentPhase returns the 1-indexed phase number about to run.
func (c *AtomicPhaseContext) CurrentPhase() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.PhaseNumber
}

// TotalPhases returns the plan's total phase count.
func (c *AtomicPhaseContext) TotalPhases() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.TotalPhases
}

// IsComplete reports whether every phase has been completed.
func (c *AtomicPhaseContext) IsComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.IsComplete()
}

// PreviousSummary returns the most recently completed phase's summary,
// or nil if none has completed yet.
func (c *AtomicPhaseContext) PreviousSummary() *types.PhaseSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.PreviousSummary
}

// Advance records summary as the just-completed phase, advances the
// current phase number, and returns the new snapshot for persistence.
func (c *AtomicPhaseContext) Advance(summary types.PhaseSummary) types.PhaseContextState {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.state.CompletedPhases = append(c.state.CompletedPhases, summary)
	c.state.PreviousSummary = &summary
	c.state.PhaseNumber++
	return c.state
}

// Snapshot returns a copy of the current state for persistence.
func (c *AtomicPhaseContext) Snapshot() types.PhaseContextState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
