package phase

import (
	"context"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// PlanningPhase produces the task's plan.md and gates entry into
// implementation on optional human approval.
type PlanningPhase struct {
	deps Deps
}

// NewPlanningPhase builds a PlanningPhase for one task.
func NewPlanningPhase(deps Deps) *PlanningPhase {
	return &PlanningPhase{deps: deps}
}

func (p *PlanningPhase) PhaseType() types.SessionPhase { return types.PhasePlanning }

func (p *PlanningPhase) RequiredResources() types.RequiredResources {
	return types.RequiredResources{} // workspace optional; planning never needs one
}

type planningData struct {
	Title       string
	Description string
}

func (p *PlanningPhase) BuildConfig(ctx context.Context, t types.Task) (types.PhaseConfig, error) {
	prompt, err := render(templates.planning, planningData{Title: t.Title, Description: t.Description})
	if err != nil {
		return types.PhaseConfig{}, err
	}

	return types.PhaseConfig{
		Prompt:     prompt,
		WorkingDir: p.deps.workingDir(t),
	}, nil
}

func (p *PlanningPhase) ProcessResult(ctx context.Context, t types.Task, output types.SessionOutput) (types.PhaseOutcome, error) {
	if !output.Success {
		return types.PhaseOutcome{}, sessionFailedErr("planning", output)
	}

	if err := p.deps.Artifacts.WritePlan(t.ID, output.ResponseText); err != nil {
		return types.PhaseOutcome{}, err
	}

	to := types.StatusPlanningReview
	if !p.deps.Config.RequirePlanApproval {
		to = types.StatusInProgress
	}

	updated, err := p.deps.Transitioner.Transition(t, to)
	if err != nil {
		return types.PhaseOutcome{}, err
	}

	if p.deps.Config.RequirePlanApproval {
		return types.PhaseOutcome{Kind: types.OutcomeAwaitingApproval, Phase: types.PhasePlanning}, nil
	}
	return types.PhaseOutcome{Kind: types.OutcomeTransition, NextStatus: updated.Status}, nil
}
