package phase

import (
	"context"
	"errors"
	"fmt"

	"github.com/souky-byte/opencode-studio/internal/artifact"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

// ImplementationPhase runs either a single session against the whole
// plan, or one session per parsed plan phase, carrying an
// AtomicPhaseContext across the latter.
type ImplementationPhase struct {
	deps     Deps
	plan     types.ParsedPlan
	planBody string
	phaseCtx *AtomicPhaseContext // nil in single-phase mode
}

// NewImplementationPhase reads the task's plan (if any) and, for a
// multi-phase plan, loads or creates its AtomicPhaseContext.
func NewImplementationPhase(deps Deps, taskID string) (*ImplementationPhase, error) {
	planBody, err := deps.Artifacts.ReadPlan(taskID)
	if err != nil && !errors.Is(err, artifact.ErrNotFound) {
		return nil, fmt.Errorf("read plan: %w", err)
	}

	parsed := ParsePlan(planBody)

	var phaseCtx *AtomicPhaseContext
	if len(parsed.Phases) > 1 {
		state, err := deps.Artifacts.ReadPhaseContext(taskID)
		switch {
		case err == nil:
			phaseCtx = RestorePhaseContext(state)
		case errors.Is(err, artifact.ErrNotFound):
			phaseCtx = NewPhaseContext(len(parsed.Phases))
		default:
			return nil, fmt.Errorf("read phase context: %w", err)
		}
	}

	return &ImplementationPhase{deps: deps, plan: parsed, planBody: planBody, phaseCtx: phaseCtx}, nil
}

func (p *ImplementationPhase) PhaseType() types.SessionPhase { return types.PhaseImplementation }

func (p *ImplementationPhase) RequiredResources() types.RequiredResources {
	return types.RequiredResources{NeedsWorkspace: true}
}

type implSingleData struct {
	Title       string
	Description string
	PlanBody    string
}

type implPhaseData struct {
	Title           string
	PhaseNumber     int
	TotalPhases     int
	PhaseContent    string
	PreviousSummary string
}

func (p *ImplementationPhase) BuildConfig(ctx context.Context, t types.Task) (types.PhaseConfig, error) {
	workingDir := p.deps.workingDir(t)

	if p.phaseCtx == nil {
		planBody := p.planBody
		if len(p.plan.Phases) == 1 {
			planBody = p.plan.Phases[0].Content
		}
		prompt, err := render(templates.implementationSinglePhase, implSingleData{
			Title:       t.Title,
			Description: t.Description,
			PlanBody:    planBody,
		})
		if err != nil {
			return types.PhaseConfig{}, err
		}
		return types.PhaseConfig{Prompt: prompt, WorkingDir: workingDir}, nil
	}

	current := p.phaseCtx.CurrentPhase()
	idx := current - 1
	if idx < 0 || idx >= len(p.plan.Phases) {
		return types.PhaseConfig{}, fmt.Errorf("phase: implementation phase %d out of range (plan has %d phases)", current, len(p.plan.Phases))
	}
	pp := p.plan.Phases[idx]

	var previous string
	if s := p.phaseCtx.PreviousSummary(); s != nil {
		previous = s.SummaryText
	}

	prompt, err := render(templates.implementationPhase, implPhaseData{
		Title:           t.Title,
		PhaseNumber:     pp.Number,
		TotalPhases:     p.phaseCtx.TotalPhases(),
		PhaseContent:    pp.Content,
		PreviousSummary: previous,
	})
	if err != nil {
		return types.PhaseConfig{}, err
	}

	return types.PhaseConfig{
		Prompt:           prompt,
		WorkingDir:       workingDir,
		SkipStatusUpdate: true, // task status stays InProgress across intermediate phases
	}, nil
}

func (p *ImplementationPhase) ProcessResult(ctx context.Context, t types.Task, output types.SessionOutput) (types.PhaseOutcome, error) {
	if !output.Success {
		return types.PhaseOutcome{}, sessionFailedErr("implementation", output)
	}

	if p.phaseCtx == nil {
		updated, err := p.deps.Transitioner.Transition(t, types.StatusAiReview)
		if err != nil {
			return types.PhaseOutcome{}, err
		}
		return types.PhaseOutcome{Kind: types.OutcomeTransition, NextStatus: updated.Status}, nil
	}

	current := p.phaseCtx.CurrentPhase()
	title := fmt.Sprintf("Phase %d", current)
	if idx := current - 1; idx >= 0 && idx < len(p.plan.Phases) {
		title = p.plan.Phases[idx].Title
	}

	summary := ExtractPhaseSummary(output.ResponseText, current, title)

	if err := p.deps.Artifacts.WritePhaseSummary(t.ID, current, output.ResponseText); err != nil {
		return types.PhaseOutcome{}, fmt.Errorf("write phase summary: %w", err)
	}

	p.planBody = MarkPhaseComplete(p.planBody, current)
	if err := p.deps.Artifacts.WritePlan(t.ID, p.planBody); err != nil {
		return types.PhaseOutcome{}, fmt.Errorf("mark plan phase complete: %w", err)
	}

	snapshot := p.phaseCtx.Advance(summary)
	if err := p.deps.Artifacts.WritePhaseContext(t.ID, snapshot); err != nil {
		return types.PhaseOutcome{}, fmt.Errorf("persist phase context: %w", err)
	}

	if p.phaseCtx.IsComplete() {
		updated, err := p.deps.Transitioner.Transition(t, types.StatusAiReview)
		if err != nil {
			return types.PhaseOutcome{}, err
		}
		return types.PhaseOutcome{Kind: types.OutcomeTransition, NextStatus: updated.Status}, nil
	}

	return types.PhaseOutcome{Kind: types.OutcomeContinue}, nil
}
