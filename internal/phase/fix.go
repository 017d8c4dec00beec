package phase

import (
	"context"
	"fmt"
	"strings"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// FixPhase dispatches a session to address review feedback, either AI
// review feedback carried over from a ReviewPhase iteration, or a set
// of open human review comments.
type FixPhase struct {
	deps Deps

	feedback string               // set when built from a ReviewPhase.Iterate outcome
	comments []types.ReviewComment // set when built from open human review comments
}

// NewFixPhaseFromFeedback builds a FixPhase addressing AI-detected
// review feedback (spec §4.2.3 iterate outcome).
func NewFixPhaseFromFeedback(deps Deps, feedback string) *FixPhase {
	return &FixPhase{deps: deps, feedback: feedback}
}

// NewFixPhaseFromComments builds a FixPhase addressing open human
// review comments left against a task.
func NewFixPhaseFromComments(deps Deps, comments []types.ReviewComment) *FixPhase {
	return &FixPhase{deps: deps, comments: comments}
}

func (p *FixPhase) PhaseType() types.SessionPhase { return types.PhaseFix }

func (p *FixPhase) RequiredResources() types.RequiredResources {
	return types.RequiredResources{NeedsWorkspace: true, NeedsMCPFindings: true}
}

type fixData struct {
	Title              string
	Description        string
	FeedbackOrComments string
}

func (p *FixPhase) BuildConfig(ctx context.Context, t types.Task) (types.PhaseConfig, error) {
	if p.deps.Workspaces == nil || t.WorkspacePath == nil || *t.WorkspacePath == "" {
		return types.PhaseConfig{}, WorkspaceRequired{TaskID: t.ID}
	}

	prompt, err := render(templates.fix, fixData{
		Title:              t.Title,
		Description:        t.Description,
		FeedbackOrComments: p.describeFeedback(),
	})
	if err != nil {
		return types.PhaseConfig{}, err
	}

	return types.PhaseConfig{
		Prompt:     prompt,
		WorkingDir: *t.WorkspacePath,
		MCPServers: []string{findingsMCPCommand(p.deps, t.ID)},
	}, nil
}

func (p *FixPhase) describeFeedback() string {
	if len(p.comments) > 0 {
		var b strings.Builder
		for _, c := range p.comments {
			loc := c.FilePath
			if c.LineStart != nil {
				loc = fmt.Sprintf("%s:%d", loc, *c.LineStart)
				if c.LineEnd != nil && *c.LineEnd != *c.LineStart {
					loc = fmt.Sprintf("%s-%d", loc, *c.LineEnd)
				}
			}
			fmt.Fprintf(&b, "- %s: %s\n", loc, c.Body)
		}
		return strings.TrimRight(b.String(), "\n")
	}
	return p.feedback
}

func (p *FixPhase) ProcessResult(ctx context.Context, t types.Task, output types.SessionOutput) (types.PhaseOutcome, error) {
	if !output.Success {
		return types.PhaseOutcome{}, sessionFailedErr("fix", output)
	}

	if len(p.comments) > 0 {
		for _, c := range p.comments {
			if err := p.deps.ReviewComments.MarkResolved(c.ID); err != nil {
				return types.PhaseOutcome{}, fmt.Errorf("mark review comment resolved: %w", err)
			}
		}
	}

	updated, err := p.deps.Transitioner.Transition(t, types.StatusAiReview)
	if err != nil {
		return types.PhaseOutcome{}, err
	}
	return types.PhaseOutcome{Kind: types.OutcomeTransition, NextStatus: updated.Status}, nil
}
