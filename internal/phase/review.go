package phase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/souky-byte/opencode-studio/internal/activity"
	"github.com/souky-byte/opencode-studio/internal/artifact"
	"github.com/souky-byte/opencode-studio/internal/findings"
	"github.com/souky-byte/opencode-studio/internal/vcs"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

// ReviewPhase dispatches a session against a task's workspace diff and
// classifies the result into approval, AI-detected findings, or
// free-form change requests.
type ReviewPhase struct {
	deps      Deps
	Iteration int
	useMCP    bool

	lastDiff string // set by BuildConfig, used by ProcessResult to correct finding paths
}

// NewReviewPhase builds a ReviewPhase at the given 0-indexed iteration
// of the review/fix loop.
func NewReviewPhase(deps Deps, iteration int) *ReviewPhase {
	return &ReviewPhase{deps: deps, Iteration: iteration, useMCP: deps.Config.UseMCPFindings}
}

func (p *ReviewPhase) PhaseType() types.SessionPhase { return types.PhaseReview }

func (p *ReviewPhase) RequiredResources() types.RequiredResources {
	return types.RequiredResources{NeedsWorkspace: true, NeedsDiff: true, NeedsMCPFindings: p.useMCP}
}

type reviewPromptData struct {
	Title       string
	Description string
	Diff        string
}

func (p *ReviewPhase) BuildConfig(ctx context.Context, t types.Task) (types.PhaseConfig, error) {
	if p.deps.Workspaces == nil || t.WorkspacePath == nil || *t.WorkspacePath == "" {
		return types.PhaseConfig{}, WorkspaceRequired{TaskID: t.ID}
	}

	ws := vcs.Workspace{TaskID: t.ID, Path: *t.WorkspacePath}
	diff, err := p.deps.Workspaces.Diff(ctx, ws)
	if err != nil {
		return types.PhaseConfig{}, fmt.Errorf("compute review diff: %w", err)
	}
	p.lastDiff = diff

	tmpl := templates.review
	if p.useMCP {
		tmpl = templates.reviewWithMCP
	}
	prompt, err := render(tmpl, reviewPromptData{Title: t.Title, Description: t.Description, Diff: diff})
	if err != nil {
		return types.PhaseConfig{}, err
	}

	cfg := types.PhaseConfig{Prompt: prompt, WorkingDir: *t.WorkspacePath}
	if p.useMCP {
		cfg.MCPServers = []string{findingsMCPCommand(p.deps, t.ID)}
	}
	return cfg, nil
}

type reviewKind int

const (
	reviewApproved reviewKind = iota
	reviewFindingsDetected
	reviewChangesRequested
)

type reviewResult struct {
	kind          reviewKind
	findingsCount int
	feedback      string
}

// classify implements spec step 2-3: prefer findings.json if the MCP
// tool server was used, otherwise fall back to classifying the raw
// response text.
func (p *ReviewPhase) classify(t types.Task, output types.SessionOutput) (reviewResult, error) {
	found, err := p.deps.Artifacts.ReadFindings(t.ID)
	if err == nil {
		changed := changedFilesFromDiff(p.lastDiff)
		for i := range found.Findings {
			if found.Findings[i].FilePath != nil {
				corrected := findings.MatchPath(*found.Findings[i].FilePath, changed)
				found.Findings[i].FilePath = &corrected
			}
		}
		if err := p.deps.Artifacts.WriteFindings(t.ID, found); err != nil {
			return reviewResult{}, fmt.Errorf("rewrite corrected findings: %w", err)
		}

		if found.Approved || len(found.Findings) == 0 {
			return reviewResult{kind: reviewApproved}, nil
		}
		return reviewResult{kind: reviewFindingsDetected, findingsCount: len(found.Findings)}, nil
	}
	if !errors.Is(err, artifact.ErrNotFound) {
		return reviewResult{}, fmt.Errorf("read findings: %w", err)
	}

	verdict := activity.ClassifyReview(output.ResponseText)
	if verdict.Kind == types.VerdictApproved {
		return reviewResult{kind: reviewApproved}, nil
	}
	return reviewResult{kind: reviewChangesRequested, feedback: verdict.Feedback}, nil
}

func (p *ReviewPhase) ProcessResult(ctx context.Context, t types.Task, output types.SessionOutput) (types.PhaseOutcome, error) {
	if !output.Success {
		return types.PhaseOutcome{}, sessionFailedErr("review", output)
	}

	if err := p.deps.Artifacts.WriteReview(t.ID, output.ResponseText); err != nil {
		return types.PhaseOutcome{}, fmt.Errorf("write review: %w", err)
	}

	result, err := p.classify(t, output)
	if err != nil {
		return types.PhaseOutcome{}, err
	}

	atIterationLimit := p.Iteration >= p.deps.Config.MaxReviewIterations

	switch result.kind {
	case reviewApproved:
		if p.deps.Config.RequireHumanReview {
			updated, err := p.deps.Transitioner.Transition(t, types.StatusReview)
			if err != nil {
				return types.PhaseOutcome{}, err
			}
			return types.PhaseOutcome{Kind: types.OutcomeAwaitingApproval, Phase: types.PhaseReview, NextStatus: updated.Status}, nil
		}
		updated, err := p.deps.Transitioner.Transition(t, types.StatusDone)
		if err != nil {
			return types.PhaseOutcome{}, err
		}
		return types.PhaseOutcome{Kind: types.OutcomeComplete, NextStatus: updated.Status}, nil

	case reviewFindingsDetected:
		if atIterationLimit {
			return p.forceToHumanReview(t)
		}
		return types.PhaseOutcome{
			Kind:      types.OutcomeIterate,
			Feedback:  fmt.Sprintf("%d issues found", result.findingsCount),
			Iteration: p.Iteration + 1,
		}, nil

	default: // reviewChangesRequested
		if atIterationLimit {
			return p.forceToHumanReview(t)
		}
		return types.PhaseOutcome{Kind: types.OutcomeIterate, Feedback: result.feedback, Iteration: p.Iteration + 1}, nil
	}
}

// forceToHumanReview is reached once max_review_iterations is spent:
// the loop stops and a human takes over from the Review status.
func (p *ReviewPhase) forceToHumanReview(t types.Task) (types.PhaseOutcome, error) {
	updated, err := p.deps.Transitioner.Transition(t, types.StatusReview)
	if err != nil {
		return types.PhaseOutcome{}, err
	}
	return types.PhaseOutcome{Kind: types.OutcomeAwaitingApproval, Phase: types.PhaseReview, NextStatus: updated.Status}, nil
}

// changedFileIgnorePatterns excludes generated/vendored paths from the
// changed-files list used for findings path-matching and PhaseSummary
// reporting, so a finding never gets "corrected" onto a lockfile or a
// vendored dependency the AI didn't actually touch on purpose.
var changedFileIgnorePatterns = []string{
	"vendor/**",
	"node_modules/**",
	"**/*.lock",
	".opencode-studio/**",
}

// changedFilesFromDiff recovers the list of changed file paths from a
// vcs.VersionControl diff's "+++ path" header lines, avoiding a second
// VersionControl method just for path correction.
func changedFilesFromDiff(diff string) []string {
	var files []string
	for _, line := range strings.Split(diff, "\n") {
		path, ok := strings.CutPrefix(line, "+++ ")
		if !ok {
			continue
		}
		path = strings.TrimSpace(path)
		if isIgnoredChangedFile(path) {
			continue
		}
		files = append(files, path)
	}
	return files
}

func isIgnoredChangedFile(path string) bool {
	for _, pattern := range changedFileIgnorePatterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
	}
	return false
}

func findingsMCPCommand(deps Deps, taskID string) string {
	return fmt.Sprintf("findings-mcp --task-id=%s --artifact-dir=%s", taskID, deps.ArtifactDir)
}
