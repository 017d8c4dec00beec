// Package roadmap clusters a GitHub repository's open issues into a
// markdown roadmap using one OpenCode session (no Phase/task involved,
// matching spec.md §3's description of roadmap generation as an
// optional side job rather than part of the task state machine).
package roadmap

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/google/go-github/v68/github"

	"github.com/souky-byte/opencode-studio/internal/artifact"
	"github.com/souky-byte/opencode-studio/internal/engine"
	"github.com/souky-byte/opencode-studio/internal/event"
	"github.com/souky-byte/opencode-studio/internal/opencodeclient"
	"github.com/souky-byte/opencode-studio/pkg/types"
)

// Generator drives one GitHub-issues-to-roadmap generation at a time.
// A new Generate call bumps generation beyond any in-flight run, so
// that run's remaining progress/completion events are recognized as
// stale and dropped rather than published (spec.md §5's cancellation
// model: no explicit cancel RPC, just "ignore anything from an old
// generation").
type Generator struct {
	gh      *github.Client
	backend opencodeclient.Client
	artifacts *artifact.Store
	bus     *event.Bus

	projectPath string
	model       types.ModelRef

	generation atomic.Int64
}

// NewGenerator builds a Generator. An empty githubToken still works
// against public repos, subject to GitHub's unauthenticated rate limit.
func NewGenerator(githubToken string, backend opencodeclient.Client, artifacts *artifact.Store, bus *event.Bus, projectPath, backendModel string) *Generator {
	gh := github.NewClient(nil)
	if githubToken != "" {
		gh = gh.WithAuthToken(githubToken)
	}
	return &Generator{
		gh:          gh,
		backend:     backend,
		artifacts:   artifacts,
		bus:         bus,
		projectPath: projectPath,
		model:       engine.ParseModelRef(backendModel),
	}
}

// Generate starts a new generation in the background and returns its
// id immediately. owner/repo name the GitHub repository whose open
// issues get clustered.
func (g *Generator) Generate(ctx context.Context, owner, repo string) string {
	genNum := g.generation.Add(1)
	genID := fmt.Sprintf("gen-%d", genNum)

	go g.run(ctx, genNum, genID, owner, repo)

	return genID
}

// stale reports whether genNum has been superseded by a later
// Generate call, meaning this run's updates should be dropped.
func (g *Generator) stale(genNum int64) bool {
	return g.generation.Load() != genNum
}

func (g *Generator) run(ctx context.Context, genNum int64, genID, owner, repo string) {
	if g.stale(genNum) {
		return
	}
	g.bus.Publish(types.RoadmapGenerationStarted{GenerationID: genID})

	issues, err := g.listOpenIssues(ctx, owner, repo)
	if err != nil {
		g.fail(genNum, genID, fmt.Errorf("list issues: %w", err))
		return
	}
	if g.stale(genNum) {
		return
	}
	g.bus.Publish(types.RoadmapGenerationProgress{GenerationID: genID, Message: fmt.Sprintf("clustering %d open issues", len(issues))})

	prompt := buildPrompt(owner, repo, issues)

	sessionID, err := g.backend.CreateSession(ctx, g.projectPath)
	if err != nil {
		g.fail(genNum, genID, fmt.Errorf("create session: %w", err))
		return
	}
	if err := g.backend.SendPrompt(ctx, sessionID, g.projectPath, prompt, g.model); err != nil {
		g.fail(genNum, genID, fmt.Errorf("send prompt: %w", err))
		return
	}
	if g.stale(genNum) {
		return
	}

	if err := g.awaitIdle(ctx, sessionID); err != nil {
		g.fail(genNum, genID, fmt.Errorf("await session: %w", err))
		return
	}
	if g.stale(genNum) {
		return
	}

	messages, err := g.backend.SessionMessages(ctx, sessionID)
	if err != nil {
		g.fail(genNum, genID, fmt.Errorf("read session messages: %w", err))
		return
	}
	roadmap := lastAssistantText(messages)
	if roadmap == "" {
		g.fail(genNum, genID, fmt.Errorf("session produced no roadmap text"))
		return
	}

	if err := g.artifacts.WriteRoadmap(roadmap); err != nil {
		g.fail(genNum, genID, fmt.Errorf("write roadmap.md: %w", err))
		return
	}
	if g.stale(genNum) {
		return
	}
	g.bus.Publish(types.RoadmapGenerationCompleted{GenerationID: genID})
}

func (g *Generator) fail(genNum int64, genID string, err error) {
	if g.stale(genNum) {
		return
	}
	g.bus.Publish(types.RoadmapGenerationFailed{GenerationID: genID, Error: err.Error()})
}

// awaitIdle blocks until the backend reports the session idle (its
// turn finished) or errors, the same terminal signals
// internal/engine/runner.go's stream loop watches for.
func (g *Generator) awaitIdle(ctx context.Context, sessionID string) error {
	events, err := g.backend.Subscribe(ctx, g.projectPath, sessionID)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return fmt.Errorf("session stream closed before idle")
			}
			switch e := ev.(type) {
			case opencodeclient.SessionIdle:
				return nil
			case opencodeclient.ExecutorError:
				return e.Err
			case opencodeclient.Disconnected:
				return fmt.Errorf("session disconnected")
			}
		}
	}
}

// listOpenIssues paginates every open issue (excluding pull requests,
// which the Issues API also returns) for owner/repo.
func (g *Generator) listOpenIssues(ctx context.Context, owner, repo string) ([]*github.Issue, error) {
	var all []*github.Issue
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		ListOptions: github.ListOptions{PerPage: 100},
	}
	for {
		issues, resp, err := g.gh.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, err
		}
		for _, issue := range issues {
			if !issue.IsPullRequest() {
				all = append(all, issue)
			}
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return all, nil
}

// buildPrompt renders the issue list into a prompt asking the backend
// to group issues into themed milestones.
func buildPrompt(owner, repo string, issues []*github.Issue) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cluster the following open issues from %s/%s into a roadmap.\n", owner, repo)
	b.WriteString("Group related issues under themed milestones and respond with markdown only:\n\n")
	for _, issue := range issues {
		fmt.Fprintf(&b, "- #%d %s\n", issue.GetNumber(), issue.GetTitle())
	}
	return b.String()
}

// lastAssistantText returns the text of the last assistant message, the
// roadmap content proper.
func lastAssistantText(messages []opencodeclient.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != "assistant" {
			continue
		}
		var b strings.Builder
		for _, part := range messages[i].Parts {
			if part.Type == types.PartText && part.Text != nil {
				b.WriteString(*part.Text)
			}
		}
		return b.String()
	}
	return ""
}
