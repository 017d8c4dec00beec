package vcs

import (
	"context"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// diffAgainstBase builds a readable, per-file diff of a workspace
// against the branch it forked from. Each changed file's before/after
// content is diffed with diffmatchpatch rather than shelled to `git
// diff`, so the result reads as a plain +/- line block regardless of
// git's own diff/patience/histogram settings.
func diffAgainstBase(ctx context.Context, g *GitVersionControl, ws Workspace) (string, error) {
	files, err := g.changedFiles(ctx, ws)
	if err != nil {
		return "", fmt.Errorf("list changed files: %w", err)
	}
	if len(files) == 0 {
		return "", nil
	}

	var b strings.Builder
	dmp := diffmatchpatch.New()

	for _, path := range files {
		before := g.fileAt(ctx, ws.Path, g.baseBranch, path)
		after := g.fileAt(ctx, ws.Path, "HEAD", path)

		fmt.Fprintf(&b, "--- %s\n+++ %s\n", path, path)

		if before == after {
			continue
		}

		diffs := dmp.DiffMain(before, after, false)
		diffs = dmp.DiffCleanupSemantic(diffs)
		b.WriteString(renderLineDiff(dmp, diffs))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

// renderLineDiff turns a character-level diff into a line-prefixed
// +/-/space block, the shape ReviewPhase embeds verbatim in its prompt.
func renderLineDiff(dmp *diffmatchpatch.DiffMatchPatch, diffs []diffmatchpatch.Diff) string {
	var b strings.Builder
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		}
		for _, line := range strings.Split(strings.Trim(d.Text, "\n"), "\n") {
			if line == "" {
				continue
			}
			b.WriteString(prefix)
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return b.String()
}
