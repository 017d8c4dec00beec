package findings

import (
	"github.com/agnivade/levenshtein"
)

// MatchPath corrects a reviewer-reported file path against the list of
// files the workspace diff actually touched. AI reviewers occasionally
// report a path with a typo or a dropped path segment; rather than
// reject the finding outright, pick the closest changed file by
// normalized Levenshtein similarity and use it when it's a confident
// match. Returns reported unchanged if it's already an exact match, if
// changedFiles is empty, or if nothing clears the confidence threshold.
func MatchPath(reported string, changedFiles []string) string {
	if reported == "" || len(changedFiles) == 0 {
		return reported
	}

	for _, f := range changedFiles {
		if f == reported {
			return reported
		}
	}

	const confidenceThreshold = 0.7

	best := reported
	bestScore := 0.0
	for _, f := range changedFiles {
		if score := similarity(reported, f); score > bestScore {
			bestScore = score
			best = f
		}
	}

	if bestScore >= confidenceThreshold {
		return best
	}
	return reported
}

// similarity is normalized Levenshtein similarity in [0, 1].
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1.0 - float64(dist)/float64(maxLen)
}
