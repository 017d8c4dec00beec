package phase

import (
	"regexp"
	"strings"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// phaseHeader matches a plan section heading of the form
// "## Phase 2: Wire up the client", case-insensitively on "Phase".
var phaseHeader = regexp.MustCompile(`(?im)^#{1,6}\s*Phase\s+(\d+)\s*:?\s*(.*)$`)

// ParsePlan splits a plan.md body into numbered phases. A plan with no
// recognizable "## Phase N: Title" headers is treated as a single
// phase whose content is the entire body.
func ParsePlan(body string) types.ParsedPlan {
	matches := phaseHeader.FindAllStringSubmatchIndex(body, -1)
	if len(matches) == 0 {
		return types.ParsedPlan{Phases: []types.PlanPhase{{Number: 1, Title: "Implementation", Content: strings.TrimSpace(body)}}}
	}

	var phases []types.PlanPhase
	for i, m := range matches {
		numStart, numEnd := m[2], m[3]
		titleStart, titleEnd := m[4], m[5]
		headerEnd := m[1]

		contentEnd := len(body)
		if i+1 < len(matches) {
			contentEnd = matches[i+1][0]
		}

		number := atoiDefault(body[numStart:numEnd], i+1)
		title := strings.TrimSpace(body[titleStart:titleEnd])
		content := strings.TrimSpace(body[headerEnd:contentEnd])

		phases = append(phases, types.PlanPhase{Number: number, Title: title, Content: content})
	}

	return types.ParsedPlan{Phases: phases}
}

// MarkPhaseComplete appends a "[DONE]" marker to phaseNumber's header
// line in a plan body, if not already marked. Used by ImplementationPhase
// to record progress directly in plan.md as each phase finishes.
func MarkPhaseComplete(body string, phaseNumber int) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		m := phaseHeader.FindStringSubmatch(line)
		if m == nil || atoiDefault(m[1], -1) != phaseNumber {
			continue
		}
		if !strings.Contains(line, "[DONE]") {
			lines[i] = line + " [DONE]"
		}
		break
	}
	return strings.Join(lines, "\n")
}

func atoiDefault(s string, def int) int {
	n := 0
	ok := len(s) > 0
	for _, r := range s {
		if r < '0' || r > '9' {
			ok = false
			break
		}
		n = n*10 + int(r-'0')
	}
	if !ok {
		return def
	}
	return n
}
