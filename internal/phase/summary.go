package phase

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

var summaryBlockRe = regexp.MustCompile(`(?s)###\s*PHASE_SUMMARY\s*(.*?)###\s*END_PHASE_SUMMARY`)

// summaryLabels, filesLabels and notesLabels are the bilingual field labels a "### PHASE_SUMMARY" block
// may use (spec §4.2.2 names both).
var (
	summaryLabels = []string{"Summary", "Shrnutí"}
	filesLabels   = []string{"Changed files", "Změněné soubory"}
	notesLabels   = []string{"Notes for next phase", "Poznámky pro další fázi"}
	allLabels     = append(append(append([]string{}, summaryLabels...), filesLabels...), notesLabels...)
)

// ExtractPhaseSummary pulls a PhaseSummary out of an implementation
// phase's response text, looking for a "### PHASE_SUMMARY ... ###
// END_PHASE_SUMMARY" block. If none is found, it synthesizes one from
// the response text truncated to 500 characters.
func ExtractPhaseSummary(responseText string, phaseNumber int, title string) types.PhaseSummary {
	now := time.Now()

	m := summaryBlockRe.FindStringSubmatch(responseText)
	if m == nil {
		body := responseText
		if r := []rune(body); len(r) > 500 {
			body = string(r[:500])
		}
		return types.PhaseSummary{
			PhaseNumber: phaseNumber,
			Title:       title,
			SummaryText: "Completed phase " + strconv.Itoa(phaseNumber) + ": " + title + "\n\n" + body,
			CompletedAt: now,
		}
	}

	block := m[1]
	summary := strings.TrimSpace(extractLabeled(block, summaryLabels))
	filesRaw := extractLabeled(block, filesLabels)
	notesRaw := strings.TrimSpace(extractLabeled(block, notesLabels))

	var files []string
	for _, line := range strings.Split(filesRaw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "-")
		line = strings.TrimPrefix(line, "*")
		line = strings.TrimSpace(line)
		if line != "" {
			files = append(files, line)
		}
	}

	var notes *string
	if notesRaw != "" && !strings.EqualFold(notesRaw, "none") {
		n := notesRaw
		notes = &n
	}

	return types.PhaseSummary{
		PhaseNumber:  phaseNumber,
		Title:        title,
		SummaryText:  summary,
		FilesChanged: files,
		Notes:        notes,
		CompletedAt:  now,
	}
}

// extractLabeled collects the lines following whichever of wantLabels
// a line starts with (as "Label:"), stopping at the next recognized
// label in allLabels.
func extractLabeled(block string, wantLabels []string) string {
	var out []string
	collecting := false

	for _, line := range strings.Split(block, "\n") {
		trimmed := strings.TrimSpace(line)

		matched := ""
		for _, lbl := range allLabels {
			if strings.HasPrefix(trimmed, lbl+":") {
				matched = lbl
				break
			}
		}

		if matched != "" {
			collecting = contains(wantLabels, matched)
			if collecting {
				if rest := strings.TrimSpace(strings.TrimPrefix(trimmed, matched+":")); rest != "" {
					out = append(out, rest)
				}
			}
			continue
		}

		if collecting {
			out = append(out, line)
		}
	}

	return strings.Join(out, "\n")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
