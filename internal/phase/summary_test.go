package phase

import (
	"strings"
	"testing"
)

func TestExtractPhaseSummary_StructuredBlock(t *testing.T) {
	text := "Some preamble the assistant wrote.\n\n" +
		"### PHASE_SUMMARY\n" +
		"Summary: Implemented the client and wired retries.\n" +
		"Changed files:\n" +
		"- internal/client.go\n" +
		"- internal/client_test.go\n" +
		"Notes for next phase: remember to add metrics.\n" +
		"### END_PHASE_SUMMARY\n"

	s := ExtractPhaseSummary(text, 1, "Wire the client")

	if s.SummaryText != "Implemented the client and wired retries." {
		t.Errorf("SummaryText = %q", s.SummaryText)
	}
	if len(s.FilesChanged) != 2 || s.FilesChanged[0] != "internal/client.go" || s.FilesChanged[1] != "internal/client_test.go" {
		t.Errorf("FilesChanged = %v", s.FilesChanged)
	}
	if s.Notes == nil || *s.Notes != "remember to add metrics." {
		t.Errorf("Notes = %v", s.Notes)
	}
	if s.PhaseNumber != 1 || s.Title != "Wire the client" {
		t.Errorf("PhaseNumber/Title = %d/%q", s.PhaseNumber, s.Title)
	}
}

func TestExtractPhaseSummary_CzechLabels(t *testing.T) {
	text := "### PHASE_SUMMARY\n" +
		"Shrnutí: Hotovo.\n" +
		"Změněné soubory:\n" +
		"- main.go\n" +
		"Poznámky pro další fázi: none\n" +
		"### END_PHASE_SUMMARY\n"

	s := ExtractPhaseSummary(text, 2, "Second")

	if s.SummaryText != "Hotovo." {
		t.Errorf("SummaryText = %q", s.SummaryText)
	}
	if len(s.FilesChanged) != 1 || s.FilesChanged[0] != "main.go" {
		t.Errorf("FilesChanged = %v", s.FilesChanged)
	}
	if s.Notes != nil {
		t.Errorf("Notes should be nil for a \"none\" value, got %v", *s.Notes)
	}
}

func TestExtractPhaseSummary_NoStructuredBlock_Synthesizes(t *testing.T) {
	text := "I made the changes you asked for and ran the tests."
	s := ExtractPhaseSummary(text, 3, "Third")

	if !strings.Contains(s.SummaryText, "Completed phase 3: Third") {
		t.Errorf("synthesized summary missing phase marker: %q", s.SummaryText)
	}
	if !strings.Contains(s.SummaryText, text) {
		t.Errorf("synthesized summary missing original text: %q", s.SummaryText)
	}
	if s.FilesChanged != nil {
		t.Errorf("FilesChanged should be empty when no block is present, got %v", s.FilesChanged)
	}
}
