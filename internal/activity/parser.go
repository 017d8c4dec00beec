package activity

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/souky-byte/opencode-studio/pkg/types"
)

// ParseSSEPart converts a backend message part into the matching
// ActivityMsg variant. Tool parts whose state is "completed" or "error"
// become a ToolResult; any other tool state becomes a ToolCall.
func ParseSSEPart(part types.Part) (types.ActivityMsg, error) {
	now := time.Now()

	switch part.Type {
	case types.PartText:
		text := ""
		if part.Text != nil {
			text = *part.Text
		}
		return types.NewAgentMessage(now, part.ID, text, false), nil

	case types.PartReasoning:
		text := ""
		if part.Text != nil {
			text = *part.Text
		}
		return types.NewReasoning(now, part.ID, text), nil

	case types.PartStepStart:
		var name *string
		if part.Tool != nil {
			name = part.Tool
		}
		return types.NewStepStart(now, part.ID, name), nil

	case types.PartTool:
		callID := part.ID
		if part.CallID != nil {
			callID = *part.CallID
		}
		toolName := ""
		if part.Tool != nil {
			toolName = *part.Tool
		}
		if part.State != nil && (part.State.Status == "completed" || part.State.Status == "error") {
			result := ""
			success := part.State.Status == "completed"
			if part.State.Output != nil {
				result = *part.State.Output
			} else if part.State.Error != nil {
				result = *part.State.Error
			}
			return types.NewToolResult(now, callID, toolName, part.Input, result, success), nil
		}
		return types.NewToolCall(now, callID, toolName, part.Input), nil

	default:
		return nil, fmt.Errorf("unrecognized part type: %q", part.Type)
	}
}

// DecodeActivity reconstructs the concrete ActivityMsg variant that
// Store.Push persisted for kind, from its raw JSON payload. Used by the
// registry to rehydrate a store's history from the activity repository.
func DecodeActivity(kind string, payload []byte) (types.ActivityMsg, error) {
	switch kind {
	case "tool_call":
		var m types.ToolCall
		return m, json.Unmarshal(payload, &m)
	case "tool_result":
		var m types.ToolResult
		return m, json.Unmarshal(payload, &m)
	case "agent_message":
		var m types.AgentMessage
		return m, json.Unmarshal(payload, &m)
	case "reasoning":
		var m types.Reasoning
		return m, json.Unmarshal(payload, &m)
	case "step_start":
		var m types.StepStart
		return m, json.Unmarshal(payload, &m)
	case "json_patch":
		var m types.JsonPatch
		return m, json.Unmarshal(payload, &m)
	case "finished":
		var m types.Finished
		return m, json.Unmarshal(payload, &m)
	default:
		return nil, fmt.Errorf("unknown activity kind: %q", kind)
	}
}

// ClassifyReview applies the review-text classification rules to the
// final assistant response of a ReviewPhase session. Evaluated on the
// uppercased form of text; the returned feedback, when present, is
// taken from the original (non-uppercased) text.
func ClassifyReview(text string) types.ReviewVerdict {
	upper := strings.ToUpper(text)

	if strings.Contains(upper, "APPROVED") && !strings.Contains(upper, "NOT APPROVED") {
		return types.ReviewVerdict{Kind: types.VerdictApproved}
	}

	verdictMarkers := []string{"CHANGES_REQUESTED", "CHANGES REQUESTED", "REJECTED"}
	for _, m := range verdictMarkers {
		if !strings.Contains(upper, m) {
			continue
		}
		// FEEDBACK/ISSUES only mark where the feedback body starts; they
		// do not by themselves classify the response.
		markers := append(verdictMarkers, "FEEDBACK", "ISSUES")
		feedback := text
		if idx := firstMarkerLineEnd(upper, markers); idx >= 0 {
			if body := strings.TrimSpace(text[idx:]); body != "" {
				feedback = body
			}
		}
		return types.ReviewVerdict{Kind: types.VerdictChangesRequested, Feedback: feedback}
	}

	return types.ReviewVerdict{
		Kind:     types.VerdictChangesRequested,
		Feedback: "Review response unclear. Manual review required.",
	}
}

// firstMarkerLineEnd returns the index, in upper, right after the first
// line containing any of markers, or -1 if none matched.
func firstMarkerLineEnd(upper string, markers []string) int {
	lines := strings.Split(upper, "\n")
	offset := 0
	for _, line := range lines {
		lineLen := len(line)
		for _, m := range markers {
			if strings.Contains(line, m) {
				end := offset + lineLen + 1 // skip the newline
				if end > len(upper) {
					end = len(upper)
				}
				return end
			}
		}
		offset += lineLen + 1
	}
	return -1
}

// ExtractJSON tolerantly pulls a JSON object out of free-form text,
// trying (in order) a fenced ```json block, a fenced plain code block,
// then the substring spanning the first '{' to the last '}'.
func ExtractJSON(text string) ([]byte, bool) {
	if body, ok := extractFenced(text, "```json"); ok {
		return body, true
	}
	if body, ok := extractFenced(text, "```"); ok {
		return body, true
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start >= 0 && end > start {
		return []byte(text[start : end+1]), true
	}
	return nil, false
}

func extractFenced(text, fence string) ([]byte, bool) {
	start := strings.Index(text, fence)
	if start < 0 {
		return nil, false
	}
	rest := text[start+len(fence):]
	end := strings.Index(rest, "```")
	if end < 0 {
		return nil, false
	}
	body := strings.TrimSpace(rest[:end])
	if body == "" {
		return nil, false
	}
	return []byte(body), true
}

