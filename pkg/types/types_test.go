package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTask_JSON(t *testing.T) {
	path := "/home/user/project/.worktrees/task-1"
	task := Task{
		ID:            "task-1",
		Title:         "Add retry logic",
		Description:   "Wrap backend calls in exponential backoff",
		Status:        StatusInProgress,
		WorkspacePath: &path,
		CreatedAt:     time.Unix(1700000000, 0).UTC(),
		UpdatedAt:     time.Unix(1700000100, 0).UTC(),
	}

	data, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded Task
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.Status != StatusInProgress {
		t.Errorf("Status mismatch: got %s, want %s", decoded.Status, StatusInProgress)
	}
	if decoded.WorkspacePath == nil || *decoded.WorkspacePath != path {
		t.Errorf("WorkspacePath mismatch: got %v", decoded.WorkspacePath)
	}
}

func TestSession_OptionalFields(t *testing.T) {
	session := Session{ID: "session-1", TaskID: "task-1", Phase: PhaseReview, Status: SessionPending}

	data, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal to map failed: %v", err)
	}
	if _, ok := raw["opencodeSessionId"]; ok {
		t.Error("opencodeSessionId should be omitted when nil")
	}

	opencodeID := "ses_abc123"
	session.OpenCodeSessionID = &opencodeID
	data2, _ := json.Marshal(session)
	var raw2 map[string]any
	json.Unmarshal(data2, &raw2)
	if raw2["opencodeSessionId"] != opencodeID {
		t.Error("opencodeSessionId should be present when set")
	}
}

func TestActivityMsg_Variants(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()

	cases := []ActivityMsg{
		ToolCall{activityBase{now}, "call-1", "read_file", map[string]any{"path": "main.go"}},
		ToolResult{activityBase{now}, "call-1", "read_file", nil, "package main", true},
		AgentMessage{activityBase{now}, "msg-1", "Looking at the file now.", true},
		Reasoning{activityBase{now}, "r-1", "Considering edge cases."},
		StepStart{activityBase{now}, "step-1", nil},
		Finished{activityBase{now}, true, nil},
	}

	wantTypes := []string{"tool_call", "tool_result", "agent_message", "reasoning", "step_start", "finished"}

	for i, c := range cases {
		if c.ActivityType() != wantTypes[i] {
			t.Errorf("case %d: ActivityType() = %s, want %s", i, c.ActivityType(), wantTypes[i])
		}
		if !c.ActivityTime().Equal(now) {
			t.Errorf("case %d: ActivityTime() = %v, want %v", i, c.ActivityTime(), now)
		}
	}

	if cases[0].ID() != "call-1" {
		t.Errorf("ToolCall.ID() = %s, want call-1", cases[0].ID())
	}
}

func TestEventEnvelope_JSON(t *testing.T) {
	env := EventEnvelope{
		ID:        uuid.New(),
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Event:     TaskStatusChanged{TaskID: "task-1", From: StatusPlanning, To: StatusInProgress},
	}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal to map failed: %v", err)
	}
	ev, ok := raw["event"].(map[string]any)
	if !ok {
		t.Fatalf("event should be an object, got %T", raw["event"])
	}
	if ev["to"] != string(StatusInProgress) {
		t.Errorf("event.to = %v, want %s", ev["to"], StatusInProgress)
	}
}

func TestParsedPlan_IsSinglePhase(t *testing.T) {
	single := ParsedPlan{Phases: []PlanPhase{{Number: 1, Title: "Everything", Content: "do it all"}}}
	if !single.IsSinglePhase() {
		t.Error("expected single-phase plan to report IsSinglePhase() == true")
	}

	multi := ParsedPlan{Phases: []PlanPhase{
		{Number: 1, Title: "Scaffolding"},
		{Number: 2, Title: "Wire it up"},
	}}
	if multi.IsSinglePhase() {
		t.Error("expected multi-phase plan to report IsSinglePhase() == false")
	}
}

func TestPhaseContextState_IsComplete(t *testing.T) {
	cases := []struct {
		state PhaseContextState
		want  bool
	}{
		{PhaseContextState{PhaseNumber: 1, TotalPhases: 3}, false},
		{PhaseContextState{PhaseNumber: 3, TotalPhases: 3}, false},
		{PhaseContextState{PhaseNumber: 4, TotalPhases: 3}, true},
	}
	for _, c := range cases {
		if got := c.state.IsComplete(); got != c.want {
			t.Errorf("IsComplete() for phase %d/%d = %v, want %v", c.state.PhaseNumber, c.state.TotalPhases, got, c.want)
		}
	}
}
