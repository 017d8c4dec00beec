package types

import (
	"encoding/json"
	"time"
)

// ActivityMsg is a tagged sum over the kinds of events a running session
// can push to its SessionActivityStore. All variants carry a timestamp;
// ID returns the correlation id where one applies.
type ActivityMsg interface {
	ActivityType() string
	ActivityTime() time.Time
	ID() string
}

type activityBase struct {
	Time time.Time `json:"time"`
}

func (b activityBase) ActivityTime() time.Time { return b.Time }

// ToolCall records the start of a tool invocation.
type ToolCall struct {
	activityBase
	ToolCallID string         `json:"id"`
	ToolName   string         `json:"toolName"`
	Args       map[string]any `json:"args,omitempty"`
}

func (m ToolCall) ActivityType() string { return "tool_call" }
func (m ToolCall) ID() string           { return m.ToolCallID }

// NewToolCall builds a ToolCall activity stamped with the given time.
func NewToolCall(t time.Time, id, toolName string, args map[string]any) ToolCall {
	return ToolCall{activityBase: activityBase{Time: t}, ToolCallID: id, ToolName: toolName, Args: args}
}

// ToolResult records the completion of a tool invocation.
type ToolResult struct {
	activityBase
	ToolCallID string         `json:"id"`
	ToolName   string         `json:"toolName"`
	Args       map[string]any `json:"args,omitempty"`
	Result     string         `json:"result"`
	Success    bool           `json:"success"`
}

func (m ToolResult) ActivityType() string { return "tool_result" }
func (m ToolResult) ID() string           { return m.ToolCallID }

// NewToolResult builds a ToolResult activity stamped with the given time.
func NewToolResult(t time.Time, id, toolName string, args map[string]any, result string, success bool) ToolResult {
	return ToolResult{
		activityBase: activityBase{Time: t},
		ToolCallID:   id,
		ToolName:     toolName,
		Args:         args,
		Result:       result,
		Success:      success,
	}
}

// AgentMessage is a chunk (or the whole) of the assistant's text response.
type AgentMessage struct {
	activityBase
	MessageID string `json:"id"`
	Content   string `json:"content"`
	IsPartial bool   `json:"isPartial"`
}

func (m AgentMessage) ActivityType() string { return "agent_message" }
func (m AgentMessage) ID() string           { return m.MessageID }

// NewAgentMessage builds an AgentMessage activity stamped with the given time.
func NewAgentMessage(t time.Time, id, content string, isPartial bool) AgentMessage {
	return AgentMessage{activityBase: activityBase{Time: t}, MessageID: id, Content: content, IsPartial: isPartial}
}

// Reasoning carries extended-thinking text, when the backend emits it.
type Reasoning struct {
	activityBase
	ReasoningID string `json:"id"`
	Content     string `json:"content"`
}

func (m Reasoning) ActivityType() string { return "reasoning" }
func (m Reasoning) ID() string           { return m.ReasoningID }

// NewReasoning builds a Reasoning activity stamped with the given time.
func NewReasoning(t time.Time, id, content string) Reasoning {
	return Reasoning{activityBase: activityBase{Time: t}, ReasoningID: id, Content: content}
}

// StepStart marks the beginning of a named step inside a session.
type StepStart struct {
	activityBase
	StepID   string  `json:"id"`
	StepName *string `json:"stepName,omitempty"`
}

func (m StepStart) ActivityType() string { return "step_start" }
func (m StepStart) ID() string           { return m.StepID }

// NewStepStart builds a StepStart activity stamped with the given time.
func NewStepStart(t time.Time, id string, stepName *string) StepStart {
	return StepStart{activityBase: activityBase{Time: t}, StepID: id, StepName: stepName}
}

// JsonPatch carries a raw JSON patch payload, passed through verbatim.
type JsonPatch struct {
	activityBase
	Patch json.RawMessage `json:"patch"`
}

func (m JsonPatch) ActivityType() string { return "json_patch" }
func (m JsonPatch) ID() string           { return "" }

// NewJsonPatch builds a JsonPatch activity stamped with the given time.
func NewJsonPatch(t time.Time, patch json.RawMessage) JsonPatch {
	return JsonPatch{activityBase: activityBase{Time: t}, Patch: patch}
}

// Finished is the terminal activity of a session. After it, no further
// messages are expected, though the store still accepts late re-emits.
type Finished struct {
	activityBase
	Success bool    `json:"success"`
	Error   *string `json:"error,omitempty"`
}

func (m Finished) ActivityType() string { return "finished" }
func (m Finished) ID() string           { return "" }

// NewFinished builds the terminal Finished activity for a session.
func NewFinished(t time.Time, success bool, errMsg *string) Finished {
	return Finished{activityBase: activityBase{Time: t}, Success: success, Error: errMsg}
}
