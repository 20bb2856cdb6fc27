// Package protocol defines the wire-level data types shared by the LLM
// client, the tool subsystem, and the SSE progress bus: chat messages, tool
// calls and results, file handles, and outbound SSE events.
package protocol

import "encoding/json"

// Role identifies who authored a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ImageRef points at an inline image, either by URL or embedded base64.
// At most one field is set.
type ImageRef struct {
	URL    string `json:"url,omitempty"`
	Base64 string `json:"base64,omitempty"`
}

// ToolCall is the LLM's request to invoke a tool.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON
}

// Message is one entry in a Memory log.
//
// Invariant: a Role=tool message always carries ToolCallID matching some
// earlier Role=assistant message's ToolCalls[*].ID. Role=user and
// Role=system messages never carry tool-call fields.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	Image      *ImageRef  `json:"image,omitempty"`
}

// FileHandle describes a file produced by a tool and persisted by the
// external file service.
type FileHandle struct {
	FileName    string `json:"fileName"`
	FileSize    int64  `json:"fileSize"`
	DomainURL   string `json:"domainUrl"`
	OSSURL      string `json:"ossUrl"`
	Description string `json:"description,omitempty"`
}

// ToolResultStatus is the outcome of executing a tool call.
type ToolResultStatus string

const (
	ToolStatusOK    ToolResultStatus = "ok"
	ToolStatusError ToolResultStatus = "error"
)

// ToolResult is what a Tool's Execute returns.
type ToolResult struct {
	Status  ToolResultStatus `json:"status"`
	Content string           `json:"content"`
	Files   []FileHandle     `json:"files,omitempty"`
}

// AgentState is the lifecycle of a single agent run.
type AgentState string

const (
	StateIdle     AgentState = "idle"
	StateRunning  AgentState = "running"
	StateFinished AgentState = "finished"
	StateError    AgentState = "error"
)

// Terminal reports whether s is a terminal agent state.
func (s AgentState) Terminal() bool {
	return s == StateFinished || s == StateError
}

// Mode selects the top-level agent an Orchestrator constructs.
type Mode string

const (
	ModePlan  Mode = "plan"
	ModeReact Mode = "react"
)

// OutputStyle hints at how the final result should be rendered downstream.
type OutputStyle string

const (
	OutputStyleHTML    OutputStyle = "html"
	OutputStyleDocs    OutputStyle = "docs"
	OutputStyleTable   OutputStyle = "table"
	OutputStyleDefault OutputStyle = "default"
)

// RunRequest is the decoded body of POST /agent/run.
type RunRequest struct {
	RequestID   string      `json:"requestId"`
	SessionID   string      `json:"sessionId"`
	Query       string      `json:"query"`
	Mode        Mode        `json:"mode"`
	OutputStyle OutputStyle `json:"outputStyle,omitempty"`
	Stream      bool        `json:"stream"`
}

// MessageType is the closed set of SSEEvent payload kinds.
type MessageType string

const (
	MessageTypePlan        MessageType = "plan"
	MessageTypePlanThought MessageType = "plan_thought"
	MessageTypeTask        MessageType = "task"
	MessageTypeToolThought MessageType = "tool_thought"
	MessageTypeToolResult  MessageType = "tool_result"
	MessageTypeBrowser     MessageType = "browser"
	MessageTypeCode        MessageType = "code"
	MessageTypeHTML        MessageType = "html"
	MessageTypeMarkdown    MessageType = "markdown"
	MessageTypePPT         MessageType = "ppt"
	MessageTypeFile        MessageType = "file"
	MessageTypeKnowledge   MessageType = "knowledge"
	MessageTypeDeepSearch  MessageType = "deep_search"
	MessageTypeTaskSummary MessageType = "task_summary"
	MessageTypeResult      MessageType = "result"
	MessageTypeHeartbeat   MessageType = "heartbeat"
)

// SSEEvent is one frame sent to the client.
type SSEEvent struct {
	MessageID      string          `json:"messageId"`
	MessageType    MessageType     `json:"messageType"`
	DigitalEmployee string         `json:"digitalEmployee,omitempty"`
	TaskID         string          `json:"taskId,omitempty"`
	ResultMap      json.RawMessage `json:"resultMap"`
	IsFinal        bool            `json:"isFinal"`
}

// ResultStatus is the status carried by a final "result" event.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultError   ResultStatus = "error"
	ResultTimeout ResultStatus = "timeout"
)

// ResultPayload is the ResultMap shape for MessageTypeResult.
type ResultPayload struct {
	Status   ResultStatus `json:"status"`
	Result   string       `json:"result"`
	FileList []FileHandle `json:"fileList,omitempty"`
}

// PlanPayload is the ResultMap shape for MessageTypePlan.
type PlanPayload struct {
	Stages       []string `json:"stages"`
	Steps        []string `json:"steps"`
	StepStatus   []string `json:"stepStatus"`
	CurrentIndex int      `json:"currentIndex"`
}

// PlanThoughtPayload is the ResultMap shape for MessageTypePlanThought.
type PlanThoughtPayload struct {
	PlanThought string `json:"planThought"`
}

// ToolThoughtPayload is the ResultMap shape for MessageTypeToolThought.
type ToolThoughtPayload struct {
	ToolThought string `json:"toolThought"`
}

// ToolResultPayload is the ResultMap shape for MessageTypeToolResult.
type ToolResultPayload struct {
	ToolName   string `json:"toolName"`
	Command    string `json:"command,omitempty"`
	ToolResult string `json:"toolResult"`
}

// TaskSummaryPayload is the ResultMap shape for MessageTypeTaskSummary.
type TaskSummaryPayload struct {
	TaskSummary string       `json:"taskSummary"`
	FileList    []FileHandle `json:"fileList,omitempty"`
}
