package agent

import (
	"encoding/json"

	"github.com/google/uuid"

	"github.com/kestrel-ai/kestrel/internal/protocol"
	"github.com/kestrel-ai/kestrel/internal/sse"
)

// sendToolResultEvent emits a tool_result event once a tool call's
// consolidated result is known, the way the built-in streaming tools emit
// their own incremental events during execution.
func sendToolResultEvent(printer *sse.Printer, employee, toolName, result string) {
	if printer == nil {
		return
	}
	payload, _ := json.Marshal(protocol.ToolResultPayload{ToolName: toolName, ToolResult: result})
	printer.Send(protocol.SSEEvent{
		MessageID:       uuid.NewString(),
		MessageType:     protocol.MessageTypeToolResult,
		DigitalEmployee: employee,
		ResultMap:       payload,
		IsFinal:         true,
	})
}

// sendPlanEvent emits a "plan" event reflecting a snapshot of stage state,
// the same payload shape PlanningTool emits after its own mutations.
func sendPlanEvent(printer *sse.Printer, stages, steps, stepStatus []string, currentIndex int) {
	if printer == nil {
		return
	}
	payload, _ := json.Marshal(protocol.PlanPayload{
		Stages:       stages,
		Steps:        steps,
		StepStatus:   stepStatus,
		CurrentIndex: currentIndex,
	})
	printer.Send(protocol.SSEEvent{
		MessageID:   uuid.NewString(),
		MessageType: protocol.MessageTypePlan,
		ResultMap:   payload,
	})
}

// sendTaskEvent emits a task event announcing the start of a delegated
// stage, carrying the stage's taskId.
func sendTaskEvent(printer *sse.Printer, taskID, employee, content string) {
	if printer == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{"content": content})
	printer.Send(protocol.SSEEvent{
		MessageID:       uuid.NewString(),
		MessageType:     protocol.MessageTypeTask,
		DigitalEmployee: employee,
		TaskID:          taskID,
		ResultMap:       payload,
	})
}

// sendPlanThoughtEvent streams a planning agent's reasoning text; isFinal
// marks the last chunk of a given planning thought.
func sendPlanThoughtEvent(printer *sse.Printer, messageID, text string, isFinal bool) {
	if printer == nil {
		return
	}
	payload, _ := json.Marshal(protocol.PlanThoughtPayload{PlanThought: text})
	id := messageID
	if id == "" {
		id = uuid.NewString()
	}
	printer.Send(protocol.SSEEvent{
		MessageID:   id,
		MessageType: protocol.MessageTypePlanThought,
		ResultMap:   payload,
		IsFinal:     isFinal,
	})
}

// sendTaskSummaryEvent emits the consolidated summary a SummaryAgent
// produces before the orchestrator's own final result event.
func sendTaskSummaryEvent(printer *sse.Printer, summary string, files []protocol.FileHandle) {
	if printer == nil {
		return
	}
	payload, _ := json.Marshal(protocol.TaskSummaryPayload{TaskSummary: summary, FileList: files})
	printer.Send(protocol.SSEEvent{
		MessageID:   uuid.NewString(),
		MessageType: protocol.MessageTypeTaskSummary,
		ResultMap:   payload,
		IsFinal:     true,
	})
}
