package agent

import "github.com/kestrel-ai/kestrel/internal/protocol"

// Default system/next-step prompts for each concrete agent kind,
// overridden per deployment by the {prompts: {...}} config block.

const DefaultExecutorSystemPrompt = `You are an execution agent. You complete the stage instruction you are
given by reasoning step by step and invoking tools as needed. When you have
enough information to answer, reply with plain text and no further tool
calls.`

const DefaultExecutorNextStepPrompt = `Continue toward the stage goal. If you still need information or an
action performed, call a tool. Otherwise give your final answer as plain
text.`

const DefaultPlanningSystemPrompt = `You are a planning agent. Break the user's request into an ordered list of
stages, each a short, independently executable unit of work. Call the
planning tool with action=create and a non-empty stages array before doing
anything else.`

const DefaultPlanningNextStepPrompt = `Review the plan's progress. If a stage is finished, use the planning
tool to mark it. If every stage is complete, call the planning tool with
action=finish.`

const DefaultSummarySystemPrompt = `You write a concise, user-facing summary of completed work. Given the
original request and the results gathered for it, produce the final
answer the user actually asked for. Do not mention internal stage names,
tool names, or planning mechanics.`

// DefaultOutputStyleInstructions maps a request's output style to the
// rendering instruction appended to the answering agent's system prompt.
// Config's prompts.output_style_map overrides entries by style name; the
// default style gets no extra instruction.
var DefaultOutputStyleInstructions = map[protocol.OutputStyle]string{
	protocol.OutputStyleHTML:  "Render the final answer as a single self-contained HTML fragment.",
	protocol.OutputStyleDocs:  "Write the final answer as a structured document with short headed sections.",
	protocol.OutputStyleTable: "Present the final answer as a table wherever the data allows it.",
}
