package llm

import "github.com/kestrel-ai/kestrel/internal/protocol"

// Error wraps protocol.Error for LLM-client failures; kept as a distinct
// constructor so call sites read naturally (llm.NewTransportError(...)).
type Error = protocol.Error

func newTransportError(message string, cause error) *Error {
	return protocol.NewError(protocol.KindTransport, message, cause)
}

func newParseError(message string, cause error) *Error {
	return protocol.NewError(protocol.KindParse, message, cause)
}

func newBudgetError(message string) *Error {
	return protocol.NewError(protocol.KindBudget, message, nil)
}
