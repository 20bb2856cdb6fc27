// Package memory implements the per-agent-run append-only message log,
// including head-truncation to fit an input token budget.
package memory

import (
	"sync"

	"github.com/kestrel-ai/kestrel/internal/protocol"
)

// Memory is an ordered, append-only log of protocol.Message scoped to a
// single agent run. It is safe for concurrent use: a ReActAgent's think()
// appends from the run loop while a sibling sub-agent may read a Snapshot
// concurrently during plan delegation.
type Memory struct {
	mu       sync.RWMutex
	messages []protocol.Message
}

// New builds an empty Memory, optionally seeded with leading system messages.
func New(system ...string) *Memory {
	m := &Memory{}
	for _, s := range system {
		m.messages = append(m.messages, protocol.Message{Role: protocol.RoleSystem, Content: s})
	}
	return m
}

// Append adds a message to the end of the log.
func (m *Memory) Append(msg protocol.Message) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
}

// Snapshot returns a copy of the current message log.
func (m *Memory) Snapshot() []protocol.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]protocol.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Len reports the number of messages currently held.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// ClearToolContext removes every assistant message that carried tool calls
// and every tool reply, leaving system/user/plain-assistant messages
// intact. PlanningAgent calls this between stage iterations so the
// planning memory does not grow without bound; the Plan itself, not this
// memory, is the durable record of progress.
func (m *Memory) ClearToolContext() {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.messages[:0:0]
	for _, msg := range m.messages {
		if msg.Role == protocol.RoleTool {
			continue
		}
		if msg.Role == protocol.RoleAssistant && len(msg.ToolCalls) > 0 {
			continue
		}
		kept = append(kept, msg)
	}
	m.messages = kept
}

// PruneToFit drops the oldest non-system messages until the serialized
// token size (per counter) is within maxTokens. The leading run of system
// messages is always preserved. If the oldest remaining non-system message
// is a tool reply, its sibling tool replies from the same assistant
// tool-call turn are dropped together so the tool-call/tool-reply pairing
// invariant never breaks.
func (m *Memory) PruneToFit(counter *TokenCounter, maxTokens int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if counter.CountMessages(m.messages) <= maxTokens {
		return
	}

	leadingSystem := 0
	for leadingSystem < len(m.messages) && m.messages[leadingSystem].Role == protocol.RoleSystem {
		leadingSystem++
	}

	rest := append([]protocol.Message(nil), m.messages[leadingSystem:]...)
	for len(rest) > 0 {
		total := counter.CountMessages(append(m.messages[:leadingSystem], rest...))
		if total <= maxTokens {
			break
		}
		rest = rest[1:]
		// Preserve tool-call/tool-reply pairing: if we just orphaned a tool
		// reply by dropping the assistant message that issued its call (or
		// dropped one of several), drop any immediately-following tool
		// replies that belonged to that same call batch.
		for len(rest) > 0 && rest[0].Role == protocol.RoleTool && !hasMatchingCall(m.messages[:leadingSystem], rest) {
			rest = rest[1:]
		}
	}

	m.messages = append(append([]protocol.Message(nil), m.messages[:leadingSystem]...), rest...)
}

// hasMatchingCall reports whether rest[0] (a tool message) has a matching
// assistant.ToolCalls entry anywhere in the surviving prefix or later in
// rest itself.
func hasMatchingCall(prefix []protocol.Message, rest []protocol.Message) bool {
	id := rest[0].ToolCallID
	for _, msg := range prefix {
		for _, tc := range msg.ToolCalls {
			if tc.ID == id {
				return true
			}
		}
	}
	for _, msg := range rest {
		for _, tc := range msg.ToolCalls {
			if tc.ID == id {
				return true
			}
		}
	}
	return false
}
