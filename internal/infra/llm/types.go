// Package llm defines the model-agnostic chat completion abstraction.
// All types here are shared between the provider interface and adapters.
package llm

import "errors"

// Roles used in a conversation.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrNoChoices is returned when the service answers without any completion choice.
var ErrNoChoices = errors.New("no choices returned by model")

// Message represents a single turn in a conversation (role + content).
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// ChatRequest is the input for a non-streaming chat completion.
type ChatRequest struct {
	// Model overrides the provider default (Azure: deployment name) when non-empty.
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// ChatResponse is the output from a non-streaming chat completion.
type ChatResponse struct {
	Content    string // The first choice's message text.
	StopReason string // "stop" | "length" | "content_filter"
	Tokens     int    // Total tokens consumed (prompt + completion).
}

// ModelMeta describes the model / provider identity.
type ModelMeta struct {
	ID        string // deployment or model name, e.g. "gpt-4o-ops", "llama3.2:3b"
	Provider  string // "azure" | "ollama"
	Version   string // API version, e.g. "2023-07-01-preview"
	MaxTokens int    // Maximum context window size, 0 if unknown.
}
