// Provider interface.
// Adapters (Azure OpenAI, Ollama) implement this interface so the completion
// client is never coupled to a specific vendor.

package llm

import "context"

// LLMProvider is the model-agnostic interface for chat completions.
// Streaming and embeddings are intentionally absent.
type LLMProvider interface {
	// ChatCompletion performs one non-streaming chat completion.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// ModelInfo returns static metadata about the provider/model.
	ModelInfo() ModelMeta

	// HealthCheck returns nil if the provider is reachable and operational.
	HealthCheck(ctx context.Context) error
}
