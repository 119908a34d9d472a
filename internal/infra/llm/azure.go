// Azure OpenAI adapter.
// AzureProvider calls the Azure OpenAI chat completions API through go-openai:
//   - POST {endpoint}/openai/deployments/{deployment}/chat/completions?api-version=...
//   - GET  {endpoint}/openai/models?api-version=...   (health check)

package llm

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// azureDeploymentTag prefixes the deployment in the body's model field so the
// SDK's OpenAI model-name checks never match it. The mapper strips it for the URL path.
const azureDeploymentTag = "deployments/"

// AzureConfig addresses one Azure OpenAI deployment.
// Values are used as given; empty fields fail at request time, not here.
type AzureConfig struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	Deployment string
	// Timeout bounds each HTTP round-trip. Zero keeps the transport default.
	Timeout time.Duration
}

// AzureProvider implements LLMProvider against an Azure OpenAI deployment.
type AzureProvider struct {
	cfg    AzureConfig
	client *openai.Client
}

// NewAzureProvider creates an AzureProvider. No network call is made.
func NewAzureProvider(cfg AzureConfig) *AzureProvider {
	oc := openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
	if cfg.APIVersion != "" {
		oc.APIVersion = cfg.APIVersion
	}
	// Deployment names are passed through verbatim; the SDK default strips dots.
	oc.AzureModelMapperFunc = func(model string) string {
		return strings.TrimPrefix(model, azureDeploymentTag)
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &AzureProvider{
		cfg:    cfg,
		client: openai.NewClientWithConfig(oc),
	}
}

// ChatCompletion sends the conversation to the configured deployment and returns
// the first choice. Errors from the SDK are returned unwrapped so callers see the
// service's own description.
func (p *AzureProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	deployment := req.Model
	if deployment == "" {
		deployment = p.cfg.Deployment
	}

	msgs := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openai.ChatCompletionMessage{Role: m.Role, Content: m.Content}
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       azureDeploymentTag + deployment,
		Messages:    msgs,
		Temperature: wireTemperature(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}

	first := resp.Choices[0]
	return &ChatResponse{
		Content:    first.Message.Content,
		StopReason: string(first.FinishReason),
		Tokens:     resp.Usage.TotalTokens,
	}, nil
}

// wireTemperature keeps an explicit 0 on the wire. The SDK field is omitempty,
// and an absent temperature means 1.0 to the service.
func wireTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// ModelInfo returns static metadata for the configured deployment.
func (p *AzureProvider) ModelInfo() ModelMeta {
	return ModelMeta{
		ID:       p.cfg.Deployment,
		Provider: "azure",
		Version:  p.cfg.APIVersion,
	}
}

// HealthCheck lists models on the resource; nil means Azure answered.
func (p *AzureProvider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return fmt.Errorf("azure healthcheck: %w", err)
	}
	return nil
}
