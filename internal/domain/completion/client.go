// Package completion runs single-turn chat completions for a persona.
//
// A Client sends exactly two messages per call (the persona's system prompt and
// the caller's text), keeps no conversation state, and never retries. Do reports
// the outcome as a Result; Complete renders it as the string callers print, with
// failures formatted as "<persona error prefix>: <error text>".
package completion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/matiasleandrokruk/opsagent/internal/domain/persona"
	"github.com/matiasleandrokruk/opsagent/internal/infra/llm"
	"github.com/matiasleandrokruk/opsagent/internal/infra/logger"
)

// ChatCompleter is the slice of llm.LLMProvider the client needs.
type ChatCompleter interface {
	ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

// Publisher receives a FinishedEvent after every call. eventbus.Bus satisfies it.
type Publisher interface {
	Publish(topic string, payload any)
}

// Result is the typed outcome of one call. Exactly one of Text or Err is meaningful.
type Result struct {
	Text string
	Err  error
}

// OK reports whether the call succeeded.
func (r Result) OK() bool { return r.Err == nil }

// Client is safe for concurrent use; calls share only read-only configuration.
type Client struct {
	provider ChatCompleter
	persona  persona.Persona
	model    string
	events   Publisher
	log      *slog.Logger
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides the provider's default model or deployment name.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithPublisher emits a FinishedEvent on TopicFinished after each call.
func WithPublisher(p Publisher) Option {
	return func(c *Client) { c.events = p }
}

// WithLogger sets the logger used for per-call debug lines.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New returns a Client bound to one persona.
func New(provider ChatCompleter, p persona.Persona, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		persona:  p,
		log:      logger.Discard(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Persona returns the persona this client runs with.
func (c *Client) Persona() persona.Persona { return c.persona }

// Request builds the outgoing request for input. It depends only on the persona and input.
func (c *Client) Request(input string) llm.ChatRequest {
	return llm.ChatRequest{
		Model: c.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: c.persona.SystemPrompt},
			{Role: llm.RoleUser, Content: c.persona.UserContent(input)},
		},
		Temperature: c.persona.Temperature,
		MaxTokens:   c.persona.MaxTokens,
	}
}

// Do performs one request/response cycle. It never panics: provider panics are
// reported as errors like any other failure.
func (c *Client) Do(ctx context.Context, input string) (res Result) {
	start := c.now()
	var resp *llm.ChatResponse
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("panic: %v", r)}
		}
		c.finish(ctx, input, res, resp, c.now().Sub(start))
	}()

	resp, err := c.provider.ChatCompletion(ctx, c.Request(input))
	if err != nil {
		return Result{Err: err}
	}
	if resp == nil {
		return Result{Err: llm.ErrNoChoices}
	}
	return Result{Text: resp.Content}
}

// Complete returns the response text, or the persona-prefixed error description.
func (c *Client) Complete(ctx context.Context, input string) string {
	res := c.Do(ctx, input)
	if res.Err != nil {
		return c.persona.FormatError(res.Err.Error())
	}
	return res.Text
}

func (c *Client) finish(ctx context.Context, input string, res Result, resp *llm.ChatResponse, elapsed time.Duration) {
	evt := FinishedEvent{
		Persona:     c.persona.Name,
		Outcome:     OutcomeSuccess,
		InputBytes:  len(input),
		OutputBytes: len(res.Text),
		Duration:    elapsed,
		At:          c.now().UTC(),
	}
	if mi, ok := c.provider.(interface{ ModelInfo() llm.ModelMeta }); ok {
		meta := mi.ModelInfo()
		evt.Provider, evt.Model = meta.Provider, meta.ID
	}
	if c.model != "" {
		evt.Model = c.model
	}
	if res.Err != nil {
		evt.Outcome = OutcomeError
		evt.Error = logger.RedactSensitiveData(res.Err.Error())
	} else if resp != nil {
		evt.Tokens, evt.StopReason = resp.Tokens, resp.StopReason
	}

	c.log.DebugContext(ctx, "completion finished",
		"persona", evt.Persona,
		"provider", evt.Provider,
		"model", evt.Model,
		"outcome", evt.Outcome,
		"duration_ms", elapsed.Milliseconds(),
		"input_bytes", evt.InputBytes,
		"tokens", evt.Tokens,
		"stop_reason", evt.StopReason,
	)
	if c.events != nil {
		c.events.Publish(TopicFinished, evt)
	}
}
