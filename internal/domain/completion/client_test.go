package completion

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/opsagent/internal/domain/persona"
	"github.com/matiasleandrokruk/opsagent/internal/infra/llm"
)

// fakeProvider records every request and answers with a fixed response or error.
type fakeProvider struct {
	mu       sync.Mutex
	requests []llm.ChatRequest
	resp     *llm.ChatResponse
	err      error
	panicMsg string
}

func (f *fakeProvider) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.resp, f.err
}

func (f *fakeProvider) ModelInfo() llm.ModelMeta {
	return llm.ModelMeta{ID: "gpt-4o-ops", Provider: "azure"}
}

func (f *fakeProvider) recorded() []llm.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.ChatRequest(nil), f.requests...)
}

// capturePublisher collects published events.
type capturePublisher struct {
	mu     sync.Mutex
	events []FinishedEvent
}

func (p *capturePublisher) Publish(topic string, payload any) {
	if topic != TopicFinished {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, payload.(FinishedEvent))
}

func TestComplete_SuccessReturnsTextUnmodified(t *testing.T) {
	t.Parallel()

	want := "Restart the failed step; the error indicates a missing dependency."
	fp := &fakeProvider{resp: &llm.ChatResponse{Content: want}}
	c := New(fp, persona.AnalyzeLog())

	got := c.Complete(context.Background(), "##[error]Process completed with exit code 1.")
	assert.Equal(t, want, got)
}

func TestComplete_PreservesWhitespace(t *testing.T) {
	t.Parallel()

	want := "\n  1. Check the cache key.\n\n"
	c := New(&fakeProvider{resp: &llm.ChatResponse{Content: want}}, persona.Ask())
	assert.Equal(t, want, c.Complete(context.Background(), "q"))
}

func TestComplete_FailureIsPrefixed(t *testing.T) {
	t.Parallel()

	fp := &fakeProvider{err: errors.New("429 Too Many Requests")}

	assert.Equal(t, "Error asking question: 429 Too Many Requests",
		New(fp, persona.Ask()).Complete(context.Background(), "hello"))
	assert.Equal(t, "Error analyzing workflow log: 429 Too Many Requests",
		New(fp, persona.AnalyzeLog()).Complete(context.Background(), "hello"))
}

func TestComplete_NilResponse_ReportsNoChoices(t *testing.T) {
	t.Parallel()

	c := New(&fakeProvider{}, persona.Ask())
	got := c.Complete(context.Background(), "hello")
	assert.Equal(t, "Error asking question: "+llm.ErrNoChoices.Error(), got)
}

func TestDo_ProviderPanic_IsRecovered(t *testing.T) {
	t.Parallel()

	c := New(&fakeProvider{panicMsg: "index out of range"}, persona.Ask())

	var res Result
	require.NotPanics(t, func() { res = c.Do(context.Background(), "hello") })
	assert.False(t, res.OK())
	assert.Contains(t, res.Err.Error(), "index out of range")
	assert.True(t, strings.HasPrefix(c.Complete(context.Background(), "hello"), "Error asking question: "))
}

func TestDo_ErrorIsNotWrapped(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("401 Unauthorized")
	res := New(&fakeProvider{err: sentinel}, persona.Ask()).Do(context.Background(), "x")
	assert.Same(t, sentinel, res.Err)
}

func TestRequest_ExactlySystemAndCurrentUserMessage(t *testing.T) {
	t.Parallel()

	fp := &fakeProvider{resp: &llm.ChatResponse{Content: "ok"}}
	c := New(fp, persona.Ask())

	c.Complete(context.Background(), "first question")
	c.Complete(context.Background(), "second question")

	reqs := fp.recorded()
	require.Len(t, reqs, 2)
	for i, want := range []string{"first question", "second question"} {
		require.Len(t, reqs[i].Messages, 2)
		assert.Equal(t, llm.Message{Role: llm.RoleSystem, Content: persona.Ask().SystemPrompt}, reqs[i].Messages[0])
		assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: want}, reqs[i].Messages[1])
	}
	assert.NotContains(t, reqs[1].Messages[1].Content, "first question")
}

func TestRequest_ParametersMatchPersonaRegardlessOfInput(t *testing.T) {
	t.Parallel()

	fp := &fakeProvider{resp: &llm.ChatResponse{Content: "ok"}}
	c := New(fp, persona.AnalyzeLog())

	for _, in := range []string{"", "short", strings.Repeat("x", 1<<20)} {
		c.Complete(context.Background(), in)
	}

	for _, req := range fp.recorded() {
		assert.Equal(t, float32(0.3), req.Temperature)
		assert.Equal(t, 1000, req.MaxTokens)
	}
	big := fp.recorded()[2].Messages[1].Content
	assert.Equal(t, persona.AnalyzeLog().UserPreamble+strings.Repeat("x", 1<<20), big, "input must not be truncated")
}

func TestWithModel_OverridesDeployment(t *testing.T) {
	t.Parallel()

	fp := &fakeProvider{resp: &llm.ChatResponse{Content: "ok"}}
	New(fp, persona.Ask(), WithModel("gpt-35-turbo")).Complete(context.Background(), "q")
	assert.Equal(t, "gpt-35-turbo", fp.recorded()[0].Model)
}

func TestPublisher_ReceivesMetadataOnly(t *testing.T) {
	t.Parallel()

	pub := &capturePublisher{}
	ok := New(&fakeProvider{resp: &llm.ChatResponse{Content: "fine"}}, persona.Ask(), WithPublisher(pub))
	bad := New(&fakeProvider{err: errors.New("boom")}, persona.AnalyzeLog(), WithPublisher(pub))

	ok.Complete(context.Background(), "secret question")
	bad.Complete(context.Background(), "secret log")

	require.Len(t, pub.events, 2)
	assert.Equal(t, FinishedEvent{
		Persona: persona.NameAsk, Provider: "azure", Model: "gpt-4o-ops",
		Outcome: OutcomeSuccess, InputBytes: len("secret question"), OutputBytes: len("fine"),
		Duration: pub.events[0].Duration, At: pub.events[0].At,
	}, pub.events[0])
	assert.Equal(t, OutcomeError, pub.events[1].Outcome)
	assert.Equal(t, "boom", pub.events[1].Error)
	assert.False(t, pub.events[1].At.IsZero())
}

func TestFinish_ReportsUsage(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	pub := &capturePublisher{}
	fp := &fakeProvider{resp: &llm.ChatResponse{Content: "fine", Tokens: 42, StopReason: "length"}}

	New(fp, persona.Ask(), WithPublisher(pub), WithLogger(log)).Complete(context.Background(), "secret question")

	require.Len(t, pub.events, 1)
	assert.Equal(t, 42, pub.events[0].Tokens)
	assert.Equal(t, "length", pub.events[0].StopReason)
	assert.Contains(t, buf.String(), "tokens=42")
	assert.Contains(t, buf.String(), "stop_reason=length")
	assert.NotContains(t, buf.String(), "secret question")
}

func TestComplete_AzureRateLimit_IsPrefixed(t *testing.T) {
	t.Parallel()

	var calls int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"code":"429","message":"Rate limit is exceeded."}}`)) //nolint:errcheck
	}))
	t.Cleanup(srv.Close)

	azure := llm.NewAzureProvider(llm.AzureConfig{
		Endpoint:   srv.URL,
		APIKey:     "test-key",
		APIVersion: "2023-07-01-preview",
		Deployment: "gpt-4o-ops",
	})

	cases := []struct {
		p      persona.Persona
		prefix string
	}{
		{persona.Ask(), "Error asking question: "},
		{persona.AnalyzeLog(), "Error analyzing workflow log: "},
	}
	for _, tc := range cases {
		got := New(azure, tc.p).Complete(context.Background(), "hello")
		assert.True(t, strings.HasPrefix(got, tc.prefix), "got %q", got)
		assert.Contains(t, got, "429 Too Many Requests")
		assert.Contains(t, got, "Rate limit is exceeded.")
		assert.NotContains(t, got, "test-key")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, len(cases), calls, "one request per call, no retry")
}

func TestComplete_ConcurrentCallsAreIndependent(t *testing.T) {
	t.Parallel()

	fp := &fakeProvider{resp: &llm.ChatResponse{Content: "ok"}}
	c := New(fp, persona.Ask())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "ok", c.Complete(context.Background(), "q"))
		}()
	}
	wg.Wait()

	for _, req := range fp.recorded() {
		assert.Len(t, req.Messages, 2)
	}
	assert.Len(t, fp.recorded(), 16)
}
