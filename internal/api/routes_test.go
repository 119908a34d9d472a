package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/matiasleandrokruk/opsagent/internal/api"
	"github.com/matiasleandrokruk/opsagent/internal/domain/audit"
	"github.com/matiasleandrokruk/opsagent/internal/domain/completion"
	"github.com/matiasleandrokruk/opsagent/internal/domain/persona"
	"github.com/matiasleandrokruk/opsagent/internal/infra/eventbus"
	"github.com/matiasleandrokruk/opsagent/internal/infra/llm"
	"github.com/matiasleandrokruk/opsagent/internal/infra/sqlite"
	pkgauth "github.com/matiasleandrokruk/opsagent/pkg/auth"
)

type stubProvider struct {
	content string
	err     error
}

func (p *stubProvider) ChatCompletion(context.Context, llm.ChatRequest) (*llm.ChatResponse, error) {
	if p.err != nil {
		return nil, p.err
	}
	return &llm.ChatResponse{Content: p.content}, nil
}

func (p *stubProvider) HealthCheck(context.Context) error { return p.err }

type testEnv struct {
	srv    *httptest.Server
	signer *pkgauth.Signer
	audit  *audit.Service
}

func newTestEnv(t *testing.T, provider *stubProvider, withAudit bool) *testEnv {
	t.Helper()

	signer, err := pkgauth.NewSigner("test-secret-key-32-chars-min!!!", time.Hour)
	if err != nil {
		t.Fatalf("NewSigner: %v", err)
	}
	hash, err := pkgauth.HashPassword("admin-pass")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	env := &testEnv{signer: signer}
	deps := api.Deps{Health: provider, Signer: signer, AdminPasswordHash: hash}

	var opts []completion.Option
	if withAudit {
		db, err := sqlite.Open(sqlite.MemoryPath)
		if err != nil {
			t.Fatalf("sqlite.Open: %v", err)
		}
		bus := eventbus.New()
		env.audit = audit.NewService(db, nil)
		ctx, cancel := context.WithCancel(context.Background())
		done := env.audit.Start(ctx, bus)
		t.Cleanup(func() {
			cancel()
			<-done
			bus.Close()
			db.Close()
		})
		opts = append(opts, completion.WithPublisher(bus))
		deps.Audit = env.audit
	}
	deps.Completions = completion.NewService(persona.Default(), provider, opts...)

	env.srv = httptest.NewServer(api.NewRouter(deps))
	t.Cleanup(env.srv.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) (*http.Response, map[string]any) {
	t.Helper()

	req, err := http.NewRequest(method, e.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	json.NewDecoder(resp.Body).Decode(&out) //nolint:errcheck
	return resp, out
}

func (e *testEnv) token(t *testing.T) string {
	t.Helper()
	tok, err := e.signer.Generate("ci-bot")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return tok
}

func TestRouter_PublicRoutes(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &stubProvider{}, false)

	for _, path := range []string{"/health", "/health/ready", "/version"} {
		resp, _ := env.do(t, http.MethodGet, path, "", "")
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d; want 200", path, resp.StatusCode)
		}
	}
}

func TestRouter_ReadyReportsBackendDown(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &stubProvider{err: errors.New("dial tcp: connection refused")}, false)
	resp, _ := env.do(t, http.MethodGet, "/health/ready", "", "")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("GET /health/ready = %d; want 503", resp.StatusCode)
	}
}

func TestRouter_ProtectedRoutesRequireToken(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &stubProvider{content: "x"}, false)
	resp, _ := env.do(t, http.MethodGet, "/api/v1/personas", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("GET /api/v1/personas without token = %d; want 401", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/api/v1/personas/ask/complete", `{"input":"hi"}`, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("POST complete without token = %d; want 401", resp.StatusCode)
	}
}

func TestRouter_TokenThenComplete(t *testing.T) {
	t.Parallel()

	answer := "Use multi-stage YAML pipelines with environment approvals."
	env := newTestEnv(t, &stubProvider{content: answer}, false)

	resp, body := env.do(t, http.MethodPost, "/auth/token", `{"client_id":"ci-bot","password":"admin-pass"}`, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /auth/token = %d; want 200", resp.StatusCode)
	}
	token, _ := body["token"].(string) //nolint:errcheck
	if token == "" {
		t.Fatal("token missing from response")
	}

	resp, body = env.do(t, http.MethodPost, "/api/v1/personas/ask/complete", `{"input":"CI/CD best practices?"}`, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST complete = %d; want 200", resp.StatusCode)
	}
	if body["response"] != answer || body["ok"] != true || body["persona"] != "ask" {
		t.Errorf("body = %v", body)
	}
}

func TestRouter_CompleteFailureIsPrefixedWith200(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &stubProvider{err: errors.New("429 Too Many Requests")}, false)
	resp, body := env.do(t, http.MethodPost, "/api/v1/personas/analyze-log/complete", `{"input":"log"}`, env.token(t))

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d; want 200", resp.StatusCode)
	}
	if body["response"] != "Error analyzing workflow log: 429 Too Many Requests" || body["ok"] != false {
		t.Errorf("body = %v", body)
	}
}

func TestRouter_AuditDisabled(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &stubProvider{content: "x"}, false)
	resp, _ := env.do(t, http.MethodGet, "/api/v1/audit", "", env.token(t))
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /api/v1/audit with audit disabled = %d; want 404", resp.StatusCode)
	}
}

func TestRouter_AuditRecordsCompletions(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, &stubProvider{content: "fine"}, true)
	token := env.token(t)

	env.do(t, http.MethodPost, "/api/v1/personas/ask/complete", `{"input":"q1"}`, token)
	env.do(t, http.MethodPost, "/api/v1/personas/analyze-log/complete", `{"input":"q2"}`, token)

	deadline := time.Now().Add(2 * time.Second)
	for {
		page, err := env.audit.List(context.Background(), 10, 0)
		if err == nil && page.Total == 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("audit rows not persisted: %+v, %v", page, err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, body := env.do(t, http.MethodGet, "/api/v1/audit?limit=1", "", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /api/v1/audit = %d; want 200", resp.StatusCode)
	}
	if total, _ := body["total"].(float64); total != 2 { //nolint:errcheck
		t.Errorf("total = %v; want 2", body["total"])
	}
	if records, _ := body["records"].([]any); len(records) != 1 { //nolint:errcheck
		t.Errorf("records = %v; want 1 (limit)", body["records"])
	}

	resp, _ = env.do(t, http.MethodGet, "/api/v1/audit/stats?persona=ask", "", token)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /api/v1/audit/stats = %d; want 200", resp.StatusCode)
	}
}
