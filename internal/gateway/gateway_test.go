package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ytclab/ytcbot/internal/admin"
	"github.com/ytclab/ytcbot/internal/botconfig"
	"github.com/ytclab/ytcbot/internal/config"
	"github.com/ytclab/ytcbot/internal/memory"
	"github.com/ytclab/ytcbot/internal/persona"
	"github.com/ytclab/ytcbot/internal/security"
	"gopkg.in/yaml.v3"
)

const testToken = "test-admin-token"

type fixture struct {
	gw       *Gateway
	settings *botconfig.Store
	personas *persona.Store
	memory   *memory.Store
}

type staticLister []string

func (s staticLister) Channels() []string { return s }
func (s staticLister) Names() []string    { return s }

type scopeCount int

func (n scopeCount) ActiveScopes() int { return int(n) }

type fakeJobs struct {
	ran []string
	err error
}

func (f *fakeJobs) Jobs() []string { return []string{"volatile_prune"} }
func (f *fakeJobs) RunNow(_ context.Context, name string) (bool, error) {
	if name != "volatile_prune" {
		return false, nil
	}
	f.ran = append(f.ran, name)
	return true, f.err
}

func newFixture(t *testing.T, mutate func(*Config, *Deps)) *fixture {
	t.Helper()
	settings := botconfig.NewStatic(botconfig.Settings{SystemPrompt: "be brief", Personality: "cheerful"})
	personas := persona.NewStore(t.TempDir(), func() string { return settings.Current().Personality }, nil)
	mem := memory.NewStore(memory.NewFileLog(t.TempDir(), nil), memory.Config{}, nil)

	cfg := Config{Auth: AuthConfig{BearerToken: testToken}}
	deps := Deps{
		Admin:     admin.New(settings, personas, mem, nil),
		Redactor:  security.NewRedactor(),
		Channels:  staticLister{"console"},
		Providers: staticLister{"provider.gemini"},
		Router:    scopeCount(2),
		Jobs:      &fakeJobs{},
	}
	if mutate != nil {
		mutate(&cfg, &deps)
	}
	return &fixture{gw: New(cfg, deps, nil), settings: settings, personas: personas, memory: mem}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	f.gw.Handler().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v (body %q)", err, rr.Body.String())
	}
	return v
}

func TestGateway_ModuleInfo(t *testing.T) {
	t.Parallel()
	info := (&Gateway{}).ModuleInfo()
	if info.ID != "gateway.http" {
		t.Errorf("ID = %q, want gateway.http", info.ID)
	}
	if _, ok := info.New().(*Gateway); !ok {
		t.Error("New() should return *Gateway")
	}
}

func TestGateway_ConfigureDefaults(t *testing.T) {
	t.Parallel()
	var node yaml.Node
	if err := yaml.Unmarshal([]byte("{}"), &node); err != nil {
		t.Fatal(err)
	}
	g := &Gateway{}
	if err := g.Configure(&node); err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if g.config.Bind != "127.0.0.1:8080" || g.config.ShutdownTimeout != 5*time.Second {
		t.Errorf("defaults not applied: %+v", g.config)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}

	g.config.Bind = "not an address"
	if err := g.Validate(); err == nil {
		t.Error("Validate() accepted a bad bind address")
	}
}

func TestGateway_Health(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		channels   staticLister
		wantStatus string
		wantCode   int
	}{
		{name: "healthy", channels: staticLister{"console"}, wantStatus: "ok", wantCode: http.StatusOK},
		{name: "no channels", channels: staticLister{}, wantStatus: "degraded", wantCode: http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, func(_ *Config, d *Deps) { d.Channels = tt.channels })

			rr := httptest.NewRecorder()
			f.gw.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

			if rr.Code != tt.wantCode {
				t.Errorf("status code = %d, want %d", rr.Code, tt.wantCode)
			}
			resp := decode[HealthResponse](t, rr)
			if resp.Status != tt.wantStatus || resp.ActiveScopes != 2 {
				t.Errorf("health = %+v", resp)
			}
		})
	}
}

func TestGateway_AdminRequiresAuth(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/prompts", nil)
	rr := httptest.NewRecorder()
	f.gw.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("no credentials: status = %d, want 401", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/prompts", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr = httptest.NewRecorder()
	f.gw.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", rr.Code)
	}
}

func TestGateway_AdminNotMountedWithoutAuth(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(c *Config, _ *Deps) { c.Auth = AuthConfig{} })

	if rr := f.do(t, http.MethodGet, "/api/prompts", ""); rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}

func TestGateway_Prompts(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	if rr := f.do(t, http.MethodPut, "/api/prompts/system", `{"text":"answer in French"}`); rr.Code != http.StatusNoContent {
		t.Fatalf("set system prompt: status = %d body %s", rr.Code, rr.Body)
	}
	if rr := f.do(t, http.MethodPut, "/api/scopes/555/personality", `{"text":"a pirate"}`); rr.Code != http.StatusNoContent {
		t.Fatalf("set scope personality: status = %d body %s", rr.Code, rr.Body)
	}

	global := decode[admin.Prompts](t, f.do(t, http.MethodGet, "/api/prompts", ""))
	want := admin.Prompts{SystemPrompt: "answer in French", Personality: "cheerful", Effective: "cheerful", Source: "global"}
	if diff := cmp.Diff(want, global); diff != "" {
		t.Errorf("global prompts mismatch (-want +got):\n%s", diff)
	}

	scoped := decode[admin.Prompts](t, f.do(t, http.MethodGet, "/api/scopes/555/prompts", ""))
	want = admin.Prompts{
		SystemPrompt:     "answer in French",
		Personality:      "cheerful",
		ScopePersonality: "a pirate",
		Effective:        "a pirate",
		Source:           "override",
	}
	if diff := cmp.Diff(want, scoped); diff != "" {
		t.Errorf("scoped prompts mismatch (-want +got):\n%s", diff)
	}

	if rr := f.do(t, http.MethodDelete, "/api/scopes/555/personality", ""); rr.Code != http.StatusNoContent {
		t.Errorf("clear: status = %d", rr.Code)
	}
	if rr := f.do(t, http.MethodDelete, "/api/scopes/555/personality", ""); rr.Code != http.StatusNotFound {
		t.Errorf("second clear: status = %d, want 404", rr.Code)
	}
}

func TestGateway_BadRequests(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{name: "blank text", method: http.MethodPut, path: "/api/prompts/personality", body: `{"text":"  "}`},
		{name: "malformed body", method: http.MethodPut, path: "/api/prompts/system", body: `{`},
		{name: "invalid scope", method: http.MethodGet, path: "/api/scopes/dm:1/prompts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rr := f.do(t, tt.method, tt.path, tt.body); rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400 (body %s)", rr.Code, rr.Body)
			}
		})
	}
}

func TestGateway_Memory(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)
	ctx := context.Background()

	if err := f.memory.RecordTurn(ctx, memory.TurnRecord{AuthorID: "7", AuthorNick: "ann", Scope: "555", Input: "hi", Reply: "hello"}); err != nil {
		t.Fatal(err)
	}

	view := decode[admin.MemoryView](t, f.do(t, http.MethodGet, "/api/scopes/555/memory?author=7", ""))
	if len(view.Window) != 2 || view.Turns != 1 || !strings.Contains(view.Durable, "hello") {
		t.Errorf("memory view = %+v", view)
	}

	info := decode[memory.LogInfo](t, f.do(t, http.MethodGet, "/api/scopes/555/memory/info", ""))
	if !info.Exists || info.Turns != 1 {
		t.Errorf("memory info = %+v", info)
	}

	if rr := f.do(t, http.MethodDelete, "/api/scopes/555/memory?author=7", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("clear: status = %d", rr.Code)
	}
	view = decode[admin.MemoryView](t, f.do(t, http.MethodGet, "/api/scopes/555/memory?author=7", ""))
	if !view.Empty() {
		t.Errorf("memory not cleared: %+v", view)
	}
}

func TestGateway_ConfigRedacted(t *testing.T) {
	t.Parallel()
	cfg, err := config.Parse([]byte(`
version: "1"
modules:
  provider.gemini:
    api_key: plain-secret-value
    model: gemini-1.5-flash
`))
	if err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, func(_ *Config, d *Deps) { d.Config = cfg })

	rr := f.do(t, http.MethodGet, "/api/config", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := rr.Body.String()
	if strings.Contains(body, "plain-secret-value") {
		t.Errorf("secret leaked: %s", body)
	}
	if !strings.Contains(body, "gemini-1.5-flash") {
		t.Errorf("non-secret missing: %s", body)
	}
}

func TestGateway_RunJob(t *testing.T) {
	t.Parallel()
	jobs := &fakeJobs{}
	f := newFixture(t, func(_ *Config, d *Deps) { d.Jobs = jobs })

	if rr := f.do(t, http.MethodPost, "/api/jobs/volatile_prune/run", ""); rr.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rr.Code)
	}
	if rr := f.do(t, http.MethodPost, "/api/jobs/nope/run", ""); rr.Code != http.StatusConflict {
		t.Errorf("unknown job: status = %d, want 409", rr.Code)
	}
	jobs.err = errors.New("disk full")
	if rr := f.do(t, http.MethodPost, "/api/jobs/volatile_prune/run", ""); rr.Code != http.StatusInternalServerError {
		t.Errorf("failing job: status = %d, want 500", rr.Code)
	}
	if len(jobs.ran) != 2 {
		t.Errorf("runs = %v", jobs.ran)
	}
}

func TestGateway_Status(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	resp := decode[StatusResponse](t, f.do(t, http.MethodGet, "/status", ""))
	if resp.Model != botconfig.DefaultModel || resp.Prefix != botconfig.DefaultPrefix {
		t.Errorf("status = %+v", resp)
	}
	if diff := cmp.Diff([]string{"volatile_prune"}, resp.Jobs); diff != "" {
		t.Errorf("jobs mismatch (-want +got):\n%s", diff)
	}
}

func TestGateway_Metrics(t *testing.T) {
	t.Parallel()
	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ytcbot_turns_total 1\n"))
	})

	private := newFixture(t, func(_ *Config, d *Deps) { d.Metrics = metrics })
	rr := httptest.NewRecorder()
	private.gw.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("private metrics without auth: status = %d, want 401", rr.Code)
	}

	public := newFixture(t, func(c *Config, d *Deps) { d.Metrics, c.PublicMetrics = metrics, true })
	rr = httptest.NewRecorder()
	public.gw.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "ytcbot_turns_total") {
		t.Errorf("public metrics: status = %d body %q", rr.Code, rr.Body)
	}
}

func TestGateway_StartStop(t *testing.T) {
	t.Parallel()
	f := newFixture(t, func(c *Config, _ *Deps) { c.Bind = "127.0.0.1:0" })
	if err := f.gw.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.gw.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
}
