package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kestrelhq/pipewise/internal/skill"
	"go.uber.org/zap"
)

// newTestHandler creates a Handler over an in-memory registry with one skill.
func newTestHandler(t *testing.T, authToken string, devMode bool) http.Handler {
	t.Helper()
	logger := zap.NewNop()

	reg := skill.NewRegistry()
	err := reg.Register(&skill.Definition{
		ID:           "pipeline-health",
		Name:         "Pipeline Health",
		Domain:       skill.DomainAnalytics,
		ResponseType: skill.ResponseTable,
		EstimatedMs:  200,
		Examples:     []string{"show pipeline health"},
		Handler: func(ctx context.Context, input map[string]any) (*skill.Result, error) {
			return &skill.Result{Text: "all good"}, nil
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	h := NewHandler(Config{
		Registry:   reg,
		Dispatcher: skill.NewDispatcher(reg, nil, logger),
		AuthToken:  authToken,
		DevMode:    devMode,
	}, logger)
	return h.Router()
}

func getWithAuth(t *testing.T, ts *httptest.Server, path, token string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func TestHealth(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t, "", true))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("got %d, want 200", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDiscoveryRequiresToken(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t, "sekrit", false))
	defer ts.Close()

	if resp := getWithAuth(t, ts, "/api/skills", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: got %d, want 401", resp.StatusCode)
	}
	if resp := getWithAuth(t, ts, "/api/skills", "wrong"); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad token: got %d, want 401", resp.StatusCode)
	}
	if resp := getWithAuth(t, ts, "/api/skills", "sekrit"); resp.StatusCode != http.StatusOK {
		t.Errorf("good token: got %d, want 200", resp.StatusCode)
	}
}

func TestDiscoveryDevModeBypass(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t, "sekrit", true))
	defer ts.Close()

	resp := getWithAuth(t, ts, "/api/skills", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dev mode: got %d, want 200", resp.StatusCode)
	}

	var body struct {
		Skills []map[string]interface{} `json:"skills"`
		Count  int                      `json:"count"`
	}
	decodeJSON(t, resp, &body)
	if body.Count != 1 || len(body.Skills) != 1 {
		t.Fatalf("got count=%d skills=%d, want 1", body.Count, len(body.Skills))
	}
	// Public fields only — the handler must never cross the wire.
	for _, forbidden := range []string{"handler", "execute", "Handler"} {
		if _, ok := body.Skills[0][forbidden]; ok {
			t.Errorf("descriptor leaked %q", forbidden)
		}
	}
	for _, required := range []string{"id", "name", "domain", "input_schema", "response_type", "estimated_ms", "examples"} {
		if _, ok := body.Skills[0][required]; !ok {
			t.Errorf("descriptor missing %q", required)
		}
	}
}

func TestDispatchEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t, "", true))
	defer ts.Close()

	body, _ := json.Marshal(skill.Request{Text: "show pipeline health"})
	resp, err := http.Post(ts.URL+"/api/dispatch", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST dispatch: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d, want 200", resp.StatusCode)
	}

	var env skill.Envelope
	decodeJSON(t, resp, &env)
	if !env.OK || env.SkillID != "pipeline-health" {
		t.Errorf("got %+v, want pipeline-health success", env)
	}
}

func TestDispatchEndpointFailureStillHTTP200(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t, "", true))
	defer ts.Close()

	body, _ := json.Marshal(skill.Request{Text: "book a flight to Tokyo"})
	resp, err := http.Post(ts.URL+"/api/dispatch", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST dispatch: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got %d, want 200 with failure envelope", resp.StatusCode)
	}

	var env skill.Envelope
	decodeJSON(t, resp, &env)
	if env.OK || env.ErrorKind != skill.ErrorUnresolved {
		t.Errorf("got %+v, want unresolved_request", env)
	}
}

func TestDispatchEndpointRejectsEmptyRequest(t *testing.T) {
	ts := httptest.NewServer(newTestHandler(t, "", true))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/dispatch", "application/json", bytes.NewReader([]byte(`{}`)))
	if err != nil {
		t.Fatalf("POST dispatch: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("got %d, want 400", resp.StatusCode)
	}
}
