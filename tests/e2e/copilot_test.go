package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kestrelhq/pipewise/internal/api"
	"github.com/kestrelhq/pipewise/internal/cache"
	"github.com/kestrelhq/pipewise/internal/chat"
	"github.com/kestrelhq/pipewise/internal/gateway"
	"github.com/kestrelhq/pipewise/internal/graph"
	"github.com/kestrelhq/pipewise/internal/skill"
	"github.com/kestrelhq/pipewise/internal/store"
	"github.com/kestrelhq/pipewise/internal/telemetry"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	ctx := context.Background()
	testLogger, _ = zap.NewDevelopment()

	// 1. Start PostgreSQL
	pgDSN, pgCleanup, err := startPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "postgres: %v\n", err)
		os.Exit(1)
	}
	defer pgCleanup()

	testStore, err = store.New(pgDSN, testLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "store: %v\n", err)
		os.Exit(1)
	}
	defer testStore.Close()

	// Run migrations
	if err := testStore.Migrate(ctx, "../../migrations"); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	// 2. Start Redis
	redisURL, redisCleanup, err := startRedis(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		os.Exit(1)
	}
	defer redisCleanup()

	testCache, err = cache.New(redisURL, time.Minute, testLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cache: %v\n", err)
		os.Exit(1)
	}
	defer testCache.Close()

	// 3. Start Neo4j
	neo4jURI, neo4jCleanup, err := startNeo4j(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "neo4j: %v\n", err)
		os.Exit(1)
	}
	defer neo4jCleanup()

	testGraph, err = graph.New(neo4jURI, "", "", testLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "graph: %v\n", err)
		os.Exit(1)
	}
	defer testGraph.Close(ctx)

	if err := seedPipeline(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func TestCopilotFlow(t *testing.T) {
	ctx := context.Background()

	_, dispatcher, err := newCopilot()
	if err != nil {
		t.Fatalf("build copilot: %v", err)
	}

	t.Run("PipelineHealth", func(t *testing.T) {
		env := dispatcher.Dispatch(ctx, &skill.Request{SkillID: "pipeline-health"})
		if !env.OK {
			t.Fatalf("dispatch failed: %s %s", env.ErrorKind, env.Message)
		}
		if env.ResponseType != skill.ResponseTable {
			t.Errorf("response type = %s, want %s", env.ResponseType, skill.ResponseTable)
		}
		if !strings.Contains(env.Text, "6 deals worth") {
			t.Errorf("text missing rollup summary: %q", env.Text)
		}
		for _, stage := range []string{"discovery", "proposal", "negotiation"} {
			if !strings.Contains(env.Text, stage) {
				t.Errorf("text missing stage %s: %q", stage, env.Text)
			}
		}
	})

	t.Run("PipelineHealthSingleStage", func(t *testing.T) {
		env := dispatcher.Dispatch(ctx, &skill.Request{
			SkillID: "pipeline-health",
			Input:   map[string]any{"stage": "negotiation"},
		})
		if !env.OK {
			t.Fatalf("dispatch failed: %s %s", env.ErrorKind, env.Message)
		}
		if !strings.Contains(env.Text, "2 deals worth $314000") {
			t.Errorf("unexpected negotiation rollup: %q", env.Text)
		}
		if strings.Contains(env.Text, "discovery") {
			t.Errorf("stage filter leaked other stages: %q", env.Text)
		}
		if !strings.Contains(env.Text, "Stark rollout") {
			t.Errorf("stage drill-down missing deals: %q", env.Text)
		}
	})

	t.Run("FreeTextResolution", func(t *testing.T) {
		env := dispatcher.Dispatch(ctx, &skill.Request{Text: "how is the pipeline"})
		if !env.OK {
			t.Fatalf("dispatch failed: %s %s", env.ErrorKind, env.Message)
		}
		if env.SkillID != "pipeline-health" {
			t.Errorf("resolved to %s, want pipeline-health", env.SkillID)
		}
	})

	t.Run("KPIReadThrough", func(t *testing.T) {
		req := &skill.Request{
			SkillID: "kpi-lookup",
			Input:   map[string]any{"metric": "win_rate", "period": "2026-q3"},
		}
		env := dispatcher.Dispatch(ctx, req)
		if !env.OK {
			t.Fatalf("dispatch failed: %s %s", env.ErrorKind, env.Message)
		}
		if !strings.Contains(env.Text, "31.50") {
			t.Errorf("text missing metric value: %q", env.Text)
		}

		// The first lookup populated the cache; a DB change must not show
		// through until the entry expires.
		if err := testStore.SaveMetric(ctx, &store.Metric{
			Name: "win_rate", Period: "2026-q3", Value: 99.9, Unit: "%",
		}); err != nil {
			t.Fatalf("update metric: %v", err)
		}
		env = dispatcher.Dispatch(ctx, req)
		if !env.OK {
			t.Fatalf("second dispatch failed: %s %s", env.ErrorKind, env.Message)
		}
		if !strings.Contains(env.Text, "31.50") {
			t.Errorf("cache did not absorb repeat lookup: %q", env.Text)
		}
	})

	t.Run("ProspectResearchWithConnections", func(t *testing.T) {
		env := dispatcher.Dispatch(ctx, &skill.Request{
			SkillID: "prospect-research",
			Input:   map[string]any{"company": "acme corp"},
		})
		if !env.OK {
			t.Fatalf("dispatch failed: %s %s", env.ErrorKind, env.Message)
		}
		if !strings.Contains(env.Text, "manufacturing") {
			t.Errorf("text missing prospect record: %q", env.Text)
		}
		if !strings.Contains(env.Text, "Globex") {
			t.Errorf("text missing graph connections: %q", env.Text)
		}
	})

	t.Run("UnknownCompany", func(t *testing.T) {
		env := dispatcher.Dispatch(ctx, &skill.Request{
			SkillID: "prospect-research",
			Input:   map[string]any{"company": "Hooli"},
		})
		if env.OK {
			t.Fatal("expected failure for unknown company")
		}
		if env.ErrorKind != skill.ErrorHandler {
			t.Errorf("error kind = %s, want %s", env.ErrorKind, skill.ErrorHandler)
		}
	})
}

func TestChatSurface(t *testing.T) {
	_, dispatcher, err := newCopilot()
	if err != nil {
		t.Fatalf("build copilot: %v", err)
	}

	gw := gateway.New(testLogger)
	recorder := telemetry.NewRecorder(testCache.Client(), testLogger)
	router := chat.New(dispatcher, gw, recorder, testLogger)
	gw.SetHandler(router.Handle)

	capture := &CaptureAdapter{}
	gw.Register(capture)

	capture.Inject(&gateway.InboundMessage{
		ChannelID: "C123",
		UserID:    "U456",
		Content:   "show pipeline health",
		Timestamp: time.Now(),
	})

	sent := capture.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	if sent[0].ChannelID != "C123" {
		t.Errorf("reply channel = %s, want C123", sent[0].ChannelID)
	}
	if !strings.Contains(sent[0].Content, "6 deals worth") {
		t.Errorf("reply missing rollup: %q", sent[0].Content)
	}
	if !strings.Contains(sent[0].Content, "You could ask:") {
		t.Errorf("reply missing follow-up suggestions: %q", sent[0].Content)
	}

	// Telemetry stream should have recorded the dispatch.
	ctx := context.Background()
	entries, err := testCache.Client().XRange(ctx, "pipewise:dispatches", "-", "+").Result()
	if err != nil {
		t.Fatalf("read telemetry stream: %v", err)
	}
	if len(entries) == 0 {
		t.Error("no telemetry events recorded")
	}
}

func TestHTTPAPI(t *testing.T) {
	registry, dispatcher, err := newCopilot()
	if err != nil {
		t.Fatalf("build copilot: %v", err)
	}

	handler := api.NewHandler(api.Config{
		Registry:   registry,
		Dispatcher: dispatcher,
		Recorder:   telemetry.NewRecorder(testCache.Client(), testLogger),
		AuthToken:  "e2e-token",
		Backends: map[string]api.Pinger{
			"postgres": testStore,
			"redis":    testCache,
			"neo4j":    testGraph,
		},
		Gateways: func() []string { return nil },
	}, testLogger)
	srv := httptest.NewServer(handler.Router())
	defer srv.Close()

	t.Run("Status", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/status")
		if err != nil {
			t.Fatalf("status: %v", err)
		}
		defer resp.Body.Close()
		var body struct {
			Skills   int             `json:"skills"`
			Backends map[string]bool `json:"backends"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Skills != 5 {
			t.Errorf("skills = %d, want 5", body.Skills)
		}
		for _, name := range []string{"postgres", "redis", "neo4j"} {
			if !body.Backends[name] {
				t.Errorf("backend %s reported down", name)
			}
		}
	})

	t.Run("Discovery", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/skills", nil)
		req.Header.Set("Authorization", "Bearer e2e-token")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("skills: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var body struct {
			Count int `json:"count"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Count != 5 {
			t.Errorf("count = %d, want 5", body.Count)
		}
	})

	t.Run("DispatchOverHTTP", func(t *testing.T) {
		payload := strings.NewReader(`{"skill_id": "kpi-lookup", "input": {"metric": "average_deal_size", "period": "2026-q3"}}`)
		resp, err := http.Post(srv.URL+"/api/dispatch", "application/json", payload)
		if err != nil {
			t.Fatalf("dispatch: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		var env skill.Envelope
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if !env.OK {
			t.Fatalf("dispatch failed: %s %s", env.ErrorKind, env.Message)
		}
		if !strings.Contains(env.Text, "96500") {
			t.Errorf("text missing metric value: %q", env.Text)
		}
	})
}
