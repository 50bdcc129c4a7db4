package e2e

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcneo4j "github.com/testcontainers/testcontainers-go/modules/neo4j"
	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/kestrelhq/pipewise/internal/cache"
	"github.com/kestrelhq/pipewise/internal/gateway"
	"github.com/kestrelhq/pipewise/internal/graph"
	"github.com/kestrelhq/pipewise/internal/skill"
	"github.com/kestrelhq/pipewise/internal/skills"
	"github.com/kestrelhq/pipewise/internal/store"
)

// Package-level shared state — set by TestMain, used by all subtests.
var (
	testLogger *zap.Logger
	testStore  *store.Store
	testCache  *cache.Cache
	testGraph  *graph.Graph
)

// startPostgres starts a PostgreSQL testcontainer, returns DSN + cleanup func.
func startPostgres(ctx context.Context) (string, func(), error) {
	container, err := tcpg.Run(ctx, "postgres:16-alpine",
		tcpg.WithDatabase("pipewise_test"),
		tcpg.WithUsername("test"),
		tcpg.WithPassword("test"),
		tcpg.BasicWaitStrategies(),
	)
	if err != nil {
		return "", nil, fmt.Errorf("start postgres: %w", err)
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("pg connection string: %w", err)
	}
	cleanup := func() { container.Terminate(ctx) }
	return dsn, cleanup, nil
}

// startRedis starts a Redis testcontainer, returns URL + cleanup func.
func startRedis(ctx context.Context) (string, func(), error) {
	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		return "", nil, fmt.Errorf("start redis: %w", err)
	}
	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("redis endpoint: %w", err)
	}
	url := "redis://" + endpoint
	cleanup := func() { container.Terminate(ctx) }
	return url, cleanup, nil
}

// startNeo4j starts a Neo4j testcontainer, returns URI + cleanup func.
func startNeo4j(ctx context.Context) (string, func(), error) {
	container, err := tcneo4j.Run(ctx, "neo4j:5-community",
		tcneo4j.WithoutAuthentication(),
	)
	if err != nil {
		return "", nil, fmt.Errorf("start neo4j: %w", err)
	}
	uri, err := container.BoltUrl(ctx)
	if err != nil {
		container.Terminate(ctx)
		return "", nil, fmt.Errorf("neo4j bolt url: %w", err)
	}
	cleanup := func() { container.Terminate(ctx) }
	return uri, cleanup, nil
}

// startQdrant starts a Qdrant testcontainer and returns the gRPC host/port
// plus a cleanup func. There is no testcontainers module for Qdrant, so this
// uses a generic container with a listening-port wait.
func startQdrant(ctx context.Context) (string, int, func(), error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "qdrant/qdrant:v1.12.4",
			ExposedPorts: []string{"6334/tcp"},
			WaitingFor:   wait.ForListeningPort("6334/tcp"),
		},
		Started: true,
	})
	if err != nil {
		return "", 0, nil, fmt.Errorf("start qdrant: %w", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return "", 0, nil, fmt.Errorf("qdrant host: %w", err)
	}
	port, err := container.MappedPort(ctx, "6334")
	if err != nil {
		container.Terminate(ctx)
		return "", 0, nil, fmt.Errorf("qdrant port: %w", err)
	}
	cleanup := func() { container.Terminate(ctx) }
	return host, port.Int(), cleanup, nil
}

// seedPipeline loads a small but realistic book of business: six open deals
// across three stages, quarterly KPIs, and two researched prospects with
// relationship edges.
func seedPipeline(ctx context.Context) error {
	deals := []*store.Deal{
		{ID: "d-001", Name: "Acme expansion", Company: "Acme Corp", Stage: "discovery", Amount: 42000, Owner: "mira", CloseDate: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC)},
		{ID: "d-002", Name: "Globex platform", Company: "Globex", Stage: "discovery", Amount: 88000, Owner: "mira", CloseDate: time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "d-003", Name: "Initech renewal", Company: "Initech", Stage: "proposal", Amount: 120000, Owner: "jon", CloseDate: time.Date(2026, 9, 30, 0, 0, 0, 0, time.UTC)},
		{ID: "d-004", Name: "Umbrella pilot", Company: "Umbrella", Stage: "proposal", Amount: 15000, Owner: "jon", CloseDate: time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)},
		{ID: "d-005", Name: "Stark rollout", Company: "Stark Industries", Stage: "negotiation", Amount: 250000, Owner: "mira", CloseDate: time.Date(2026, 12, 10, 0, 0, 0, 0, time.UTC)},
		{ID: "d-006", Name: "Wayne upsell", Company: "Wayne Enterprises", Stage: "negotiation", Amount: 64000, Owner: "ravi", CloseDate: time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)},
	}
	for _, d := range deals {
		if err := testStore.SaveDeal(ctx, d); err != nil {
			return fmt.Errorf("seed deal %s: %w", d.ID, err)
		}
	}

	metrics := []*store.Metric{
		{Name: "win_rate", Period: "2026-q3", Value: 31.5, Unit: "%"},
		{Name: "average_deal_size", Period: "2026-q3", Value: 96500, Unit: "usd"},
	}
	for _, m := range metrics {
		if err := testStore.SaveMetric(ctx, m); err != nil {
			return fmt.Errorf("seed metric %s: %w", m.Name, err)
		}
	}

	prospects := []*store.Prospect{
		{ID: "p-001", Company: "Acme Corp", Industry: "manufacturing", Headcount: 1200, Contact: "dana@acme.example", Notes: "Evaluating vendors for Q4."},
		{ID: "p-002", Company: "Globex", Industry: "logistics", Headcount: 4500, Contact: "lee@globex.example", Notes: "Warm intro via partner network."},
	}
	for _, p := range prospects {
		if err := testStore.SaveProspect(ctx, p); err != nil {
			return fmt.Errorf("seed prospect %s: %w", p.Company, err)
		}
	}

	if testGraph != nil {
		links := []struct {
			from, to, kind string
			strength       int
		}{
			{"Acme Corp", "Globex", "partner", 8},
			{"Acme Corp", "Initech", "shared_contact", 3},
			{"Globex", "Stark Industries", "customer", 6},
		}
		for _, l := range links {
			if err := testGraph.Link(ctx, l.from, l.to, l.kind, l.strength); err != nil {
				return fmt.Errorf("seed link %s -> %s: %w", l.from, l.to, err)
			}
		}
	}
	return nil
}

// newCopilot builds a registry and dispatcher over the live test backends.
func newCopilot() (*skill.Registry, *skill.Dispatcher, error) {
	reg := skill.NewRegistry()
	deps := skills.Deps{
		Pipeline:  testStore,
		Metrics:   testStore,
		Prospects: testStore,
	}
	if testCache != nil {
		deps.Cache = testCache
	}
	if testGraph != nil {
		deps.Connections = testGraph
	}
	if err := skills.RegisterAll(reg, deps); err != nil {
		return nil, nil, err
	}
	return reg, skill.NewDispatcher(reg, nil, testLogger), nil
}

// CaptureAdapter is a test gateway adapter that records all outbound messages.
type CaptureAdapter struct {
	sent    []*gateway.OutboundMessage
	handler gateway.MessageHandler
	mu      sync.Mutex
}

func (c *CaptureAdapter) Platform() string                  { return "test" }
func (c *CaptureAdapter) Connect(ctx context.Context) error { return nil }
func (c *CaptureAdapter) OnMessage(h gateway.MessageHandler) { c.handler = h }
func (c *CaptureAdapter) Close() error                      { return nil }

func (c *CaptureAdapter) Send(ctx context.Context, msg *gateway.OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

// Inject simulates an inbound message from an operator.
func (c *CaptureAdapter) Inject(msg *gateway.InboundMessage) {
	msg.Platform = "test"
	if c.handler != nil {
		c.handler(msg)
	}
}

// Sent returns a copy of all captured outbound messages.
func (c *CaptureAdapter) Sent() []*gateway.OutboundMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := make([]*gateway.OutboundMessage, len(c.sent))
	copy(cp, c.sent)
	return cp
}

// Reset clears captured messages.
func (c *CaptureAdapter) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}
