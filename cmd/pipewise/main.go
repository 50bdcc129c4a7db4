package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kestrelhq/pipewise/internal/api"
	"github.com/kestrelhq/pipewise/internal/cache"
	"github.com/kestrelhq/pipewise/internal/chat"
	"github.com/kestrelhq/pipewise/internal/config"
	"github.com/kestrelhq/pipewise/internal/embedding"
	"github.com/kestrelhq/pipewise/internal/gateway"
	"github.com/kestrelhq/pipewise/internal/graph"
	"github.com/kestrelhq/pipewise/internal/recommend"
	"github.com/kestrelhq/pipewise/internal/skill"
	"github.com/kestrelhq/pipewise/internal/skills"
	"github.com/kestrelhq/pipewise/internal/store"
	"github.com/kestrelhq/pipewise/internal/telemetry"
	"github.com/kestrelhq/pipewise/internal/vectorstore"
	"go.uber.org/zap"
)

const dealCollection = "pipewise_deals"

// backfillDeals re-embeds every open deal into the vector index at startup.
// Upserts are idempotent, so restarting just refreshes the points.
func backfillDeals(ctx context.Context, st *store.Store, engine *recommend.Engine) (int, error) {
	summaries, err := st.StageSummaries(ctx, "")
	if err != nil {
		return 0, err
	}
	indexed := 0
	for _, s := range summaries {
		deals, err := st.DealsByStage(ctx, s.Stage, 200)
		if err != nil {
			return indexed, err
		}
		for _, d := range deals {
			text := recommend.DealText(d.Name, d.Company, d.Stage, d.Amount)
			err := engine.IndexDeal(ctx, d.ID, text, map[string]string{
				"name":    d.Name,
				"company": d.Company,
				"stage":   d.Stage,
			})
			if err != nil {
				return indexed, err
			}
			indexed++
		}
	}
	return indexed, nil
}

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting Pipewise...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/pipewise.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	backends := make(map[string]api.Pinger)

	// Initialize PostgreSQL store
	var pgStore *store.Store
	if cfg.Database.Postgres.DSN != "" {
		ps, pgErr := store.New(cfg.Database.Postgres.DSN, logger)
		if pgErr != nil {
			logger.Warn("PostgreSQL unavailable, running without persistence", zap.Error(pgErr))
		} else {
			if mErr := ps.Migrate(context.Background(), "migrations"); mErr != nil {
				logger.Fatal("migration failed", zap.Error(mErr))
			}
			pgStore = ps
			backends["postgres"] = ps
		}
	}

	// Initialize Redis cache
	var metricCache *cache.Cache
	if cfg.Database.Redis.URL != "" {
		mc, cErr := cache.New(cfg.Database.Redis.URL, 5*time.Minute, logger)
		if cErr != nil {
			logger.Warn("Redis unavailable, running without cache", zap.Error(cErr))
		} else {
			metricCache = mc
			backends["redis"] = mc
		}
	}

	// Initialize Neo4j relationship graph
	var relGraph *graph.Graph
	if cfg.Database.Neo4j.URI != "" {
		g, gErr := graph.New(cfg.Database.Neo4j.URI, cfg.Database.Neo4j.User, cfg.Database.Neo4j.Password, logger)
		if gErr != nil {
			logger.Warn("Neo4j unavailable, running without relationship graph", zap.Error(gErr))
		} else {
			relGraph = g
			backends["neo4j"] = g
		}
	}

	// Initialize Qdrant deal index + embedding-backed recommendation engine
	var engine *recommend.Engine
	var dealIndex *vectorstore.DealIndex
	if cfg.Database.Qdrant.Host != "" && cfg.Embedding.Endpoint != "" {
		idx, qErr := vectorstore.New(vectorstore.Config{
			Host: cfg.Database.Qdrant.Host,
			Port: cfg.Database.Qdrant.Port,
		}, dealCollection)
		if qErr != nil {
			logger.Warn("Qdrant unavailable, running without recommendations", zap.Error(qErr))
		} else {
			dim := uint64(cfg.Embedding.Dimension)
			if eErr := idx.EnsureCollection(context.Background(), dim); eErr != nil {
				logger.Warn("Qdrant collection init failed, running without recommendations", zap.Error(eErr))
				idx.Close()
			} else {
				dealIndex = idx
				provider := embedding.NewAPIProvider(embedding.Config{
					Endpoint:  cfg.Embedding.Endpoint,
					Model:     cfg.Embedding.Model,
					APIKey:    cfg.Embedding.APIKey,
					Dimension: cfg.Embedding.Dimension,
				})
				engine = recommend.NewEngine(provider, dealIndex, logger)
			}
		}
	}

	// Populate the deal index so recommendations have something to search.
	if engine != nil && pgStore != nil {
		if n, bErr := backfillDeals(context.Background(), pgStore, engine); bErr != nil {
			logger.Warn("deal index backfill incomplete", zap.Error(bErr))
		} else {
			logger.Info("Deal index backfilled", zap.Int("deals", n))
		}
	}

	// Build the skill catalog. Registration failures are fatal: a duplicate
	// or invalid definition means the binary itself is wrong.
	registry := skill.NewRegistry()
	deps := skills.Deps{}
	if pgStore != nil {
		deps.Pipeline = pgStore
		deps.Metrics = pgStore
		deps.Prospects = pgStore
	}
	if metricCache != nil {
		deps.Cache = metricCache
	}
	if relGraph != nil {
		deps.Connections = relGraph
	}
	if engine != nil {
		deps.Recommender = engine
	}
	if err := skills.RegisterAll(registry, deps); err != nil {
		logger.Fatal("skill registration failed", zap.Error(err))
	}
	logger.Info("Skill catalog ready", zap.Int("skills", len(registry.All())))

	dispatcher := skill.NewDispatcher(registry, nil, logger)

	// Telemetry rides on the cache's Redis connection when present.
	var recorder *telemetry.Recorder
	if metricCache != nil {
		recorder = telemetry.NewRecorder(metricCache.Client(), logger)
	}

	// Initialize chat gateways
	gw := gateway.New(logger)

	// Wire chat router BEFORE registering adapters (Register captures handler)
	chatRouter := chat.New(dispatcher, gw, recorder, logger)
	gw.SetHandler(chatRouter.Handle)

	if cfg.Gateway.Slack.Enabled && cfg.Gateway.Slack.BotToken != "" {
		gw.Register(gateway.NewSlackAdapter(cfg.Gateway.Slack.BotToken, cfg.Gateway.Slack.AppToken, logger))
	}

	if cfg.Gateway.Discord.Enabled && cfg.Gateway.Discord.BotToken != "" {
		gw.Register(gateway.NewDiscordAdapter(cfg.Gateway.Discord.BotToken, logger))
	}

	if err := gw.ConnectAll(context.Background()); err != nil {
		logger.Warn("some gateway adapters failed to connect", zap.Error(err))
	}

	// Build HTTP handler
	handler := api.NewHandler(api.Config{
		Registry:   registry,
		Dispatcher: dispatcher,
		Recorder:   recorder,
		AuthToken:  cfg.Server.AuthToken,
		DevMode:    cfg.Server.DevMode,
		Backends:   backends,
		Gateways:   gw.Adapters,
	}, logger)

	// Start server
	port := fmt.Sprintf("%d", cfg.Server.Port)
	if port == "0" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("Pipewise listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Pipewise...")
	ctx := context.Background()
	srv.Shutdown(ctx)
	gw.Close()
	if dealIndex != nil {
		dealIndex.Close()
	}
	if relGraph != nil {
		relGraph.Close(ctx)
	}
	if metricCache != nil {
		metricCache.Close()
	}
	if pgStore != nil {
		pgStore.Close()
	}
}
