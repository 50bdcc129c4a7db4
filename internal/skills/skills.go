// Package skills holds the capability handlers exposed to the copilot:
// pipeline analytics, KPI lookups, prospect research, deal recommendations,
// and help. Each handler depends on a narrow interface rather than a concrete
// backend, so tests swap in fakes without touching postgres, redis, or neo4j.
package skills

import (
	"context"

	"github.com/kestrelhq/pipewise/internal/graph"
	"github.com/kestrelhq/pipewise/internal/recommend"
	"github.com/kestrelhq/pipewise/internal/skill"
	"github.com/kestrelhq/pipewise/internal/store"
)

// PipelineReader provides the stage rollup and drill-down behind
// pipeline-health.
type PipelineReader interface {
	StageSummaries(ctx context.Context, stage string) ([]store.StageSummary, error)
	DealsByStage(ctx context.Context, stage string, limit int) ([]*store.Deal, error)
}

// MetricReader looks up KPI values.
type MetricReader interface {
	Metric(ctx context.Context, name, period string) (*store.Metric, error)
}

// MetricCache is a read-through cache in front of the MetricReader.
type MetricCache interface {
	GetMetric(ctx context.Context, name, period string, v any) error
	PutMetric(ctx context.Context, name, period string, v any) error
}

// ProspectReader looks up researched companies.
type ProspectReader interface {
	ProspectByCompany(ctx context.Context, company string) (*store.Prospect, error)
}

// ConnectionFinder returns a company's relationship neighbours.
type ConnectionFinder interface {
	Connections(ctx context.Context, company string, limit int) ([]graph.Connection, error)
}

// DealRecommender answers similarity queries over the deal index.
type DealRecommender interface {
	SimilarDeals(ctx context.Context, query string, limit int) ([]recommend.Suggestion, error)
}

// Deps carries the backends the handlers draw on. Any field may be nil; the
// affected skill still registers and reports unavailability at execution
// time, so the catalog shape never depends on which backends came up.
type Deps struct {
	Pipeline    PipelineReader
	Metrics     MetricReader
	Cache       MetricCache
	Prospects   ProspectReader
	Connections ConnectionFinder
	Recommender DealRecommender
}

// RegisterAll registers the five capability skills in a fixed order. This is
// the explicit startup step that populates the catalog — no init side
// effects, so startup stays deterministic and testable. A duplicate id here
// is a packaging defect and the error must abort startup.
func RegisterAll(reg *skill.Registry, deps Deps) error {
	defs := []*skill.Definition{
		pipelineHealth(deps.Pipeline),
		kpiLookup(deps.Metrics, deps.Cache),
		prospectResearch(deps.Prospects, deps.Connections),
		dealRecommendations(deps.Recommender),
		help(reg),
	}
	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}
