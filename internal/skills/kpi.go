package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/kestrelhq/pipewise/internal/skill"
	"github.com/kestrelhq/pipewise/internal/store"
)

func kpiLookup(metrics MetricReader, cache MetricCache) *skill.Definition {
	return &skill.Definition{
		ID:          "kpi-lookup",
		Name:        "KPI Lookup",
		Description: "Current value of a tracked revenue metric",
		Domain:      skill.DomainAnalytics,
		Inputs: skill.InputSchema{
			{Name: "metric", Type: skill.FieldString, Required: true, Description: "metric name, e.g. win_rate"},
			{Name: "period", Type: skill.FieldString, Description: "reporting period, e.g. 2026-q3"},
		},
		ResponseType: skill.ResponseMetric,
		EstimatedMs:  250,
		// "kpi win rate" anchors on the bare "kpi" phrase and leaves
		// "win rate" for the resolver to lift out as the metric.
		Examples: []string{
			"kpi win rate",
			"kpi",
			"lookup kpi",
			"what is our win rate",
		},
		Handler: func(ctx context.Context, input map[string]any) (*skill.Result, error) {
			if metrics == nil {
				return nil, fmt.Errorf("metric store: %w", errBackendUnavailable)
			}
			raw, _ := input["metric"].(string)
			name := canonicalMetric(raw)
			period, _ := input["period"].(string)

			m, ok := cachedMetric(ctx, cache, name, period)
			if !ok {
				var err error
				m, err = metrics.Metric(ctx, name, period)
				if err != nil {
					return nil, err
				}
				if cache != nil {
					// A stale read here costs one extra DB hit, nothing more.
					_ = cache.PutMetric(ctx, name, period, m)
				}
			}

			return &skill.Result{
				Text: fmt.Sprintf("%s for %s is %.2f%s", m.Name, m.Period, m.Value, unitSuffix(m.Unit)),
				Data: m,
				FollowUps: []skill.FollowUp{
					{Label: "Pipeline health", Command: "show pipeline health"},
				},
			}, nil
		},
	}
}

// canonicalMetric maps spoken metric names onto stored ones: "win rate"
// becomes "win_rate".
func canonicalMetric(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

func cachedMetric(ctx context.Context, cache MetricCache, name, period string) (*store.Metric, bool) {
	if cache == nil {
		return nil, false
	}
	var m store.Metric
	if err := cache.GetMetric(ctx, name, period, &m); err != nil {
		return nil, false
	}
	return &m, true
}

func unitSuffix(unit string) string {
	if unit == "" {
		return ""
	}
	return " " + unit
}
