package skills

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kestrelhq/pipewise/internal/skill"
)

var errBackendUnavailable = errors.New("backend unavailable")

func pipelineHealth(reader PipelineReader) *skill.Definition {
	return &skill.Definition{
		ID:          "pipeline-health",
		Name:        "Pipeline Health",
		Description: "Deal counts, total value, and average age per pipeline stage",
		Domain:      skill.DomainAnalytics,
		Inputs: skill.InputSchema{
			{Name: "stage", Type: skill.FieldString, Description: "limit the rollup to one stage"},
		},
		ResponseType: skill.ResponseTable,
		EstimatedMs:  400,
		Examples: []string{
			"show pipeline health",
			"how is the pipeline",
			"pipeline health by stage",
		},
		Handler: func(ctx context.Context, input map[string]any) (*skill.Result, error) {
			if reader == nil {
				return nil, fmt.Errorf("pipeline store: %w", errBackendUnavailable)
			}
			stage, _ := input["stage"].(string)
			summaries, err := reader.StageSummaries(ctx, stage)
			if err != nil {
				return nil, err
			}
			if len(summaries) == 0 {
				return &skill.Result{Text: "The pipeline is empty right now."}, nil
			}

			var total float64
			var count int
			var b strings.Builder
			for _, s := range summaries {
				total += s.TotalValue
				count += s.DealCount
				fmt.Fprintf(&b, "%s: %d deals, $%.0f, avg %.0f days old\n",
					s.Stage, s.DealCount, s.TotalValue, s.AvgAgeDays)
			}

			// Single-stage requests drill down into the deals themselves.
			if stage != "" {
				deals, dealsErr := reader.DealsByStage(ctx, stage, 5)
				if dealsErr != nil {
					return nil, dealsErr
				}
				if len(deals) > 0 {
					b.WriteString("Top deals:\n")
					for _, dl := range deals {
						fmt.Fprintf(&b, "  %s (%s) $%.0f\n", dl.Name, dl.Company, dl.Amount)
					}
				}
			}

			return &skill.Result{
				Text: fmt.Sprintf("%d deals worth $%.0f across %d stages.\n%s",
					count, total, len(summaries), b.String()),
				Data: summaries,
				FollowUps: []skill.FollowUp{
					{Label: "Win rate", Command: "kpi win rate"},
					{Label: "Deal recommendations", Command: "recommend deals to focus on"},
				},
			}, nil
		},
	}
}
