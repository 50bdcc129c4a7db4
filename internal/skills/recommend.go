package skills

import (
	"context"
	"fmt"

	"github.com/kestrelhq/pipewise/internal/skill"
)

// similarityQuery describes what "a deal worth focusing on" looks like; open
// deals nearest to it in the index come back first.
const similarityQuery = "late stage deal with engaged champion and agreed budget"

func dealRecommendations(recommender DealRecommender) *skill.Definition {
	return &skill.Definition{
		ID:          "deal-recommendations",
		Name:        "Deal Recommendations",
		Description: "Open deals that most resemble previously won ones",
		Domain:      skill.DomainIntelligence,
		Inputs: skill.InputSchema{
			{Name: "limit", Type: skill.FieldNumber, Description: "max suggestions, default 5"},
		},
		ResponseType: skill.ResponseList,
		EstimatedMs:  1500,
		Examples: []string{
			"recommend deals to focus on",
			"which deals should I work",
			"deal recommendations",
		},
		Handler: func(ctx context.Context, input map[string]any) (*skill.Result, error) {
			if recommender == nil {
				return nil, fmt.Errorf("recommendation engine: %w", errBackendUnavailable)
			}
			limit := numberInput(input, "limit", 5)

			suggestions, err := recommender.SimilarDeals(ctx, similarityQuery, limit)
			if err != nil {
				return nil, err
			}
			if len(suggestions) == 0 {
				return &skill.Result{Text: "No comparable deals in the index yet."}, nil
			}

			text := fmt.Sprintf("%d deals look promising:", len(suggestions))
			for _, s := range suggestions {
				name := s.Details["name"]
				if name == "" {
					name = s.DealID
				}
				text += fmt.Sprintf("\n  %s (similarity %.2f)", name, s.Score)
			}
			return &skill.Result{
				Text: text,
				Data: suggestions,
				FollowUps: []skill.FollowUp{
					{Label: "Pipeline health", Command: "show pipeline health"},
					{Label: "Research a prospect", Command: "research prospect Acme Corp"},
				},
			}, nil
		},
	}
}

// numberInput reads an optional numeric field, tolerating both JSON float64
// and native int values.
func numberInput(input map[string]any, name string, def int) int {
	switch v := input[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}
