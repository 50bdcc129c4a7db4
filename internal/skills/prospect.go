package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/kestrelhq/pipewise/internal/skill"
)

func prospectResearch(prospects ProspectReader, connections ConnectionFinder) *skill.Definition {
	return &skill.Definition{
		ID:          "prospect-research",
		Name:        "Prospect Research",
		Description: "What we know about a company and who it is connected to",
		Domain:      skill.DomainResearch,
		Inputs: skill.InputSchema{
			{Name: "company", Type: skill.FieldString, Required: true, Description: "company name"},
		},
		ResponseType: skill.ResponseNarrative,
		EstimatedMs:  800,
		// "research prospect Acme Corp" anchors on "research prospect" and
		// the resolver lifts the remainder out as the company.
		Examples: []string{
			"research prospect Acme Corp",
			"research prospect",
			"prospect research",
		},
		Handler: func(ctx context.Context, input map[string]any) (*skill.Result, error) {
			if prospects == nil {
				return nil, fmt.Errorf("prospect store: %w", errBackendUnavailable)
			}
			company, _ := input["company"].(string)

			p, err := prospects.ProspectByCompany(ctx, company)
			if err != nil {
				return nil, err
			}

			var b strings.Builder
			fmt.Fprintf(&b, "%s — %s, ~%d people.", p.Company, p.Industry, p.Headcount)
			if p.Contact != "" {
				fmt.Fprintf(&b, " Primary contact: %s.", p.Contact)
			}
			if p.Notes != "" {
				fmt.Fprintf(&b, "\n%s", p.Notes)
			}

			payload := map[string]any{"prospect": p}
			if connections != nil {
				// Graph is optional; research degrades to the flat record.
				conns, connErr := connections.Connections(ctx, p.Company, 5)
				if connErr == nil && len(conns) > 0 {
					payload["connections"] = conns
					b.WriteString("\nConnections:")
					for _, c := range conns {
						fmt.Fprintf(&b, "\n  %s (%s)", c.Company, c.Kind)
					}
				}
			}

			return &skill.Result{
				Text: b.String(),
				Data: payload,
				FollowUps: []skill.FollowUp{
					{Label: "Deal recommendations", Command: "recommend deals to focus on"},
					{Label: "Pipeline health", Command: "show pipeline health"},
				},
			}, nil
		},
	}
}
