package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/kestrelhq/pipewise/internal/skill"
)

func help(reg *skill.Registry) *skill.Definition {
	return &skill.Definition{
		ID:           "help",
		Name:         "Help",
		Description:  "What this copilot can do",
		Domain:       skill.DomainSystem,
		Inputs:       skill.InputSchema{},
		ResponseType: skill.ResponseList,
		EstimatedMs:  50,
		Examples: []string{
			"help",
			"what can you do",
		},
		Handler: func(ctx context.Context, input map[string]any) (*skill.Result, error) {
			descs := reg.Descriptors()

			var b strings.Builder
			b.WriteString("I can help with:")
			var followUps []skill.FollowUp
			for _, d := range descs {
				fmt.Fprintf(&b, "\n  %s — %s", d.Name, d.Description)
				if d.ID != "help" && len(d.Examples) > 0 {
					followUps = append(followUps, skill.FollowUp{
						Label:   d.Name,
						Command: d.Examples[0],
					})
				}
			}
			return &skill.Result{
				Text:      b.String(),
				Data:      descs,
				FollowUps: followUps,
			}, nil
		},
	}
}
