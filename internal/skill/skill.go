// Package skill implements the capability registry and dispatch pipeline.
// Skills self-describe with declarative metadata; the dispatcher resolves an
// incoming request to one skill, validates its input, executes it under a
// timeout, and normalizes the outcome into a response envelope.
package skill

import "context"

// Domain is a coarse category grouping related skills for discovery.
type Domain string

const (
	DomainAnalytics    Domain = "analytics"
	DomainResearch     Domain = "research"
	DomainIntelligence Domain = "intelligence"
	DomainSystem       Domain = "system"
)

// ResponseType tells the rendering layer how to present a successful result.
type ResponseType string

const (
	ResponseNarrative ResponseType = "narrative"
	ResponseTable     ResponseType = "table"
	ResponseMetric    ResponseType = "metric"
	ResponseList      ResponseType = "list"
)

// FollowUp is a suggested next command offered after a successful response.
// Command is re-issued verbatim as a new free-text request when accepted.
type FollowUp struct {
	Label   string `json:"label"`
	Command string `json:"command"`
}

// Result is what a handler returns on success, before normalization.
type Result struct {
	Text      string     `json:"text,omitempty"`
	Data      any        `json:"data,omitempty"`
	FollowUps []FollowUp `json:"follow_ups,omitempty"`
}

// Handler executes a skill against validated input.
type Handler func(ctx context.Context, input map[string]any) (*Result, error)

// Definition describes one capability: identity, contract, and metadata.
// Definitions are created during startup registration and never mutated.
type Definition struct {
	ID           string
	Name         string
	Description  string
	Domain       Domain
	Inputs       InputSchema
	ResponseType ResponseType
	EstimatedMs  int
	Examples     []string
	Handler      Handler
}

// Descriptor is the externally safe view of a Definition — everything except
// the handler. This is what listing endpoints serialize.
type Descriptor struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Domain       Domain       `json:"domain"`
	Inputs       InputSchema  `json:"input_schema"`
	ResponseType ResponseType `json:"response_type"`
	EstimatedMs  int          `json:"estimated_ms"`
	Examples     []string     `json:"examples"`
}

// Descriptor returns the public view of the definition.
func (d *Definition) Descriptor() Descriptor {
	return Descriptor{
		ID:           d.ID,
		Name:         d.Name,
		Description:  d.Description,
		Domain:       d.Domain,
		Inputs:       d.Inputs,
		ResponseType: d.ResponseType,
		EstimatedMs:  d.EstimatedMs,
		Examples:     d.Examples,
	}
}
