// Package graph stores prospect relationships in Neo4j: which companies are
// connected through shared contacts, partnerships, or past deals. The
// prospect-research skill folds these neighbours into its narrative.
package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"
)

// Connection is one relationship edge from a company to a neighbour.
type Connection struct {
	Company  string `json:"company"`
	Kind     string `json:"kind"` // "partner", "customer", "shared_contact"
	Strength int    `json:"strength"`
}

// Graph handles Neo4j operations for the relationship graph.
type Graph struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// New creates a Neo4j-backed relationship graph.
func New(uri, user, password string, logger *zap.Logger) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &Graph{driver: driver, logger: logger}, nil
}

// Ping verifies the Neo4j connection.
func (g *Graph) Ping(ctx context.Context) error {
	return g.driver.VerifyConnectivity(ctx)
}

// Close shuts down the driver.
func (g *Graph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// Link records a relationship between two companies, creating the company
// nodes if needed.
func (g *Graph) Link(ctx context.Context, from, to, kind string, strength int) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		`MERGE (a:Company {name: $from})
		 MERGE (b:Company {name: $to})
		 MERGE (a)-[r:CONNECTED {kind: $kind}]->(b)
		 SET r.id = coalesce(r.id, $id), r.strength = $strength`,
		map[string]interface{}{
			"from":     from,
			"to":       to,
			"kind":     kind,
			"strength": strength,
			"id":       uuid.New().String(),
		})
	if err != nil {
		return fmt.Errorf("link %s -> %s: %w", from, to, err)
	}
	return nil
}

// Connections returns a company's neighbours ordered by relationship
// strength, strongest first.
func (g *Graph) Connections(ctx context.Context, company string, limit int) ([]Connection, error) {
	if limit <= 0 {
		limit = 5
	}
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (a:Company)-[r:CONNECTED]-(b:Company)
		 WHERE toLower(a.name) = toLower($company)
		 RETURN b.name AS company, r.kind AS kind, r.strength AS strength
		 ORDER BY r.strength DESC
		 LIMIT $limit`,
		map[string]interface{}{"company": company, "limit": limit})
	if err != nil {
		return nil, fmt.Errorf("connections for %s: %w", company, err)
	}

	var out []Connection
	for result.Next(ctx) {
		rec := result.Record()
		c := Connection{}
		if v, ok := rec.Get("company"); ok {
			c.Company, _ = v.(string)
		}
		if v, ok := rec.Get("kind"); ok {
			c.Kind, _ = v.(string)
		}
		if v, ok := rec.Get("strength"); ok {
			if n, isInt := v.(int64); isInt {
				c.Strength = int(n)
			}
		}
		out = append(out, c)
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("connections for %s: %w", company, err)
	}
	return out, nil
}
