// Package recommend ranks open deals by similarity to previously won ones,
// using the embedding provider and the Qdrant deal index.
package recommend

import (
	"context"
	"fmt"

	"github.com/kestrelhq/pipewise/internal/embedding"
	"github.com/kestrelhq/pipewise/internal/vectorstore"
	"go.uber.org/zap"
)

// Suggestion is one recommended deal with the reasoning payload attached.
type Suggestion struct {
	DealID  string            `json:"deal_id"`
	Score   float32           `json:"score"`
	Details map[string]string `json:"details"`
}

// Engine answers similarity queries over the deal index.
type Engine struct {
	provider embedding.Provider
	index    *vectorstore.DealIndex
	logger   *zap.Logger
}

// NewEngine creates an Engine. The index collection must already exist.
func NewEngine(provider embedding.Provider, index *vectorstore.DealIndex, logger *zap.Logger) *Engine {
	return &Engine{provider: provider, index: index, logger: logger}
}

// DealText builds the description that gets embedded for a deal. Indexing
// and backfill must use the same wording or similarity scores drift.
func DealText(name, company, stage string, amount float64) string {
	return fmt.Sprintf("%s at %s, %s stage, $%.0f", name, company, stage, amount)
}

// IndexDeal embeds a deal description and stores it with its payload.
func (e *Engine) IndexDeal(ctx context.Context, dealID, description string, payload map[string]string) error {
	vectors, err := e.provider.Embed(ctx, []string{description})
	if err != nil {
		return fmt.Errorf("embed deal %s: %w", dealID, err)
	}
	return e.index.IndexDeal(ctx, dealID, vectors[0], payload)
}

// SimilarDeals returns up to limit deals resembling the query description.
func (e *Engine) SimilarDeals(ctx context.Context, query string, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		limit = 5
	}
	vectors, err := e.provider.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := e.index.Similar(ctx, vectors[0], uint64(limit))
	if err != nil {
		return nil, err
	}

	out := make([]Suggestion, 0, len(hits))
	for _, h := range hits {
		out = append(out, Suggestion{
			DealID:  h.DealID,
			Score:   h.Score,
			Details: h.Payload,
		})
	}
	e.logger.Debug("similar deals", zap.String("query", query), zap.Int("hits", len(out)))
	return out, nil
}
