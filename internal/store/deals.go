package store

import (
	"context"
	"fmt"
	"time"
)

// Deal is one opportunity in the pipeline.
type Deal struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	Stage     string    `json:"stage"`
	Amount    float64   `json:"amount"`
	Owner     string    `json:"owner"`
	CloseDate time.Time `json:"close_date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StageSummary is the per-stage rollup behind the pipeline-health skill.
type StageSummary struct {
	Stage      string  `json:"stage"`
	DealCount  int     `json:"deal_count"`
	TotalValue float64 `json:"total_value"`
	AvgAgeDays float64 `json:"avg_age_days"`
}

// SaveDeal upserts a deal.
func (s *Store) SaveDeal(ctx context.Context, d *Deal) error {
	now := time.Now()
	_, err := s.db.Exec(ctx, `
		INSERT INTO deals (id, name, company, stage, amount, owner, close_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			company = EXCLUDED.company,
			stage = EXCLUDED.stage,
			amount = EXCLUDED.amount,
			owner = EXCLUDED.owner,
			close_date = EXCLUDED.close_date,
			updated_at = EXCLUDED.updated_at`,
		d.ID, d.Name, d.Company, d.Stage, d.Amount, d.Owner, d.CloseDate, now,
	)
	if err != nil {
		return fmt.Errorf("save deal %s: %w", d.ID, err)
	}
	return nil
}

// StageSummaries returns the pipeline rollup grouped by stage. An empty stage
// filter covers the whole pipeline.
func (s *Store) StageSummaries(ctx context.Context, stage string) ([]StageSummary, error) {
	rows, err := s.db.Query(ctx, `
		SELECT stage, COUNT(*), COALESCE(SUM(amount), 0),
		       COALESCE(AVG(EXTRACT(EPOCH FROM now() - created_at) / 86400), 0)
		FROM deals
		WHERE stage != 'closed_lost' AND ($1 = '' OR stage = $1)
		GROUP BY stage
		ORDER BY MIN(created_at)`, stage)
	if err != nil {
		return nil, fmt.Errorf("stage summaries: %w", err)
	}
	defer rows.Close()

	var out []StageSummary
	for rows.Next() {
		var ss StageSummary
		if err := rows.Scan(&ss.Stage, &ss.DealCount, &ss.TotalValue, &ss.AvgAgeDays); err != nil {
			return nil, fmt.Errorf("scan stage summary: %w", err)
		}
		out = append(out, ss)
	}
	return out, rows.Err()
}

// DealsByStage returns the deals currently sitting in a stage, newest first.
func (s *Store) DealsByStage(ctx context.Context, stage string, limit int) ([]*Deal, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, name, company, stage, amount, COALESCE(owner,''), close_date, created_at, updated_at
		FROM deals
		WHERE stage = $1
		ORDER BY updated_at DESC
		LIMIT $2`, stage, limit)
	if err != nil {
		return nil, fmt.Errorf("deals by stage %s: %w", stage, err)
	}
	defer rows.Close()

	var deals []*Deal
	for rows.Next() {
		var d Deal
		if err := rows.Scan(&d.ID, &d.Name, &d.Company, &d.Stage, &d.Amount,
			&d.Owner, &d.CloseDate, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		deals = append(deals, &d)
	}
	return deals, rows.Err()
}
