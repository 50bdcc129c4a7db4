package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrMetricNotFound means no value is recorded for a metric/period pair.
var ErrMetricNotFound = errors.New("metric not found")

// Metric is one KPI observation for a period.
type Metric struct {
	Name       string    `json:"name"`
	Period     string    `json:"period"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	ComputedAt time.Time `json:"computed_at"`
}

// SaveMetric upserts a metric observation.
func (s *Store) SaveMetric(ctx context.Context, m *Metric) error {
	if m.ComputedAt.IsZero() {
		m.ComputedAt = time.Now()
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO metrics (name, period, value, unit, computed_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name, period) DO UPDATE SET
			value = EXCLUDED.value,
			unit = EXCLUDED.unit,
			computed_at = EXCLUDED.computed_at`,
		m.Name, m.Period, m.Value, m.Unit, m.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("save metric %s/%s: %w", m.Name, m.Period, err)
	}
	return nil
}

// Metric returns a KPI value. An empty period means the most recent
// observation of that metric.
func (s *Store) Metric(ctx context.Context, name, period string) (*Metric, error) {
	row := s.db.QueryRow(ctx, `
		SELECT name, period, value, COALESCE(unit,''), computed_at
		FROM metrics
		WHERE name = $1 AND ($2 = '' OR period = $2)
		ORDER BY computed_at DESC
		LIMIT 1`, name, period)

	var m Metric
	err := row.Scan(&m.Name, &m.Period, &m.Value, &m.Unit, &m.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("metric %s/%s: %w", name, period, ErrMetricNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("metric %s/%s: %w", name, period, err)
	}
	return &m, nil
}
