package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrProspectNotFound means no prospect matches the requested company.
var ErrProspectNotFound = errors.New("prospect not found")

// Prospect is a researched company record.
type Prospect struct {
	ID        string    `json:"id"`
	Company   string    `json:"company"`
	Industry  string    `json:"industry"`
	Headcount int       `json:"headcount"`
	Contact   string    `json:"contact"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveProspect upserts a prospect by company name.
func (s *Store) SaveProspect(ctx context.Context, p *Prospect) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO prospects (id, company, industry, headcount, contact, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (company) DO UPDATE SET
			industry = EXCLUDED.industry,
			headcount = EXCLUDED.headcount,
			contact = EXCLUDED.contact,
			notes = EXCLUDED.notes`,
		p.ID, p.Company, p.Industry, p.Headcount, p.Contact, p.Notes, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save prospect %s: %w", p.Company, err)
	}
	return nil
}

// ProspectByCompany looks up a prospect, case-insensitively.
func (s *Store) ProspectByCompany(ctx context.Context, company string) (*Prospect, error) {
	row := s.db.QueryRow(ctx, `
		SELECT id, company, COALESCE(industry,''), COALESCE(headcount,0),
		       COALESCE(contact,''), COALESCE(notes,''), created_at
		FROM prospects
		WHERE lower(company) = lower($1)`, company)

	var p Prospect
	err := row.Scan(&p.ID, &p.Company, &p.Industry, &p.Headcount, &p.Contact, &p.Notes, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("prospect %q: %w", company, ErrProspectNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("prospect %q: %w", company, err)
	}
	return &p, nil
}
