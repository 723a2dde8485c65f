package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"internhub-engine/internal/domain"
	ierrors "internhub-engine/internal/errors"
)

const insertInternship = `
INSERT INTO internships (
  id, position, company, role, category, locations, application_link, date_posted,
  requires_citizenship, no_sponsorship, is_subsidiary, is_freshman_friendly, is_closed,
  source, is_active, created_at, last_seen
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

func (d *DB) ReplaceSnapshot(ctx context.Context, postings []domain.PersistedPosting) error {
	tx, err := d.Pool.BeginTx(ctx, nil)
	if err != nil {
		return ierrors.Persistence("begin snapshot", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM internships;`); err != nil {
		return ierrors.Persistence("clear snapshot", err)
	}

	stmt, err := tx.PrepareContext(ctx, d.rebind(insertInternship))
	if err != nil {
		return ierrors.Persistence("prepare insert", err)
	}
	defer stmt.Close()

	for i, p := range postings {
		locs, err := json.Marshal(p.Locations)
		if err != nil {
			return ierrors.Persistence("encode locations", err)
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, i, p.Company, p.Role, p.Category, string(locs), p.ApplicationLink, p.DatePosted,
			p.RequiresCitizenship, p.NoSponsorship, p.IsSubsidiary, p.IsFreshmanFriendly, p.IsClosed,
			p.Source, p.IsActive, formatTime(p.CreatedAt), formatTime(p.LastSeen),
		); err != nil {
			return ierrors.Persistence(fmt.Sprintf("insert internship %s", p.ID), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ierrors.Persistence("commit snapshot", err)
	}
	return nil
}

// ListActive returns active postings newest first, then in snapshot order.
func (d *DB) ListActive(ctx context.Context) ([]domain.PersistedPosting, error) {
	rows, err := d.Pool.QueryContext(ctx, d.rebind(`
SELECT id, company, role, category, locations, application_link, date_posted,
       requires_citizenship, no_sponsorship, is_subsidiary, is_freshman_friendly, is_closed,
       source, is_active, created_at, last_seen
FROM internships
WHERE is_active = ?
ORDER BY created_at DESC, position ASC;`), true)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.PersistedPosting{}
	for rows.Next() {
		p, err := scanPosting(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (d *DB) CountActive(ctx context.Context) (int, error) {
	var n int
	err := d.Pool.QueryRowContext(ctx, d.rebind(`SELECT COUNT(*) FROM internships WHERE is_active = ?;`), true).Scan(&n)
	return n, err
}

func scanPosting(rows *sql.Rows) (domain.PersistedPosting, error) {
	var (
		p                   domain.PersistedPosting
		locs, created, seen string
	)
	if err := rows.Scan(
		&p.ID, &p.Company, &p.Role, &p.Category, &locs, &p.ApplicationLink, &p.DatePosted,
		&p.RequiresCitizenship, &p.NoSponsorship, &p.IsSubsidiary, &p.IsFreshmanFriendly, &p.IsClosed,
		&p.Source, &p.IsActive, &created, &seen,
	); err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(locs), &p.Locations); err != nil {
		return p, fmt.Errorf("decode locations for %s: %w", p.ID, err)
	}
	var err error
	if p.CreatedAt, err = parseTime(created); err != nil {
		return p, err
	}
	if p.LastSeen, err = parseTime(seen); err != nil {
		return p, err
	}
	return p, nil
}
