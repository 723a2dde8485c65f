package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"internhub-engine/internal/domain"
	ierrors "internhub-engine/internal/errors"
)

const runColumns = `id, status, started_at, completed_at, duration_ms, internships_found, sources, error_message`

func (d *DB) InsertRun(ctx context.Context, run domain.ScrapeRun) error {
	args, err := runArgs(run)
	if err != nil {
		return err
	}
	_, err = d.Pool.ExecContext(ctx, d.rebind(`
INSERT INTO scrape_runs (`+runColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);`), args...)
	if err != nil {
		return ierrors.Persistence("insert run", err)
	}
	return nil
}

func (d *DB) FinishRun(ctx context.Context, run domain.ScrapeRun) error {
	args, err := runArgs(run)
	if err != nil {
		return err
	}
	_, err = d.Pool.ExecContext(ctx, d.rebind(`
INSERT INTO scrape_runs (`+runColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
  status = excluded.status,
  completed_at = excluded.completed_at,
  duration_ms = excluded.duration_ms,
  internships_found = excluded.internships_found,
  sources = excluded.sources,
  error_message = excluded.error_message;`), args...)
	if err != nil {
		return ierrors.Persistence("finish run", err)
	}
	return nil
}

// LatestRun returns the newest run, optionally filtered by status. Finished
// statuses are ordered by completion time, everything else by start time.
func (d *DB) LatestRun(ctx context.Context, status domain.RunStatus) (domain.ScrapeRun, error) {
	q := `SELECT ` + runColumns + ` FROM scrape_runs`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, string(status))
	}
	if status != "" && status != domain.RunStatusRunning {
		q += ` ORDER BY completed_at DESC, started_at DESC LIMIT 1;`
	} else {
		q += ` ORDER BY started_at DESC LIMIT 1;`
	}

	rows, err := d.Pool.QueryContext(ctx, d.rebind(q), args...)
	if err != nil {
		return domain.ScrapeRun{}, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.ScrapeRun{}, err
		}
		return domain.ScrapeRun{}, ErrNotFound
	}
	return scanRun(rows)
}

func (d *DB) ListRuns(ctx context.Context, limit int) ([]domain.ScrapeRun, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := d.Pool.QueryContext(ctx, d.rebind(`
SELECT `+runColumns+` FROM scrape_runs
ORDER BY started_at DESC
LIMIT ?;`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.ScrapeRun{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func runArgs(run domain.ScrapeRun) ([]any, error) {
	sources := run.Sources
	if sources == nil {
		sources = []domain.SourceResult{}
	}
	b, err := json.Marshal(sources)
	if err != nil {
		return nil, ierrors.Persistence("encode run sources", err)
	}
	var completed any
	if run.CompletedAt != nil {
		completed = formatTime(*run.CompletedAt)
	}
	return []any{
		run.ID, string(run.Status), formatTime(run.StartedAt), completed,
		run.DurationMS, run.InternshipsFound, string(b), run.ErrorMessage,
	}, nil
}

func scanRun(rows *sql.Rows) (domain.ScrapeRun, error) {
	var (
		r         domain.ScrapeRun
		status    string
		started   string
		completed sql.NullString
		sources   string
	)
	if err := rows.Scan(&r.ID, &status, &started, &completed, &r.DurationMS, &r.InternshipsFound, &sources, &r.ErrorMessage); err != nil {
		return r, err
	}
	r.Status = domain.RunStatus(status)

	var err error
	if r.StartedAt, err = parseTime(started); err != nil {
		return r, err
	}
	if completed.Valid {
		t, err := parseTime(completed.String)
		if err != nil {
			return r, err
		}
		r.CompletedAt = &t
	}
	if err := json.Unmarshal([]byte(sources), &r.Sources); err != nil {
		return r, errors.Join(errors.New("decode run sources"), err)
	}
	return r, nil
}
