package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/v0xg/menucrawl/internal/crawler"
	"github.com/v0xg/menucrawl/internal/menu"
)

// Run is one archived crawl
type Run struct {
	ID         string
	Site       string
	CapturedAt time.Time
	SavedAt    time.Time
	Days       int
	Foods      int
	Shortfall  int
	Complete   bool

	// Snapshot is only loaded by LatestRun and GetRun.
	Snapshot *menu.Snapshot
}

// SaveRun archives snap under a new run id. rep may be nil.
func (s *Store) SaveRun(ctx context.Context, snap *menu.Snapshot, rep *crawler.Report) (*Run, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %w", err)
	}

	run := &Run{
		ID:         uuid.NewString(),
		Site:       snap.Site,
		CapturedAt: snap.CapturedAt.UTC(),
		SavedAt:    s.now().UTC(),
		Days:       len(snap.Days),
		Foods:      snap.FoodCount(),
		Complete:   true,
		Snapshot:   snap,
	}
	if rep != nil {
		run.Shortfall = rep.Shortfall
		run.Complete = rep.Complete()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO runs (id, site, captured_at, saved_at, days, foods, shortfall, complete, snapshot_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Site,
		run.CapturedAt.Format(timeLayout), run.SavedAt.Format(timeLayout),
		run.Days, run.Foods, run.Shortfall, run.Complete, string(data),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO foods (run_id, day, period, station, position, name, calories, description, tags)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare food insert: %w", err)
	}
	defer stmt.Close()

	var insertErr error
	snap.EachStation(func(day, period string, st menu.StationMenu) {
		if insertErr != nil {
			return
		}
		for i, f := range st.Foods {
			_, err := stmt.ExecContext(ctx, run.ID, day, period, st.Label, i,
				f.Name, f.Calories, f.Description, strings.Join(f.Tags, ","))
			if err != nil {
				insertErr = fmt.Errorf("failed to insert food %q: %w", f.Name, err)
				return
			}
		}
	})
	if insertErr != nil {
		return nil, insertErr
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit run: %w", err)
	}
	return run, nil
}

// timeLayout has a fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, site, captured_at, saved_at, days, foods, shortfall, complete`

// LatestRun returns the most recently captured run of site, or of any site
// when site is empty.
func (s *Store) LatestRun(ctx context.Context, site string) (*Run, error) {
	query := `SELECT ` + runColumns + `, snapshot_json FROM runs`
	var args []any
	if site != "" {
		query += ` WHERE site = ?`
		args = append(args, site)
	}
	query += ` ORDER BY captured_at DESC, saved_at DESC LIMIT 1`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, args...), true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoRuns
	}
	return run, err
}

// GetRun returns the run with id. A unique prefix of an id is accepted.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `SELECT ` + runColumns + `, snapshot_json FROM runs`

	run, err := scanRun(s.db.QueryRowContext(ctx, query+` WHERE id = ?`, id), true)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query+` WHERE id LIKE ? || '%' ESCAPE '\' LIMIT 2`, escapeLike(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}
	defer rows.Close()

	var found []*Run
	for rows.Next() {
		run, err := scanRun(rows, true)
		if err != nil {
			return nil, err
		}
		found = append(found, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(found) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
		return found[0], nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
}

// ListRuns returns up to limit runs, newest first. Snapshots are not loaded.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY captured_at DESC, saved_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows, false)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner, withSnapshot bool) (*Run, error) {
	var run Run
	var captured, saved, snapshotJSON string
	dest := []any{&run.ID, &run.Site, &captured, &saved, &run.Days, &run.Foods, &run.Shortfall, &run.Complete}
	if withSnapshot {
		dest = append(dest, &snapshotJSON)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	if run.CapturedAt, err = time.Parse(timeLayout, captured); err != nil {
		return nil, fmt.Errorf("run %s: bad captured_at: %w", run.ID, err)
	}
	if run.SavedAt, err = time.Parse(timeLayout, saved); err != nil {
		return nil, fmt.Errorf("run %s: bad saved_at: %w", run.ID, err)
	}

	if withSnapshot {
		var snap menu.Snapshot
		if err := json.Unmarshal([]byte(snapshotJSON), &snap); err != nil {
			return nil, fmt.Errorf("run %s: failed to decode snapshot: %w", run.ID, err)
		}
		run.Snapshot = &snap
	}
	return &run, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
