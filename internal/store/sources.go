package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"hypewatch/internal/model"
)

const sourceColumns = "id, kind, identifier, name, category, tags, active, cadence_hours, last_fetched"

// SeedSources upserts the given sources keyed by (kind, identifier). Existing
// rows keep their activity flag and last-fetched timestamp; display fields and
// cadence are refreshed from the seed.
func (s *Store) SeedSources(ctx context.Context, sources []model.Source) error {
	for _, src := range sources {
		if !src.Kind.Valid() {
			return fmt.Errorf("seed source %q: unknown kind %q", src.Identifier, src.Kind)
		}
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO sources (kind, identifier, name, category, tags, active, cadence_hours)
             VALUES (?, ?, ?, ?, ?, 1, ?)
             ON CONFLICT(kind, identifier) DO UPDATE SET
                 name = excluded.name,
                 category = excluded.category,
                 tags = excluded.tags,
                 cadence_hours = excluded.cadence_hours`,
			src.Kind, src.Identifier, src.Name, src.Category,
			strings.Join(src.Tags, ","), src.CadenceHrs,
		)
		if err != nil {
			return fmt.Errorf("seed source %q: %w", src.Identifier, err)
		}
	}
	return nil
}

// ListSources returns all non-internal sources, optionally active only.
func (s *Store) ListSources(ctx context.Context, activeOnly bool) ([]model.Source, error) {
	query := `SELECT ` + sourceColumns + ` FROM sources WHERE kind != 'internal'`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY kind, identifier`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	return scanSources(rows)
}

// SourcesByKind returns active sources for one adapter kind.
func (s *Store) SourcesByKind(ctx context.Context, kind model.SourceKind) ([]model.Source, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sourceColumns+` FROM sources WHERE kind = ? AND active = 1 ORDER BY identifier`, kind)
	if err != nil {
		return nil, fmt.Errorf("sources by kind: %w", err)
	}
	defer rows.Close()

	return scanSources(rows)
}

// TouchSource stamps a source's last-fetched timestamp.
func (s *Store) TouchSource(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sources SET last_fetched = ? WHERE id = ?`, at.UTC().Format(timeFormat), id)
	if err != nil {
		return fmt.Errorf("touch source %d: %w", id, err)
	}
	return nil
}

// SetSourceActive toggles a source's activity flag. Sources owning content are
// deactivated this way rather than deleted.
func (s *Store) SetSourceActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sources SET active = ? WHERE id = ? AND kind != 'internal'`, active, id)
	if err != nil {
		return fmt.Errorf("set source active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set source active: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("source %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanSources(rows *sql.Rows) ([]model.Source, error) {
	var sources []model.Source
	for rows.Next() {
		var (
			src         model.Source
			tags        string
			lastFetched sql.NullString
		)
		if err := rows.Scan(&src.ID, &src.Kind, &src.Identifier, &src.Name, &src.Category,
			&tags, &src.Active, &src.CadenceHrs, &lastFetched); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		if tags != "" {
			src.Tags = strings.Split(tags, ",")
		}
		src.LastFetch = parseNullableTime(lastFetched)
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return sources, nil
}
