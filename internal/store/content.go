package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hypewatch/internal/model"
)

const contentColumns = `id, source_id, external_id, title, url, author, body,
    published_at, processed_at, metadata_json, topic, content_type, author_category, brief`

// UpsertContent inserts or updates one item keyed by (source_id, external_id)
// and returns the internal row id. Re-ingesting the same external identity
// refreshes the row in place; the item count never grows for a repeat.
func (s *Store) UpsertContent(ctx context.Context, item model.RawItem) (int64, error) {
	metadataJSON, err := json.Marshal(item.Metadata)
	if err != nil {
		return 0, fmt.Errorf("marshal metadata: %w", err)
	}
	if item.Metadata == nil {
		metadataJSON = []byte("{}")
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO content (source_id, external_id, title, url, author, body, published_at, metadata_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(source_id, external_id) DO UPDATE SET
             title = excluded.title,
             url = excluded.url,
             author = excluded.author,
             body = excluded.body,
             published_at = excluded.published_at,
             metadata_json = excluded.metadata_json
         RETURNING id`,
		item.SourceID, item.ExternalID, item.Title, item.URL, item.Author,
		item.Body, item.PublishedAt.UTC().Format(timeFormat), string(metadataJSON),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert content: %w", err)
	}
	return id, nil
}

// AnnotateContent stamps the relevance filter's annotations on a row.
func (s *Store) AnnotateContent(ctx context.Context, id int64, topic, contentType, authorCategory, brief string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE content SET topic = ?, content_type = ?, author_category = ?, brief = ? WHERE id = ?`,
		topic, contentType, authorCategory, brief, id)
	if err != nil {
		return fmt.Errorf("annotate content %d: %w", id, err)
	}
	return nil
}

// MarkContentProcessed stamps processed_at on the given rows.
func (s *Store) MarkContentProcessed(ctx context.Context, ids []int64, at time.Time) error {
	stamp := at.UTC().Format(timeFormat)
	for _, id := range ids {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE content SET processed_at = ? WHERE id = ? AND processed_at IS NULL`, stamp, id); err != nil {
			return fmt.Errorf("mark processed %d: %w", id, err)
		}
	}
	return nil
}

// GetRecentContent returns items published within the trailing window,
// unprocessed rows first.
func (s *Store) GetRecentContent(ctx context.Context, days, limit int) ([]model.Content, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(timeFormat)

	query := `SELECT ` + contentColumns + ` FROM content
        WHERE id != ? AND published_at >= ?
        ORDER BY processed_at IS NOT NULL, published_at DESC`
	args := []interface{}{model.UnattachedContentID, cutoff}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("recent content: %w", err)
	}
	defer rows.Close()

	return scanContent(rows)
}

// GetUnprocessedContent returns rows analysis has not touched yet.
func (s *Store) GetUnprocessedContent(ctx context.Context, limit int) ([]model.Content, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+contentColumns+` FROM content
         WHERE id != ? AND processed_at IS NULL
         ORDER BY published_at DESC LIMIT ?`,
		model.UnattachedContentID, limit)
	if err != nil {
		return nil, fmt.Errorf("unprocessed content: %w", err)
	}
	defer rows.Close()

	return scanContent(rows)
}

// FindContentByURL resolves a content row id by its url. Used as the fallback
// path when attaching a claim whose external id is not in the batch map.
func (s *Store) FindContentByURL(ctx context.Context, url string) (int64, error) {
	if url == "" {
		return 0, ErrNotFound
	}
	var id int64
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM content WHERE url = ? ORDER BY id DESC LIMIT 1`, url).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("find content by url: %w", err)
	}
	return id, nil
}

// CountContent returns the number of stored items excluding the sentinel.
func (s *Store) CountContent(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM content WHERE id != ?`, model.UnattachedContentID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count content: %w", err)
	}
	return count, nil
}

func scanContent(rows *sql.Rows) ([]model.Content, error) {
	var items []model.Content
	for rows.Next() {
		var (
			c            model.Content
			publishedAt  string
			processedAt  sql.NullString
			metadataJSON string
		)
		if err := rows.Scan(&c.ID, &c.SourceID, &c.ExternalID, &c.Title, &c.URL, &c.Author,
			&c.Body, &publishedAt, &processedAt, &metadataJSON,
			&c.Topic, &c.ContentType, &c.AuthorCategory, &c.Brief); err != nil {
			return nil, fmt.Errorf("scan content: %w", err)
		}
		c.PublishedAt = parseTime(publishedAt)
		c.ProcessedAt = parseNullableTime(processedAt)
		if metadataJSON != "" && metadataJSON != "{}" {
			if err := json.Unmarshal([]byte(metadataJSON), &c.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshal metadata: %w", err)
			}
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate content: %w", err)
	}
	return items, nil
}
