package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"hypewatch/internal/model"
)

const claimColumns = `id, content_id, text, kind, topic, stance, bullishness, confidence,
    timeframe, evidence_quality, quoteworthiness, entities_json, quote,
    author, author_category, source_url, created_at`

// InsertClaim appends one claim and returns its generated id. Claims have no
// natural key; every insert creates a new row.
func (s *Store) InsertClaim(ctx context.Context, claim model.ExtractedClaim) (int64, error) {
	if claim.ContentID == 0 {
		claim.ContentID = model.UnattachedContentID
	}
	if claim.Topic == "" {
		claim.Topic = "general"
	}
	if claim.Stance == "" {
		claim.Stance = model.StanceNeutral
	}
	if claim.CreatedAt.IsZero() {
		claim.CreatedAt = time.Now().UTC()
	}

	entitiesJSON, err := json.Marshal(claim.Entities)
	if err != nil {
		return 0, fmt.Errorf("marshal entities: %w", err)
	}
	if claim.Entities == nil {
		entitiesJSON = []byte("[]")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO claims (content_id, text, kind, topic, stance, bullishness, confidence,
             timeframe, evidence_quality, quoteworthiness, entities_json, quote,
             author, author_category, source_url, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		claim.ContentID, claim.Text, claim.Kind, claim.Topic, claim.Stance,
		claim.Bullishness, claim.Confidence, claim.Timeframe, claim.EvidenceQuality,
		claim.Quoteworthiness, string(entitiesJSON), claim.Quote,
		claim.Author, claim.AuthorCategory, claim.SourceURL,
		claim.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return 0, fmt.Errorf("insert claim: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// ClaimFilter narrows claim queries. Zero values mean "any".
type ClaimFilter struct {
	Topic          string
	Author         string
	AuthorCategory string
	Kind           model.ClaimKind
	Since          time.Time
	Search         string // Substring match on claim text
	Limit          int
	Offset         int
}

// QueryClaims returns claims matching the filter, newest first. Every
// condition is bound as a parameter.
func (s *Store) QueryClaims(ctx context.Context, filter ClaimFilter) ([]model.ExtractedClaim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE 1=1`
	var args []interface{}

	if filter.Topic != "" {
		query += ` AND topic = ?`
		args = append(args, filter.Topic)
	}
	if filter.Author != "" {
		query += ` AND author = ?`
		args = append(args, filter.Author)
	}
	if filter.AuthorCategory != "" {
		query += ` AND author_category = ?`
		args = append(args, filter.AuthorCategory)
	}
	if filter.Kind != "" {
		query += ` AND kind = ?`
		args = append(args, filter.Kind)
	}
	if !filter.Since.IsZero() {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC().Format(timeFormat))
	}
	if filter.Search != "" {
		query += ` AND text LIKE ?`
		args = append(args, "%"+filter.Search+"%")
	}

	query += ` ORDER BY created_at DESC`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	return scanClaims(rows)
}

// ClaimsByTopic returns claims tagged with one topic.
func (s *Store) ClaimsByTopic(ctx context.Context, topic string, limit int) ([]model.ExtractedClaim, error) {
	return s.QueryClaims(ctx, ClaimFilter{Topic: topic, Limit: limit})
}

// ClaimsByAuthorCategory returns claims from one author cohort.
func (s *Store) ClaimsByAuthorCategory(ctx context.Context, category string, limit int) ([]model.ExtractedClaim, error) {
	return s.QueryClaims(ctx, ClaimFilter{AuthorCategory: category, Limit: limit})
}

// RecentClaims returns claims created within the trailing window.
func (s *Store) RecentClaims(ctx context.Context, days int) ([]model.ExtractedClaim, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	return s.QueryClaims(ctx, ClaimFilter{Since: since, Limit: 10000})
}

// TopicCounts aggregates claim counts per topic over the trailing window.
func (s *Store) TopicCounts(ctx context.Context, days int) (map[string]int, error) {
	if days <= 0 {
		days = 7
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(timeFormat)

	rows, err := s.db.QueryContext(ctx,
		`SELECT topic, COUNT(1) FROM claims WHERE created_at >= ? GROUP BY topic`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("topic counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			topic string
			count int
		)
		if err := rows.Scan(&topic, &count); err != nil {
			return nil, fmt.Errorf("scan topic count: %w", err)
		}
		counts[topic] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topic counts: %w", err)
	}
	return counts, nil
}

// SaveEmbedding persists a claim's vector. Re-embedding replaces the row.
func (s *Store) SaveEmbedding(ctx context.Context, claimID int64, engine string, vector []float32) error {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO embeddings (claim_id, engine, dimensions, vector, created_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(claim_id) DO UPDATE SET
             engine = excluded.engine,
             dimensions = excluded.dimensions,
             vector = excluded.vector,
             created_at = excluded.created_at`,
		claimID, engine, len(vector), blob, time.Now().UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("save embedding: %w", err)
	}
	return nil
}

func scanClaims(rows *sql.Rows) ([]model.ExtractedClaim, error) {
	var claims []model.ExtractedClaim
	for rows.Next() {
		var (
			c            model.ExtractedClaim
			entitiesJSON string
			createdAt    string
		)
		if err := rows.Scan(&c.ID, &c.ContentID, &c.Text, &c.Kind, &c.Topic, &c.Stance,
			&c.Bullishness, &c.Confidence, &c.Timeframe, &c.EvidenceQuality,
			&c.Quoteworthiness, &entitiesJSON, &c.Quote,
			&c.Author, &c.AuthorCategory, &c.SourceURL, &createdAt); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		if entitiesJSON != "" && entitiesJSON != "[]" {
			if err := json.Unmarshal([]byte(entitiesJSON), &c.Entities); err != nil {
				return nil, fmt.Errorf("unmarshal entities: %w", err)
			}
		}
		c.CreatedAt = parseTime(createdAt)
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return claims, nil
}
