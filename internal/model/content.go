package model

import "time"

// RawItem is one unit of content as an adapter returns it, before storage.
type RawItem struct {
	SourceID    int64             `json:"source_id"`
	ExternalID  string            `json:"external_id"` // Unique per source; derived from the native identifier
	Title       string            `json:"title,omitempty"`
	URL         string            `json:"url,omitempty"`
	Author      string            `json:"author,omitempty"`
	Body        string            `json:"body"`
	PublishedAt time.Time         `json:"published_at"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Content is a persisted RawItem.
//
// (SourceID, ExternalID) is unique: re-ingesting the same external identity
// updates the row in place. Rows are never deleted; ProcessedAt is stamped
// once when analysis completes.
type Content struct {
	ID          int64             `json:"id"`
	SourceID    int64             `json:"source_id"`
	ExternalID  string            `json:"external_id"`
	Title       string            `json:"title,omitempty"`
	URL         string            `json:"url,omitempty"`
	Author      string            `json:"author,omitempty"`
	Body        string            `json:"body"`
	PublishedAt time.Time         `json:"published_at"`
	ProcessedAt *time.Time        `json:"processed_at,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`

	// Annotations stamped by the relevance filter.
	Topic          string `json:"topic,omitempty"`
	ContentType    string `json:"content_type,omitempty"`
	AuthorCategory string `json:"author_category,omitempty"`
	Brief          string `json:"brief,omitempty"`
}

// UnattachedContentID is the sentinel row claims fall back to when their
// originating content cannot be resolved at write time.
const UnattachedContentID = 1
