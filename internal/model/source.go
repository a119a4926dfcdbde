package model

import "time"

// SourceKind identifies which adapter handles a source
type SourceKind string

const (
	KindTimeline   SourceKind = "timeline"   // Social timeline polled via mirror chain
	KindFeed       SourceKind = "feed"       // RSS/Atom syndication feed
	KindTranscript SourceKind = "transcript" // Video channel, caption transcripts
	KindGraph      SourceKind = "graph"      // Social-graph API (author feed)
	KindAcademic   SourceKind = "academic"   // Academic index query (arXiv)
)

// Kinds lists every supported source kind in scheduling order.
func Kinds() []SourceKind {
	return []SourceKind{KindTimeline, KindGraph, KindFeed, KindTranscript, KindAcademic}
}

// Valid reports whether the kind names a known adapter.
func (k SourceKind) Valid() bool {
	switch k {
	case KindTimeline, KindFeed, KindTranscript, KindGraph, KindAcademic:
		return true
	}
	return false
}

// Source is a tracked external origin of content.
//
// Sources are seeded from configuration and never hard-deleted once they own
// ingested content; operators toggle Active instead.
type Source struct {
	ID         int64      `json:"id"`
	Kind       SourceKind `json:"kind"`
	Identifier string     `json:"identifier"` // Source-native handle, feed URL, channel ID, query
	Name       string     `json:"name,omitempty"`
	Category   string     `json:"category,omitempty"` // Author cohort: lab, critic, researcher, journalist
	Tags       []string   `json:"tags,omitempty"`
	Active     bool       `json:"active"`
	CadenceHrs int        `json:"cadence_hours"` // Polling interval; 0 means the kind default
	LastFetch  *time.Time `json:"last_fetched,omitempty"`
}

// AuthorCategory buckets used by the synthesis engine's cohort math.
const (
	CategoryLab        = "lab"
	CategoryCritic     = "critic"
	CategoryResearcher = "researcher"
	CategoryJournalist = "journalist"
	CategoryBuilder    = "builder"
)
