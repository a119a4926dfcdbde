package model

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the complete HypeWatch configuration.
// Loaded via viper from ~/.hypewatch/config.yaml, HYPEWATCH_* env vars, and flags.
type Config struct {
	DataDir string `yaml:"data_dir" mapstructure:"data_dir"`

	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
	Gateway   GatewayConfig   `yaml:"gateway" mapstructure:"gateway"`
	Embedding EmbeddingConfig `yaml:"embedding" mapstructure:"embedding"`
	Schedule  ScheduleConfig  `yaml:"schedule" mapstructure:"schedule"`
	Sources   SourcesConfig   `yaml:"sources" mapstructure:"sources"`
	API       APIConfig       `yaml:"api" mapstructure:"api"`
	Logging   LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

// HTTPConfig controls outbound fetching.
type HTTPConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	MinIntervalMs int           `yaml:"min_interval_ms" mapstructure:"min_interval_ms"` // Per-endpoint rate floor
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
}

// GatewayConfig configures the external reasoning service.
type GatewayConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"` // openai or compatible endpoint
	Model       string  `yaml:"model" mapstructure:"model"`
	APIKey      string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Timeout     int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float32 `yaml:"temperature" mapstructure:"temperature"`

	// RelevanceThreshold drops filtered items scoring below it.
	RelevanceThreshold float64 `yaml:"relevance_threshold" mapstructure:"relevance_threshold"`
	FilterBatchSize    int     `yaml:"filter_batch_size" mapstructure:"filter_batch_size"`
	ExtractBatchSize   int     `yaml:"extract_batch_size" mapstructure:"extract_batch_size"`
}

// EmbeddingConfig configures the vector embedding backend.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider" mapstructure:"provider"` // openai, ollama, or "" to disable
	Model       string `yaml:"model" mapstructure:"model"`
	APIKey      string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Concurrency int    `yaml:"concurrency" mapstructure:"concurrency"` // In-flight embedding calls

	// Long text is chunked before embedding; the chunk vectors are pooled.
	ChunkRunes   int `yaml:"chunk_runes" mapstructure:"chunk_runes"`
	ChunkOverlap int `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
}

// ScheduleConfig holds recurring cadences. Zero values fall back to defaults.
type ScheduleConfig struct {
	TimelineHours   int `yaml:"timeline_hours" mapstructure:"timeline_hours"`
	GraphHours      int `yaml:"graph_hours" mapstructure:"graph_hours"`
	FeedHours       int `yaml:"feed_hours" mapstructure:"feed_hours"`
	TranscriptHours int `yaml:"transcript_hours" mapstructure:"transcript_hours"`
	AcademicHours   int `yaml:"academic_hours" mapstructure:"academic_hours"`
	ProcessHours    int `yaml:"process_hours" mapstructure:"process_hours"`
	SynthesisHours  int `yaml:"synthesis_hours" mapstructure:"synthesis_hours"`

	// Weekly digest anchor: next occurrence of Weekday at HourUTC, then every 7 days.
	DigestWeekday int `yaml:"digest_weekday" mapstructure:"digest_weekday"` // 0 = Sunday
	DigestHourUTC int `yaml:"digest_hour_utc" mapstructure:"digest_hour_utc"`
}

// CadenceFor returns the polling interval for a source kind.
func (s ScheduleConfig) CadenceFor(kind SourceKind) time.Duration {
	hours := 0
	switch kind {
	case KindTimeline:
		hours = s.TimelineHours
	case KindGraph:
		hours = s.GraphHours
	case KindFeed:
		hours = s.FeedHours
	case KindTranscript:
		hours = s.TranscriptHours
	case KindAcademic:
		hours = s.AcademicHours
	}
	if hours <= 0 {
		hours = defaultCadenceHours(kind)
	}
	return time.Duration(hours) * time.Hour
}

func defaultCadenceHours(kind SourceKind) int {
	switch kind {
	case KindTimeline, KindGraph:
		return 4
	case KindFeed:
		return 6
	case KindTranscript:
		return 12
	case KindAcademic:
		return 24
	default:
		return 12
	}
}

// SourcesConfig points at the source seed file and mirror lists.
type SourcesConfig struct {
	SeedFile        string   `yaml:"seed_file" mapstructure:"seed_file"`
	TimelineMirrors []string `yaml:"timeline_mirrors" mapstructure:"timeline_mirrors"`
	GraphAppView    string   `yaml:"graph_appview" mapstructure:"graph_appview"`
	AcademicBaseURL string   `yaml:"academic_base_url" mapstructure:"academic_base_url"`
	FetchLimit      int      `yaml:"fetch_limit" mapstructure:"fetch_limit"` // Max items per source per fetch
}

// APIConfig configures the HTTP API server.
type APIConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
}

// LoggingConfig selects log output shape.
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		DataDir: filepath.Join(home, ".hypewatch"),
		HTTP: HTTPConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "HypeWatch/0.3 (research aggregation bot)",
			MaxBodyBytes:  2_000_000,
			MinIntervalMs: 1200,
			RespectRobots: true,
		},
		Gateway: GatewayConfig{
			Provider:           "openai",
			Model:              "gpt-4o-mini",
			Timeout:            60,
			MaxTokens:          4000,
			Temperature:        0.3,
			RelevanceThreshold: 0.3,
			FilterBatchSize:    20,
			ExtractBatchSize:   10,
		},
		Embedding: EmbeddingConfig{
			Provider:     "",
			Model:        "text-embedding-3-small",
			Concurrency:  5,
			ChunkRunes:   1000,
			ChunkOverlap: 100,
		},
		Schedule: ScheduleConfig{
			TimelineHours:   4,
			GraphHours:      4,
			FeedHours:       6,
			TranscriptHours: 12,
			AcademicHours:   24,
			ProcessHours:    2,
			SynthesisHours:  24,
			DigestWeekday:   0, // Sunday
			DigestHourUTC:   9,
		},
		Sources: SourcesConfig{
			TimelineMirrors: []string{
				"https://nitter.net",
				"https://nitter.poast.org",
				"https://nitter.privacyredirect.com",
			},
			GraphAppView:    "https://public.api.bsky.app",
			AcademicBaseURL: "https://export.arxiv.org/api/query",
			FetchLimit:      50,
		},
		API: APIConfig{
			Listen: "127.0.0.1:8642",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DatabasePath returns the SQLite database location under DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "hypewatch.db")
}

// EnsureDirectories creates DataDir if missing.
func (c *Config) EnsureDirectories() error {
	return os.MkdirAll(c.DataDir, 0o755)
}
