package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"hypewatch/internal/model"
)

// videosPerFetch bounds how many transcripts one cycle extracts per channel;
// each transcript is two extra page fetches.
const videosPerFetch = 5

// TranscriptAdapter extracts caption transcripts from a video channel.
// The source identifier is the channel id; recent uploads come from the
// channel's syndication feed, captions from the watch page's track list.
type TranscriptAdapter struct {
	fetcher *Fetcher
	parser  *gofeed.Parser
	logger  *zap.Logger
}

// NewTranscriptAdapter creates the transcript-extraction adapter.
func NewTranscriptAdapter(fetcher *Fetcher, logger *zap.Logger) *TranscriptAdapter {
	return &TranscriptAdapter{
		fetcher: fetcher,
		parser:  gofeed.NewParser(),
		logger:  logger,
	}
}

// Kind returns the source kind this adapter handles.
func (a *TranscriptAdapter) Kind() model.SourceKind {
	return model.KindTranscript
}

// Fetch lists a channel's recent uploads and extracts a transcript for each.
// ExternalID is the video id. Videos without captions are skipped; a failed
// transcript never fails the channel.
func (a *TranscriptAdapter) Fetch(ctx context.Context, src model.Source) ([]model.RawItem, error) {
	feedURL := "https://www.youtube.com/feeds/videos.xml?channel_id=" + src.Identifier

	body, err := a.fetcher.Get(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("channel %s: %w", src.Identifier, err)
	}
	feed, err := a.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("channel %s: parse feed: %w", src.Identifier, err)
	}

	var items []model.RawItem
	for _, entry := range feed.Items {
		if len(items) >= videosPerFetch {
			break
		}

		videoID := videoIDFromEntry(entry)
		if videoID == "" {
			continue
		}

		transcript, err := a.extractTranscript(ctx, videoID)
		if err != nil {
			a.logger.Debug("transcript unavailable",
				zap.String("video", videoID), zap.Error(err))
			continue
		}

		published := time.Now().UTC()
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		}

		author := feed.Title
		if len(entry.Authors) > 0 && entry.Authors[0].Name != "" {
			author = entry.Authors[0].Name
		}

		items = append(items, model.RawItem{
			SourceID:    src.ID,
			ExternalID:  videoID,
			Title:       entry.Title,
			URL:         "https://www.youtube.com/watch?v=" + videoID,
			Author:      author,
			Body:        transcript,
			PublishedAt: published,
			Metadata:    map[string]string{"channel": src.Identifier},
		})
	}

	return items, nil
}

var captionTracksRe = regexp.MustCompile(`"captionTracks":(\[.*?\])`)

// extractTranscript pulls the first caption track from a watch page and
// flattens its timed text into one transcript string.
func (a *TranscriptAdapter) extractTranscript(ctx context.Context, videoID string) (string, error) {
	page, err := a.fetcher.Get(ctx, "https://www.youtube.com/watch?v="+videoID)
	if err != nil {
		return "", fmt.Errorf("watch page: %w", err)
	}

	match := captionTracksRe.FindSubmatch(page)
	if match == nil {
		return "", fmt.Errorf("no caption tracks on page")
	}

	var tracks []struct {
		BaseURL      string `json:"baseUrl"`
		LanguageCode string `json:"languageCode"`
	}
	if err := json.Unmarshal(match[1], &tracks); err != nil {
		return "", fmt.Errorf("decode caption tracks: %w", err)
	}
	if len(tracks) == 0 {
		return "", fmt.Errorf("empty caption track list")
	}

	// Prefer an English track; otherwise take whatever is first.
	trackURL := tracks[0].BaseURL
	for _, track := range tracks {
		if strings.HasPrefix(track.LanguageCode, "en") {
			trackURL = track.BaseURL
			break
		}
	}
	trackData, err := a.fetcher.Get(ctx, trackURL)
	if err != nil {
		return "", fmt.Errorf("caption track: %w", err)
	}

	return flattenTimedText(trackData)
}

type timedText struct {
	Texts []struct {
		Value string `xml:",chardata"`
	} `xml:"text"`
}

// flattenTimedText joins timedtext XML cues into one unescaped string.
func flattenTimedText(data []byte) (string, error) {
	var parsed timedText
	if err := xml.Unmarshal(data, &parsed); err != nil {
		return "", fmt.Errorf("parse timedtext: %w", err)
	}

	var parts []string
	for _, cue := range parsed.Texts {
		text := strings.TrimSpace(html.UnescapeString(cue.Value))
		if text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("empty transcript")
	}
	return strings.Join(parts, " "), nil
}

// videoIDFromEntry derives the video id from a feed entry's GUID
// (yt:video:VIDEOID) or its watch link.
func videoIDFromEntry(entry *gofeed.Item) string {
	if id, ok := strings.CutPrefix(entry.GUID, "yt:video:"); ok {
		return id
	}
	if idx := strings.Index(entry.Link, "watch?v="); idx >= 0 {
		id := entry.Link[idx+len("watch?v="):]
		if cut := strings.IndexAny(id, "&#"); cut >= 0 {
			id = id[:cut]
		}
		return id
	}
	return ""
}
