package topics

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shortsfactory/types"

	"github.com/mmcdole/gofeed"
)

// FeedPresets maps friendly names to RSS feed URLs
var FeedPresets = map[string]string{
	"hn":      "https://hnrss.org/newest",
	"tr":      "https://www.technologyreview.com/feed/",
	"science": "https://www.sciencedaily.com/rss/all.xml",
	"nasa":    "https://www.nasa.gov/news-release/feed/",
}

// ResolveFeedURL returns the preset URL for name, or name itself when it is
// not a preset.
func ResolveFeedURL(name string) string {
	if url, ok := FeedPresets[name]; ok {
		return url
	}
	return name
}

// FeedSource turns RSS/Atom items into video topics.
type FeedSource struct {
	parser *gofeed.Parser
}

// NewFeedSource returns a feed reader whose fetches give up after timeout.
func NewFeedSource(timeout time.Duration) *FeedSource {
	p := gofeed.NewParser()
	p.Client = &http.Client{Timeout: timeout}
	return &FeedSource{parser: p}
}

// Topics fetches feedURL (or a preset name) and returns up to n topics in
// feed order. Items without a title are skipped.
func (f *FeedSource) Topics(ctx context.Context, feedURL string, n int) ([]types.Topic, error) {
	feed, err := f.parser.ParseURLWithContext(ResolveFeedURL(feedURL), ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	out := make([]types.Topic, 0, min(len(feed.Items), n))
	for _, item := range feed.Items {
		if len(out) == n {
			break
		}
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}

		id := item.GUID
		if id == "" {
			id = types.GenerateID(item.Link + "|" + title)
		}

		var publishedAt time.Time
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			publishedAt = *item.UpdatedParsed
		}

		summary := item.Description
		if summary == "" {
			summary = item.Content
		}

		out = append(out, types.Topic{
			ID:          id,
			Title:       title,
			URL:         item.Link,
			Summary:     summary,
			PublishedAt: publishedAt,
			FetchedAt:   time.Now(),
		})
	}
	return out, nil
}
