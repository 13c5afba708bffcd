package types

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Topic is a candidate video subject pulled from a feed.
type Topic struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// GenerateID creates a stable short id from a URL or title.
func GenerateID(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])[:16]
}
