package topics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"shortsfactory/types"

	"github.com/redis/go-redis/v9"
)

// Seen remembers which topics already became jobs.
type Seen interface {
	// Claim marks the topic as used and reports whether it was new.
	Claim(ctx context.Context, t types.Topic) (bool, error)
	// Release undoes a claim whose job was never submitted.
	Release(ctx context.Context, t types.Topic) error
}

// MemorySeen is an in-process Seen.
type MemorySeen struct {
	mu     sync.Mutex
	hashes map[string]struct{}
}

// NewMemorySeen returns an in-process Seen.
func NewMemorySeen() *MemorySeen {
	return &MemorySeen{hashes: make(map[string]struct{})}
}

func (m *MemorySeen) Claim(_ context.Context, t types.Topic) (bool, error) {
	h := TopicHash(t)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.hashes[h]; ok {
		return false, nil
	}
	m.hashes[h] = struct{}{}
	return true, nil
}

func (m *MemorySeen) Release(_ context.Context, t types.Topic) error {
	m.mu.Lock()
	delete(m.hashes, TopicHash(t))
	m.mu.Unlock()
	return nil
}

// RedisSeen claims topics with SET NX so several schedulers sharing one Redis
// never submit the same topic twice. Claims expire after ttl.
type RedisSeen struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisSeen stores claims under topics:seen: keys that expire after ttl.
func NewRedisSeen(client *redis.Client, ttl time.Duration) *RedisSeen {
	return &RedisSeen{client: client, prefix: "topics:seen:", ttl: ttl}
}

func (r *RedisSeen) Claim(ctx context.Context, t types.Topic) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+TopicHash(t), time.Now().Unix(), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim topic: %w", err)
	}
	return ok, nil
}

func (r *RedisSeen) Release(ctx context.Context, t types.Topic) error {
	if err := r.client.Del(ctx, r.prefix+TopicHash(t)).Err(); err != nil {
		return fmt.Errorf("release topic: %w", err)
	}
	return nil
}

// TopicHash returns sha256(normalizedURL + "|" + normalizedTitle).
func TopicHash(t types.Topic) string {
	h := sha256.Sum256([]byte(normalizeURL(t.URL) + "|" + normalizeTitle(t.Title)))
	return hex.EncodeToString(h[:])
}

func normalizeTitle(t string) string {
	return strings.Join(strings.Fields(strings.ToLower(t)), " ")
}

// normalizeURL lowercases scheme and host, drops the fragment and tracking
// parameters, and trims trailing slashes.
func normalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return strings.ToLower(raw)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") || lk == "fbclid" || lk == "gclid" {
			q.Del(k)
		}
	}
	u.RawQuery = q.Encode()

	return strings.TrimRight(u.String(), "/")
}
