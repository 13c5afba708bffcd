package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"shortsfactory/types"

	"github.com/redis/go-redis/v9"
)

// Store persists job status snapshots so they can be read after the job
// leaves memory or from another process.
type Store interface {
	Save(ctx context.Context, st types.JobStatus) error
	Load(ctx context.Context, id string) (types.JobStatus, error)
	List(ctx context.Context) ([]types.JobStatus, error)
}

// MemoryStore keeps snapshots in a map.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]types.JobStatus
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]types.JobStatus)}
}

func (s *MemoryStore) Save(_ context.Context, st types.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[st.ID] = st
	return nil
}

func (s *MemoryStore) Load(_ context.Context, id string) (types.JobStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.jobs[id]
	if !ok {
		return types.JobStatus{}, ErrJobNotFound
	}
	return st, nil
}

func (s *MemoryStore) List(_ context.Context) ([]types.JobStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]types.JobStatus, 0, len(s.jobs))
	for _, st := range s.jobs {
		out = append(out, st)
	}
	sortByCreated(out)
	return out, nil
}

// RedisConfig configures the Redis connection used for job snapshots.
type RedisConfig struct {
	Addr     string // e.g. localhost:6379
	Password string
	DB       int
	TTL      time.Duration
}

const (
	redisKeyPrefix = "jobs:"
	redisIndexKey  = "jobs:index"
)

// RedisStore stores each snapshot as JSON under jobs:<id> with a TTL and
// tracks ids in the jobs:index set.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis and verifies connectivity.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// Close closes the underlying Redis client
func (r *RedisStore) Close() error {
	return r.client.Close()
}

func redisKey(id string) string {
	return redisKeyPrefix + id
}

func (r *RedisStore) Save(ctx context.Context, st types.JobStatus) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal job %s: %w", st.ID, err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, redisKey(st.ID), data, r.ttl)
		pipe.SAdd(ctx, redisIndexKey, st.ID)
		return nil
	})
	return err
}

func (r *RedisStore) Load(ctx context.Context, id string) (types.JobStatus, error) {
	data, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return types.JobStatus{}, ErrJobNotFound
	}
	if err != nil {
		return types.JobStatus{}, err
	}
	var st types.JobStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return types.JobStatus{}, fmt.Errorf("decode job %s: %w", id, err)
	}
	return st, nil
}

// List returns every indexed job that has not expired. Expired ids are
// pruned from the index.
func (r *RedisStore) List(ctx context.Context) ([]types.JobStatus, error) {
	ids, err := r.client.SMembers(ctx, redisIndexKey).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = redisKey(id)
	}
	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]types.JobStatus, 0, len(vals))
	var expired []interface{}
	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			expired = append(expired, ids[i])
			continue
		}
		var st types.JobStatus
		if err := json.Unmarshal([]byte(s), &st); err != nil {
			continue
		}
		out = append(out, st)
	}
	if len(expired) > 0 {
		r.client.SRem(ctx, redisIndexKey, expired...)
	}
	sortByCreated(out)
	return out, nil
}

func sortByCreated(list []types.JobStatus) {
	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.Before(list[j].CreatedAt)
	})
}
