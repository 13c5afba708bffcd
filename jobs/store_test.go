package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"shortsfactory/types"

	"github.com/alicebob/miniredis/v2"
)

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	older := types.JobStatus{ID: "older-" + now.Format("150405.000"), State: types.JobCompleted, CreatedAt: now.Add(-time.Minute)}
	newer := types.JobStatus{ID: "newer-" + now.Format("150405.000"), State: types.JobRunning, Stage: types.StageNarration, CreatedAt: now}

	for _, st := range []types.JobStatus{newer, older} {
		if err := s.Save(ctx, st); err != nil {
			t.Fatalf("Save(%s): %v", st.ID, err)
		}
	}

	got, err := s.Load(ctx, newer.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Stage != types.StageNarration {
		t.Fatalf("stage = %q", got.Stage)
	}

	if _, err := s.Load(ctx, "does-not-exist"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	idx := map[string]int{}
	for i, st := range list {
		idx[st.ID] = i
	}
	i, okOld := idx[older.ID]
	j, okNew := idx[newer.ID]
	if !okOld || !okNew || i > j {
		t.Fatalf("expected both jobs oldest first, got %+v", list)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	s, err := NewRedisStore(RedisConfig{Addr: mr.Addr(), TTL: time.Minute})
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	defer s.Close()
	exerciseStore(t, s)

	// Expired snapshots disappear from List and are pruned from the index.
	mr.FastForward(2 * time.Minute)
	list, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List after expiry: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no live jobs, got %+v", list)
	}
	if members, _ := mr.Members(redisIndexKey); len(members) != 0 {
		t.Fatalf("index still holds %v", members)
	}
}

func TestRedisStoreUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	if _, err := NewRedisStore(RedisConfig{Addr: addr}); err == nil {
		t.Fatal("expected a connection error")
	}
}

func TestRedisKey(t *testing.T) {
	if got := redisKey("abc"); got != "jobs:abc" {
		t.Fatalf("redisKey = %q", got)
	}
}
