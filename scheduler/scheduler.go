package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shortsfactory/config"
	"shortsfactory/topics"
	"shortsfactory/types"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

var ErrBusy = errors.New("scheduler run already in progress")

// TopicSource lists up to n candidate topics from a feed.
type TopicSource interface {
	Topics(ctx context.Context, feedURL string, n int) ([]types.Topic, error)
}

// Submitter queues a job. *jobs.Manager implements it.
type Submitter interface {
	Submit(job types.Job) (types.JobStatus, error)
}

// Scheduler turns fresh feed items into jobs on a cron schedule.
type Scheduler struct {
	cfg    config.ScheduleConfig
	source TopicSource
	seen   topics.Seen
	submit Submitter

	cron    *cron.Cron
	cronID  cron.EntryID
	mu      sync.Mutex
	running sync.Mutex
}

// New creates a scheduler. seen may be nil, in which case an in-process set
// is used.
func New(cfg config.ScheduleConfig, source TopicSource, seen topics.Seen, submit Submitter) *Scheduler {
	if seen == nil {
		seen = topics.NewMemorySeen()
	}
	if cfg.PerRun <= 0 {
		cfg.PerRun = 1
	}
	return &Scheduler{
		cfg:    cfg,
		source: source,
		seen:   seen,
		submit: submit,
		cron:   cron.New(),
	}
}

// Start registers the cron entry. An empty schedule disables the scheduler.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cfg.Cron == "" || len(s.cfg.Feeds) == 0 {
		log.Info().Msg("scheduler disabled: no cron expression or feeds configured")
		return nil
	}

	id, err := s.cron.AddFunc(s.cfg.Cron, func() {
		log.Info().Msg("cron triggered: checking feeds for new topics")
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			log.Warn().Err(err).Msg("scheduled run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cronID = id
	s.cron.Start()
	log.Info().Str("schedule", s.cfg.Cron).Strs("feeds", s.cfg.Feeds).Msg("cron job started")
	return nil
}

// Stop halts the cron and waits for a run in progress.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce submits up to PerRun unseen topics from each configured feed. Runs
// never overlap; a second caller gets ErrBusy.
func (s *Scheduler) RunOnce(ctx context.Context) ([]types.JobStatus, error) {
	if !s.running.TryLock() {
		return nil, ErrBusy
	}
	defer s.running.Unlock()

	var submitted []types.JobStatus
	var errs []error
	for _, feed := range s.cfg.Feeds {
		// Fetch extra items so already-used topics do not starve the run.
		items, err := s.source.Topics(ctx, feed, s.cfg.PerRun*5)
		if err != nil {
			errs = append(errs, fmt.Errorf("feed %s: %w", feed, err))
			continue
		}

		count := 0
		for _, t := range items {
			if count == s.cfg.PerRun {
				break
			}
			fresh, err := s.seen.Claim(ctx, t)
			if err != nil {
				errs = append(errs, err)
				break
			}
			if !fresh {
				continue
			}

			st, err := s.submit.Submit(s.jobFor(t))
			if err != nil {
				// Give the topic back so a later run can retry it. A full
				// queue ends the whole run.
				if rerr := s.seen.Release(ctx, t); rerr != nil {
					log.Warn().Err(rerr).Str("topic", t.Title).Msg("failed to release topic claim")
				}
				errs = append(errs, fmt.Errorf("submit %q: %w", t.Title, err))
				return submitted, errors.Join(errs...)
			}
			log.Info().Str("job_id", st.ID).Str("topic", t.Title).Str("feed", feed).Msg("scheduled job submitted")
			submitted = append(submitted, st)
			count++
		}
	}
	return submitted, errors.Join(errs...)
}

// Topics previews a feed through the scheduler's source.
func (s *Scheduler) Topics(ctx context.Context, feedURL string, n int) ([]types.Topic, error) {
	return s.source.Topics(ctx, feedURL, n)
}

func (s *Scheduler) jobFor(t types.Topic) types.Job {
	return types.Job{
		Topic:        t.Title,
		DurationHint: s.cfg.DurationHint,
		Style:        types.Style(s.cfg.Style),
		Publish:      s.cfg.Publish,
		SourceURL:    t.URL,
	}
}
