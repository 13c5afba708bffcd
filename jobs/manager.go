package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"shortsfactory/config"
	"shortsfactory/pipeline"
	"shortsfactory/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrTooManyJobs      = errors.New("too many jobs in flight")
	ErrAlreadyCommitted = errors.New("job output already committed")
	ErrJobFinished      = errors.New("job already finished")
	ErrInvalidJob       = errors.New("invalid job")
	ErrShuttingDown     = errors.New("job manager is shutting down")
)

// Runner executes one job. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context, job types.Job, hooks pipeline.Hooks) (types.Artifact, error)
}

// Notifier is told about every job that reaches a terminal state.
type Notifier interface {
	Notify(ctx context.Context, st types.JobStatus) error
}

// Options bounds the manager.
type Options struct {
	MaxConcurrent int
	MaxQueued     int
	MaxLogs       int
	// MaxRetained is how many finished jobs stay in memory. Older ones are
	// served from the Store.
	MaxRetained int
}

// OptionsFromConfig maps the runtime configuration onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxConcurrent: cfg.Jobs.MaxConcurrent,
		MaxQueued:     cfg.Jobs.MaxQueued,
		MaxLogs:       config.MaxJobLogs,
		MaxRetained:   config.MaxRetainedJobs,
	}
}

type entry struct {
	status types.JobStatus
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager owns every job for its lifetime with thread-safe access.
type Manager struct {
	mu   sync.RWMutex
	jobs map[string]*entry

	runner   Runner
	store    Store
	notifier Notifier

	sem         chan struct{}
	maxQueued   int
	maxLogs     int
	maxRetained int
	active      int
	finished    []string

	base     context.Context
	stop     context.CancelFunc
	wg       sync.WaitGroup
	shutdown bool
}

// NewManager creates a job manager. store and notifier may be nil.
func NewManager(runner Runner, store Store, notifier Notifier, opts Options) *Manager {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = config.MaxConcurrentJobs
	}
	if opts.MaxQueued <= 0 {
		opts.MaxQueued = config.MaxQueuedJobs
	}
	if opts.MaxLogs <= 0 {
		opts.MaxLogs = config.MaxJobLogs
	}
	if opts.MaxRetained <= 0 {
		opts.MaxRetained = config.MaxRetainedJobs
	}
	if store == nil {
		store = NewMemoryStore()
	}

	base, stop := context.WithCancel(context.Background())
	return &Manager{
		jobs:        make(map[string]*entry),
		runner:      runner,
		store:       store,
		notifier:    notifier,
		sem:         make(chan struct{}, opts.MaxConcurrent),
		maxQueued:   opts.MaxQueued,
		maxLogs:     opts.MaxLogs,
		maxRetained: opts.MaxRetained,
		base:        base,
		stop:        stop,
	}
}

// Submit validates job, queues it and returns immediately with the pending
// status.
func (m *Manager) Submit(job types.Job) (types.JobStatus, error) {
	e, err := m.register(job, true)
	if err != nil {
		return types.JobStatus{}, err
	}
	snap := m.snapshot(e)

	go func() {
		defer m.wg.Done()
		m.execute(e)
	}()
	return snap, nil
}

// Run executes job on the caller's goroutine and returns its terminal status.
// Canceling ctx cancels the job.
func (m *Manager) Run(ctx context.Context, job types.Job) (types.JobStatus, error) {
	e, err := m.register(job, false)
	if err != nil {
		return types.JobStatus{}, err
	}

	stop := context.AfterFunc(ctx, e.cancel)
	defer stop()

	defer m.wg.Done()
	m.execute(e)
	return m.snapshot(e), nil
}

func (m *Manager) register(job types.Job, queued bool) (*entry, error) {
	if err := job.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	job = job.WithDefaults()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil, ErrShuttingDown
	}
	if _, exists := m.jobs[job.ID]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidJob, job.ID)
	}
	if queued && m.active >= cap(m.sem)+m.maxQueued {
		m.mu.Unlock()
		return nil, ErrTooManyJobs
	}

	ctx, cancel := context.WithCancel(m.base)
	now := time.Now()
	e := &entry{
		status: types.JobStatus{
			ID:        job.ID,
			Job:       job,
			State:     types.JobPending,
			CreatedAt: now,
			UpdatedAt: now,
		},
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.jobs[job.ID] = e
	m.active++
	m.addLogLocked(e, "info", "job queued")
	m.wg.Add(1)
	m.mu.Unlock()

	m.persist(e)
	return e, nil
}

func (m *Manager) execute(e *entry) {
	defer close(e.done)
	defer e.cancel()

	ctx := e.ctx
	select {
	case m.sem <- struct{}{}:
		defer func() { <-m.sem }()
	case <-ctx.Done():
		m.finish(e, types.Artifact{}, ctx.Err())
		return
	}
	if err := ctx.Err(); err != nil {
		m.finish(e, types.Artifact{}, err)
		return
	}

	m.update(e, func(st *types.JobStatus) {
		st.State = types.JobRunning
	}, "info", "job started")

	log.Info().
		Str("job_id", e.status.ID).
		Str("topic", e.status.Job.Topic).
		Int("duration_hint", e.status.Job.DurationHint).
		Msg("job started")

	hooks := pipeline.Hooks{
		Stage: func(stage types.Stage) {
			m.update(e, func(st *types.JobStatus) {
				st.Stage = stage
			}, "info", "stage "+string(stage))
		},
		Log: func(level, msg string) {
			m.mu.Lock()
			m.addLogLocked(e, level, msg)
			m.mu.Unlock()
		},
		Commit: func() error {
			m.mu.Lock()
			defer m.mu.Unlock()
			if err := ctx.Err(); err != nil {
				return err
			}
			e.status.Committed = true
			return nil
		},
		Committed: func(a types.Artifact) {
			m.mu.Lock()
			e.status.Committed = true
			art := a
			e.status.Artifact = &art
			m.addLogLocked(e, "info", "output committed")
			m.mu.Unlock()
		},
	}

	artifact, err := m.runner.Run(ctx, e.status.Job, hooks)
	m.finish(e, artifact, err)
}

// finish records the terminal state. A failed publish after the commit still
// completes the job; the failure is reported next to the artifact.
func (m *Manager) finish(e *entry, artifact types.Artifact, err error) {
	m.mu.Lock()
	st := &e.status
	if artifact.Path != "" {
		art := artifact
		st.Artifact = &art
	}

	switch {
	case err == nil:
		st.State = types.JobCompleted
		m.addLogLocked(e, "info", "job completed")
	case st.Committed && errors.Is(err, types.ErrPublish):
		st.State = types.JobCompleted
		st.FailedStage = types.StagePublish
		st.Error = err.Error()
		m.addLogLocked(e, "warn", "job completed, publish failed")
	case !st.Committed && errors.Is(err, context.Canceled):
		st.State = types.JobCanceled
		st.Error = "job canceled"
		m.addLogLocked(e, "warn", "job canceled")
	default:
		if st.Artifact == nil {
			// The commit was claimed but the rename never happened.
			st.Committed = false
		}
		st.State = types.JobFailed
		st.FailedStage = types.StageOf(err)
		st.Error = err.Error()
		m.addLogLocked(e, "error", err.Error())
	}
	st.UpdatedAt = time.Now()
	m.active--
	snap := m.snapshotLocked(e)
	m.mu.Unlock()

	event := log.Info()
	if snap.State == types.JobFailed {
		event = log.Error().Err(err).Str("failed_stage", string(snap.FailedStage))
	}
	event.
		Str("job_id", snap.ID).
		Str("state", string(snap.State)).
		Msg("job finished")

	m.save(snap)
	m.retire(snap.ID)
	if m.notifier != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := m.notifier.Notify(ctx, snap); err != nil {
			log.Warn().Err(err).Str("job_id", snap.ID).Msg("failed to publish job result")
		}
	}
}

// retire queues a saved terminal job for eviction and drops the oldest ones
// beyond the retention limit.
func (m *Manager) retire(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finished = append(m.finished, id)
	for len(m.finished) > m.maxRetained {
		delete(m.jobs, m.finished[0])
		m.finished = m.finished[1:]
	}
}

func (m *Manager) update(e *entry, fn func(st *types.JobStatus), level, msg string) {
	m.mu.Lock()
	fn(&e.status)
	e.status.UpdatedAt = time.Now()
	m.addLogLocked(e, level, msg)
	m.mu.Unlock()
	m.persist(e)
}

// addLogLocked appends to the job's log ring. Callers hold m.mu.
func (m *Manager) addLogLocked(e *entry, level, msg string) {
	e.status.Logs = append(e.status.Logs, types.LogEntry{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
	})
	if len(e.status.Logs) > m.maxLogs {
		e.status.Logs = e.status.Logs[len(e.status.Logs)-m.maxLogs:]
	}
}

func (m *Manager) persist(e *entry) {
	m.save(m.snapshot(e))
}

func (m *Manager) save(st types.JobStatus) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.store.Save(ctx, st); err != nil {
		log.Warn().Err(err).Str("job_id", st.ID).Msg("failed to save job status")
	}
}

func (m *Manager) snapshot(e *entry) types.JobStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshotLocked(e)
}

func (m *Manager) snapshotLocked(e *entry) types.JobStatus {
	st := e.status
	st.Logs = append([]types.LogEntry{}, e.status.Logs...)
	if e.status.Artifact != nil {
		art := *e.status.Artifact
		st.Artifact = &art
	}
	return st
}

// Get returns a snapshot of job id. Jobs no longer in memory are looked up in
// the store.
func (m *Manager) Get(id string) (types.JobStatus, error) {
	m.mu.RLock()
	e, ok := m.jobs[id]
	m.mu.RUnlock()
	if ok {
		return m.snapshot(e), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.store.Load(ctx, id)
}

// List returns all known jobs, oldest first.
func (m *Manager) List() ([]types.JobStatus, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stored, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	out := make([]types.JobStatus, 0, len(m.jobs)+len(stored))
	for _, e := range m.jobs {
		out = append(out, m.snapshotLocked(e))
	}
	for _, st := range stored {
		if _, live := m.jobs[st.ID]; !live {
			out = append(out, st)
		}
	}
	m.mu.RUnlock()

	sortByCreated(out)
	return out, nil
}

// Cancel stops a job that has not committed its output yet.
func (m *Manager) Cancel(id string) (types.JobStatus, error) {
	m.mu.Lock()
	e, ok := m.jobs[id]
	if !ok {
		m.mu.Unlock()
		return m.stored(id, ErrJobFinished)
	}
	switch {
	case e.status.State.Terminal():
		snap := m.snapshotLocked(e)
		m.mu.Unlock()
		return snap, ErrJobFinished
	case e.status.Committed:
		snap := m.snapshotLocked(e)
		m.mu.Unlock()
		return snap, ErrAlreadyCommitted
	}
	m.addLogLocked(e, "warn", "cancel requested")
	snap := m.snapshotLocked(e)
	// Canceled under the lock so the Commit hook sees it.
	e.cancel()
	m.mu.Unlock()

	log.Info().Str("job_id", id).Msg("job cancel requested")
	return snap, nil
}

// Wait blocks until job id is terminal or ctx ends.
func (m *Manager) Wait(ctx context.Context, id string) (types.JobStatus, error) {
	m.mu.RLock()
	e, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return m.stored(id, nil)
	}
	select {
	case <-e.done:
		return m.snapshot(e), nil
	case <-ctx.Done():
		return m.snapshot(e), ctx.Err()
	}
}

// stored looks up a job that is no longer in memory. Only terminal snapshots
// count; anything else belonged to a previous process that never finished it.
func (m *Manager) stored(id string, found error) (types.JobStatus, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	st, err := m.store.Load(ctx, id)
	if err != nil || !st.State.Terminal() {
		return types.JobStatus{}, ErrJobNotFound
	}
	return st, found
}

// Shutdown rejects new jobs, cancels running ones and waits for them to
// finish or for ctx to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
	m.stop()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
