package kafka

import (
	"context"
	"errors"
	"fmt"

	"shortsfactory/jobs"
	"shortsfactory/types"

	"github.com/rs/zerolog/log"
)

// JobRunner runs a job to a terminal state. *jobs.Manager implements it.
type JobRunner interface {
	Run(ctx context.Context, job types.Job) (types.JobStatus, error)
}

// NewJobRequestHandler consumes types.Job requests. Each request runs to a
// terminal state before its offset is marked, so a crash mid-job redelivers
// it. Malformed or invalid requests are marked and skipped.
func NewJobRequestHandler(runner JobRunner) *TypedMessageHandler[types.Job] {
	return &TypedMessageHandler[types.Job]{
		AlwaysMark: true,
		Validate: func(job *types.Job) bool {
			if err := job.Validate(); err != nil {
				log.Warn().Err(err).Str("job_id", job.ID).Msg("skipping invalid job request")
				return false
			}
			return true
		},
		Process: func(ctx context.Context, job *types.Job) error {
			st, err := runner.Run(ctx, *job)
			switch {
			case errors.Is(err, jobs.ErrInvalidJob):
				// Duplicate ids are redeliveries of a job this process already ran.
				log.Warn().Err(err).Str("job_id", job.ID).Msg("skipping job request")
				return nil
			case err != nil:
				return fmt.Errorf("run job: %w", err)
			}
			if st.State == types.JobCanceled && ctx.Err() != nil {
				// Canceled by consumer shutdown; leave it for redelivery.
				return ctx.Err()
			}
			log.Info().Str("job_id", st.ID).Str("state", string(st.State)).Msg("job request processed")
			return nil
		},
	}
}
