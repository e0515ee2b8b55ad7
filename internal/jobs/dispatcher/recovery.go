package dispatcher

import (
	"context"
	"fmt"
	"time"
)

// RecoverStaleJobs requeues running jobs whose start time has aged past the
// stale timeout. Jobs that never recorded a start time are treated as
// stale. A zero now means the current time. Returns the number of jobs
// requeued.
//
// Called once on startup, to sweep jobs orphaned by a crash, and
// periodically from the watchdog schedule, to catch collectors that hung
// without reaching a terminal status.
func (d *Dispatcher) RecoverStaleJobs(ctx context.Context, now time.Time) (int, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}
	cutoff := now.Add(-d.config.StaleTimeoutDuration())

	stale, err := d.storage.JobStorage().StaleRunningJobs(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to scan for stale jobs: %w", err)
	}

	requeued := 0
	for _, job := range stale {
		// A job holding an in-flight slot is slow, not orphaned. Leave it
		// to its collector.
		if d.inflight.Holds(job.ID) {
			continue
		}
		note := fmt.Sprintf("requeued after exceeding stale timeout %s", d.config.StaleTimeout)
		if err := job.Requeue(note); err != nil {
			d.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Cannot requeue job")
			continue
		}
		if err := d.storage.JobStorage().SaveJob(ctx, job); err != nil {
			d.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist requeued job")
			continue
		}
		d.logger.Warn().
			Str("job_id", job.ID).
			Str("entity_type", string(job.EntityType)).
			Msg("Stale running job requeued")
		requeued++
	}

	if requeued > 0 {
		d.logger.Info().Int("requeued", requeued).Msg("Stale-job recovery complete")
	}
	return requeued, nil
}
