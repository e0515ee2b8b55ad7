// -----------------------------------------------------------------------
// Dispatcher - claims pending jobs and routes them to collectors under
// global and per-category concurrency caps
// -----------------------------------------------------------------------

package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// Dispatcher polls the job store and hands pending jobs to registered
// collectors. It owns the pending-to-running transition only: terminal
// statuses belong to the collector.
type Dispatcher struct {
	storage    interfaces.StorageManager
	config     *common.DispatcherConfig
	collectors map[models.EntityType]interfaces.Collector
	inflight   *inflightTable
	logger     arbor.ILogger

	wake    chan struct{}
	stop    chan struct{}
	stopped chan struct{}
	jobs    sync.WaitGroup

	mu      sync.Mutex
	ticking bool
	running bool
}

// NewDispatcher creates a dispatcher with no collectors registered.
func NewDispatcher(storage interfaces.StorageManager, config *common.DispatcherConfig, logger arbor.ILogger) *Dispatcher {
	limits := make(map[models.EntityType]int, len(config.MaxConcurrent))
	for category, limit := range config.MaxConcurrent {
		limits[models.EntityType(category)] = limit
	}
	return &Dispatcher{
		storage:    storage,
		config:     config,
		collectors: make(map[models.EntityType]interfaces.Collector),
		inflight:   newInflightTable(config.MaxTotal, limits),
		logger:     logger,
		wake:       make(chan struct{}, 1),
		stop:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Register adds a collector for its entity type. Registering two
// collectors for the same type is a wiring bug.
func (d *Dispatcher) Register(collector interfaces.Collector) error {
	entityType := collector.EntityType()
	if _, exists := d.collectors[entityType]; exists {
		return fmt.Errorf("collector already registered for entity type %q", entityType)
	}
	d.collectors[entityType] = collector
	d.logger.Info().Str("entity_type", string(entityType)).Msg("Collector registered")
	return nil
}

// Start requeues stale jobs left over from a previous run, then begins
// the poll loop.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("dispatcher already started")
	}
	d.running = true
	d.mu.Unlock()

	if _, err := d.RecoverStaleJobs(ctx, time.Time{}); err != nil {
		return fmt.Errorf("startup stale-job recovery failed: %w", err)
	}

	go d.loop(ctx)
	d.logger.Info().
		Str("poll_interval", d.config.PollInterval).
		Int("max_total", d.config.MaxTotal).
		Msg("Dispatcher started")
	return nil
}

// Stop halts polling and waits for in-flight jobs to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	d.mu.Unlock()

	close(d.stop)
	<-d.stopped
	d.jobs.Wait()
	d.logger.Info().Msg("Dispatcher stopped")
}

// Wake requests an immediate dispatch tick without waiting for the next
// poll interval.
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Inflight reports current slot occupancy.
func (d *Dispatcher) Inflight() (int, map[models.EntityType]int) {
	return d.inflight.Snapshot()
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer close(d.stopped)

	ticker := time.NewTicker(d.config.PollIntervalDuration())
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Tick(ctx)
		case <-d.wake:
			d.Tick(ctx)
		}
	}
}

// Tick claims as many pending jobs as the concurrency caps allow and
// dispatches each on its own goroutine. Overlapping ticks are skipped so
// one slow store scan cannot stack claim passes.
func (d *Dispatcher) Tick(ctx context.Context) {
	d.mu.Lock()
	if d.ticking {
		d.mu.Unlock()
		return
	}
	d.ticking = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.ticking = false
		d.mu.Unlock()
	}()

	pending, err := d.storage.JobStorage().PendingJobs(ctx, d.config.ClaimBatch)
	if err != nil {
		d.logger.Error().Err(err).Msg("Failed to fetch pending jobs")
		return
	}

	for _, job := range pending {
		select {
		case <-d.stop:
			return
		case <-ctx.Done():
			return
		default:
		}
		d.dispatch(ctx, job)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, job *models.Job) {
	collector, ok := d.collectors[job.EntityType]
	if !ok {
		d.failJob(ctx, job, fmt.Sprintf("no collector registered for entity type %q", job.EntityType))
		return
	}
	if err := collector.Validate(job); err != nil {
		d.failJob(ctx, job, fmt.Sprintf("job validation failed: %v", err))
		return
	}

	if !d.inflight.TryAcquire(job.EntityType, job.ID) {
		// Caps full for this category, leave the job pending for a
		// later tick.
		return
	}

	if err := job.MarkRunning(); err != nil {
		d.inflight.Release(job.EntityType, job.ID)
		d.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Skipping job with illegal status")
		return
	}
	if err := d.storage.JobStorage().SaveJob(ctx, job); err != nil {
		d.inflight.Release(job.EntityType, job.ID)
		d.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist running status")
		return
	}

	d.logger.Info().
		Str("job_id", job.ID).
		Str("entity_type", string(job.EntityType)).
		Str("job_type", string(job.JobType)).
		Int("priority", job.Priority).
		Msg("Job dispatched")

	d.jobs.Add(1)
	go func() {
		defer d.jobs.Done()
		defer d.inflight.Release(job.EntityType, job.ID)

		if err := collector.Execute(ctx, job); err != nil {
			d.logger.Error().
				Err(err).
				Str("job_id", job.ID).
				Msg("Collector execution failed")
		}
	}()
}

// failJob marks an undispatchable job failed directly. Used only for jobs
// that no collector will ever accept.
func (d *Dispatcher) failJob(ctx context.Context, job *models.Job, reason string) {
	if err := job.MarkRunning(); err != nil {
		d.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Cannot fail job from current status")
		return
	}
	if err := job.MarkFailed(reason); err != nil {
		d.logger.Warn().Err(err).Str("job_id", job.ID).Msg("Cannot fail job from current status")
		return
	}
	if err := d.storage.JobStorage().SaveJob(ctx, job); err != nil {
		d.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist failed status")
		return
	}
	d.logger.Warn().
		Str("job_id", job.ID).
		Str("reason", reason).
		Msg("Job failed at dispatch")
}
