package dispatcher

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	badgerstore "github.com/ternarybob/prospectus/internal/storage/badger"
)

// blockingCollector records which jobs reach Execute and holds them until
// the gate closes.
type blockingCollector struct {
	entityType models.EntityType
	gate       chan struct{}

	mu      sync.Mutex
	started []string
}

func newBlockingCollector(entityType models.EntityType) *blockingCollector {
	return &blockingCollector{
		entityType: entityType,
		gate:       make(chan struct{}),
	}
}

func (c *blockingCollector) EntityType() models.EntityType { return c.entityType }

func (c *blockingCollector) Validate(job *models.Job) error { return nil }

func (c *blockingCollector) Execute(ctx context.Context, job *models.Job) error {
	c.mu.Lock()
	c.started = append(c.started, job.ID)
	c.mu.Unlock()
	<-c.gate
	return nil
}

func (c *blockingCollector) startedJobs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.started...)
}

func testDispatcher(t *testing.T, cfg *common.DispatcherConfig) (*Dispatcher, interfaces.StorageManager) {
	t.Helper()
	logger := arbor.NewLogger()

	manager, err := badgerstore.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	return NewDispatcher(manager, cfg, logger), manager
}

func seedPending(t *testing.T, manager interfaces.StorageManager, id string, entityType models.EntityType, priority int, createdAt time.Time) {
	t.Helper()
	job := models.NewJob(id, entityType, models.JobTypeDiscovery, priority)
	job.SearchQuery = "test"
	job.CreatedAt = createdAt
	if err := manager.JobStorage().SaveJob(context.Background(), job); err != nil {
		t.Fatalf("failed to seed job: %v", err)
	}
}

func waitForStarted(t *testing.T, c *blockingCollector, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(c.startedJobs()) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("only %d jobs started, want %d", len(c.startedJobs()), want)
}

func TestTickRespectsCategoryCap(t *testing.T) {
	d, manager := testDispatcher(t, &common.DispatcherConfig{
		PollInterval:  "1s",
		MaxTotal:      8,
		MaxConcurrent: map[string]int{"builder": 2},
		StaleTimeout:  "30m",
		ClaimBatch:    50,
	})

	collector := newBlockingCollector(models.EntityTypeBuilder)
	if err := d.Register(collector); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	for _, id := range []string{"job_1", "job_2", "job_3", "job_4", "job_5"} {
		seedPending(t, manager, id, models.EntityTypeBuilder, 0, now)
		now = now.Add(time.Millisecond)
	}

	d.Tick(context.Background())
	waitForStarted(t, collector, 2)

	total, byCategory := d.Inflight()
	if total != 2 || byCategory[models.EntityTypeBuilder] != 2 {
		t.Fatalf("inflight total=%d builder=%d, want 2/2", total, byCategory[models.EntityTypeBuilder])
	}
	if got := len(collector.startedJobs()); got != 2 {
		t.Fatalf("started = %d, want 2", got)
	}

	close(collector.gate)
	d.jobs.Wait()

	total, _ = d.Inflight()
	if total != 0 {
		t.Fatalf("inflight after completion = %d, want 0", total)
	}
}

func TestTickRespectsGlobalCap(t *testing.T) {
	d, manager := testDispatcher(t, &common.DispatcherConfig{
		PollInterval:  "1s",
		MaxTotal:      3,
		MaxConcurrent: map[string]int{"builder": 2, "agent": 2},
		StaleTimeout:  "30m",
		ClaimBatch:    50,
	})

	builders := newBlockingCollector(models.EntityTypeBuilder)
	agents := newBlockingCollector(models.EntityTypeAgent)
	if err := d.Register(builders); err != nil {
		t.Fatal(err)
	}
	if err := d.Register(agents); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	seedPending(t, manager, "job_b1", models.EntityTypeBuilder, 0, now)
	seedPending(t, manager, "job_b2", models.EntityTypeBuilder, 0, now.Add(time.Millisecond))
	seedPending(t, manager, "job_a1", models.EntityTypeAgent, 0, now.Add(2*time.Millisecond))
	seedPending(t, manager, "job_a2", models.EntityTypeAgent, 0, now.Add(3*time.Millisecond))

	d.Tick(context.Background())
	waitForStarted(t, builders, 2)
	waitForStarted(t, agents, 1)

	total, _ := d.Inflight()
	if total != 3 {
		t.Fatalf("inflight total = %d, want 3", total)
	}

	close(builders.gate)
	close(agents.gate)
	d.jobs.Wait()
}

func TestTickClaimsHighestPriorityFirst(t *testing.T) {
	d, manager := testDispatcher(t, &common.DispatcherConfig{
		PollInterval:  "1s",
		MaxTotal:      1,
		MaxConcurrent: map[string]int{"builder": 1},
		StaleTimeout:  "30m",
		ClaimBatch:    50,
	})

	collector := newBlockingCollector(models.EntityTypeBuilder)
	if err := d.Register(collector); err != nil {
		t.Fatal(err)
	}

	t0 := time.Now().UTC().Add(-time.Minute)
	seedPending(t, manager, "job_low", models.EntityTypeBuilder, 5, t0)
	seedPending(t, manager, "job_high", models.EntityTypeBuilder, 10, t0.Add(30*time.Second))

	d.Tick(context.Background())
	waitForStarted(t, collector, 1)

	started := collector.startedJobs()
	if started[0] != "job_high" {
		t.Fatalf("first dispatched = %s, want job_high", started[0])
	}

	close(collector.gate)
	d.jobs.Wait()
}

func TestDispatchMarksJobRunning(t *testing.T) {
	d, manager := testDispatcher(t, &common.DispatcherConfig{
		PollInterval:  "1s",
		MaxTotal:      1,
		MaxConcurrent: map[string]int{"builder": 1},
		StaleTimeout:  "30m",
		ClaimBatch:    50,
	})

	collector := newBlockingCollector(models.EntityTypeBuilder)
	if err := d.Register(collector); err != nil {
		t.Fatal(err)
	}
	seedPending(t, manager, "job_1", models.EntityTypeBuilder, 0, time.Now().UTC())

	d.Tick(context.Background())
	waitForStarted(t, collector, 1)

	job, err := manager.JobStorage().GetJob(context.Background(), "job_1")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != models.JobStatusRunning || job.StartedAt == nil {
		t.Fatalf("job = %+v, want running with StartedAt", job)
	}

	close(collector.gate)
	d.jobs.Wait()
}

func TestRecoverStaleJobsRequeues(t *testing.T) {
	d, manager := testDispatcher(t, &common.DispatcherConfig{
		PollInterval:  "1s",
		MaxTotal:      1,
		MaxConcurrent: map[string]int{"builder": 1},
		StaleTimeout:  "30m",
		ClaimBatch:    50,
	})
	ctx := context.Background()

	stale := models.NewJob("job_stale", models.EntityTypeBuilder, models.JobTypeDiscovery, 0)
	stale.SearchQuery = "test"
	if err := stale.MarkRunning(); err != nil {
		t.Fatal(err)
	}
	old := time.Now().UTC().Add(-45 * time.Minute)
	stale.StartedAt = &old
	if err := manager.JobStorage().SaveJob(ctx, stale); err != nil {
		t.Fatal(err)
	}

	fresh := models.NewJob("job_fresh", models.EntityTypeBuilder, models.JobTypeDiscovery, 0)
	fresh.SearchQuery = "test"
	if err := fresh.MarkRunning(); err != nil {
		t.Fatal(err)
	}
	if err := manager.JobStorage().SaveJob(ctx, fresh); err != nil {
		t.Fatal(err)
	}

	requeued, err := d.RecoverStaleJobs(ctx, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if requeued != 1 {
		t.Fatalf("requeued = %d, want 1", requeued)
	}

	job, err := manager.JobStorage().GetJob(ctx, "job_stale")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != models.JobStatusPending || job.StartedAt != nil {
		t.Fatalf("stale job = %+v, want pending with cleared StartedAt", job)
	}

	job, err = manager.JobStorage().GetJob(ctx, "job_fresh")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != models.JobStatusRunning {
		t.Fatalf("fresh running job was requeued: %+v", job)
	}
}

func TestRecoverStaleJobsSkipsJobsStillExecuting(t *testing.T) {
	d, manager := testDispatcher(t, &common.DispatcherConfig{
		PollInterval:  "1s",
		MaxTotal:      1,
		MaxConcurrent: map[string]int{"builder": 1},
		StaleTimeout:  "30m",
		ClaimBatch:    50,
	})
	ctx := context.Background()

	collector := newBlockingCollector(models.EntityTypeBuilder)
	if err := d.Register(collector); err != nil {
		t.Fatal(err)
	}
	seedPending(t, manager, "job_slow", models.EntityTypeBuilder, 0, time.Now().UTC())

	d.Tick(ctx)
	waitForStarted(t, collector, 1)

	// Age the start time past the stale timeout while the collector is
	// still holding the job.
	job, err := manager.JobStorage().GetJob(ctx, "job_slow")
	if err != nil {
		t.Fatal(err)
	}
	old := time.Now().UTC().Add(-45 * time.Minute)
	job.StartedAt = &old
	if err := manager.JobStorage().SaveJob(ctx, job); err != nil {
		t.Fatal(err)
	}

	requeued, err := d.RecoverStaleJobs(ctx, time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if requeued != 0 {
		t.Fatalf("requeued = %d, want 0 while the job is in flight", requeued)
	}

	job, err = manager.JobStorage().GetJob(ctx, "job_slow")
	if err != nil {
		t.Fatal(err)
	}
	if job.Status != models.JobStatusRunning {
		t.Fatalf("in-flight job = %+v, want still running", job)
	}

	close(collector.gate)
	d.jobs.Wait()
}
