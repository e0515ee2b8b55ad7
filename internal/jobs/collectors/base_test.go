package collectors

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/ternarybob/prospectus/internal/services/decision"
	"github.com/ternarybob/prospectus/internal/services/lifecycle"
	"github.com/ternarybob/prospectus/internal/services/research"
	"github.com/ternarybob/prospectus/internal/services/resolver"
	badgerstore "github.com/ternarybob/prospectus/internal/storage/badger"
)

// stubResearch returns a canned result or error instead of calling a
// provider.
type stubResearch struct {
	result *models.ResearchResult
	err    error
}

func (s *stubResearch) Research(ctx context.Context, req *interfaces.ResearchRequest) (*models.ResearchResult, error) {
	return s.result, s.err
}

func (s *stubResearch) HealthCheck(ctx context.Context) error { return nil }

type silentNotifier struct{}

func (silentNotifier) Notify(ctx context.Context, event *models.NotificationEvent) {}

func testDeps(t *testing.T, svc interfaces.ResearchService) (Deps, interfaces.StorageManager) {
	t.Helper()
	logger := arbor.NewLogger()

	manager, err := badgerstore.NewManager(logger, &common.BadgerConfig{Path: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { manager.Close() })

	engine := decision.NewEngine(&common.DecisionConfig{ApproveThreshold: 0.90, DenyThreshold: 0.75})
	deps := Deps{
		Storage:  manager,
		Research: svc,
		Resolver: resolver.NewResolver(manager.EntityStorage(), &common.ResolverConfig{FuzzyThreshold: 0.85}, logger),
		Decision: decision.NewService(engine, manager, silentNotifier{}, logger),
		Tracker:  lifecycle.NewTracker(manager, &common.LifecycleConfig{GraceDays: 60}, logger),
		Logger:   logger,
	}
	return deps, manager
}

// startRunning seeds a job in the state the dispatcher hands it to a
// collector in.
func startRunning(t *testing.T, manager interfaces.StorageManager, job *models.Job) {
	t.Helper()
	if err := job.MarkRunning(); err != nil {
		t.Fatal(err)
	}
	if err := manager.JobStorage().SaveJob(context.Background(), job); err != nil {
		t.Fatal(err)
	}
}

func seedStoredBuilder(t *testing.T, manager interfaces.StorageManager, id, name string) {
	t.Helper()
	now := time.Now().UTC()
	builder := &models.Builder{
		ID:        id,
		Name:      name,
		City:      "Boise",
		State:     "ID",
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := manager.EntityStorage().SaveBuilder(context.Background(), builder); err != nil {
		t.Fatal(err)
	}
}

func TestExecuteMarksJobFailedOnUnparsableResearch(t *testing.T) {
	deps, manager := testDeps(t, &stubResearch{err: research.ErrUnparsableResponse})
	ctx := context.Background()

	seedStoredBuilder(t, manager, "builder_1", "Cedar Ridge Homes")

	job := models.NewJob("job_1", models.EntityTypeBuilder, models.JobTypeUpdate, 0)
	job.EntityID = "builder_1"
	startRunning(t, manager, job)

	if err := NewBuilderCollector(deps).Execute(ctx, job); err == nil {
		t.Fatal("expected execution error")
	}

	got, err := manager.JobStorage().GetJob(ctx, "job_1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.JobStatusFailed {
		t.Fatalf("job status = %s, want failed", got.Status)
	}
	if !strings.Contains(got.ErrorMessage, "knowledge service query failed") {
		t.Errorf("error message = %q, want query failure recorded", got.ErrorMessage)
	}
	if got.CompletedAt == nil {
		t.Error("failed job has no completion timestamp")
	}
}

func TestExecuteMarksJobFailedWhenEntityMissing(t *testing.T) {
	deps, manager := testDeps(t, &stubResearch{result: &models.ResearchResult{Confidence: 0.9}})
	ctx := context.Background()

	job := models.NewJob("job_1", models.EntityTypeBuilder, models.JobTypeUpdate, 0)
	job.EntityID = "builder_missing"
	startRunning(t, manager, job)

	if err := NewBuilderCollector(deps).Execute(ctx, job); err == nil {
		t.Fatal("expected execution error")
	}

	got, err := manager.JobStorage().GetJob(ctx, "job_1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.JobStatusFailed {
		t.Fatalf("job status = %s, want failed", got.Status)
	}
	if !strings.Contains(got.ErrorMessage, "no resolvable builder") {
		t.Errorf("error message = %q, want missing-entity cause", got.ErrorMessage)
	}
}

func TestExecuteContainsPanicAndPreservesPartialCounts(t *testing.T) {
	result := &models.ResearchResult{
		Entities: []map[string]interface{}{
			{"address": "12 Alder Ln", "price": 410000.0, "square_feet": 1900.0},
		},
		Confidence: 0.95,
		SourceURLs: []string{"https://example.com/listings"},
	}
	deps, manager := testDeps(t, &stubResearch{result: result})
	// A collaborator missing at dispatch time must fail the one job, not
	// take down the process.
	deps.Decision = nil
	ctx := context.Background()

	now := time.Now().UTC()
	community := &models.Community{
		ID:        "community_1",
		Name:      "Willow Bend",
		City:      "Meridian",
		State:     "ID",
		Status:    models.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := manager.EntityStorage().SaveCommunity(ctx, community); err != nil {
		t.Fatal(err)
	}

	job := models.NewJob("job_1", models.EntityTypeHome, models.JobTypeInventory, 0)
	job.EntityID = "community_1"
	startRunning(t, manager, job)

	if err := NewHomeCollector(deps).Execute(ctx, job); err == nil {
		t.Fatal("expected execution error from contained panic")
	}

	got, err := manager.JobStorage().GetJob(ctx, "job_1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.JobStatusFailed {
		t.Fatalf("job status = %s, want failed", got.Status)
	}
	if !strings.Contains(got.ErrorMessage, "collector panic") {
		t.Errorf("error message = %q, want contained panic recorded", got.ErrorMessage)
	}
	if got.ItemsFound != 1 || got.NewEntitiesFound != 1 || got.ChangesDetected != 1 {
		t.Errorf("counts = %d/%d/%d, want partial progress 1/1/1",
			got.ItemsFound, got.NewEntitiesFound, got.ChangesDetected)
	}
}
