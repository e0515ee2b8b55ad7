package models

import (
	"strings"
	"testing"
)

func TestJobTransitions(t *testing.T) {
	job := NewJob("job_1", EntityTypeBuilder, JobTypeDiscovery, 10)
	if job.Status != JobStatusPending {
		t.Fatalf("new job status = %s, want pending", job.Status)
	}

	if err := job.MarkRunning(); err != nil {
		t.Fatalf("MarkRunning: %v", err)
	}
	if job.StartedAt == nil {
		t.Fatal("MarkRunning did not stamp StartedAt")
	}

	if err := job.MarkCompleted(5, 2, 3); err != nil {
		t.Fatalf("MarkCompleted: %v", err)
	}
	if job.ItemsFound != 5 || job.NewEntitiesFound != 2 || job.ChangesDetected != 3 {
		t.Fatalf("counts not recorded: %+v", job)
	}
	if job.CompletedAt == nil {
		t.Fatal("MarkCompleted did not stamp CompletedAt")
	}
}

func TestJobTerminalStatesAreImmutable(t *testing.T) {
	job := NewJob("job_2", EntityTypeHome, JobTypeInventory, 0)
	job.EntityID = "cmy_1"
	if err := job.MarkRunning(); err != nil {
		t.Fatal(err)
	}
	if err := job.MarkFailed("upstream timeout"); err != nil {
		t.Fatal(err)
	}

	if err := job.MarkRunning(); err == nil {
		t.Error("failed job accepted MarkRunning")
	}
	if err := job.MarkCompleted(0, 0, 0); err == nil {
		t.Error("failed job accepted MarkCompleted")
	}
	if err := job.Requeue("note"); err == nil {
		t.Error("failed job accepted Requeue")
	}
}

func TestJobCannotCompleteFromPending(t *testing.T) {
	job := NewJob("job_3", EntityTypeAgent, JobTypeDiscovery, 0)
	job.EntityID = "bld_1"
	if err := job.MarkCompleted(1, 0, 0); err == nil {
		t.Fatal("pending job accepted MarkCompleted")
	}
	if err := job.MarkFailed("boom"); err == nil {
		t.Fatal("pending job accepted MarkFailed")
	}
}

func TestJobRequeueIsRunningOnly(t *testing.T) {
	job := NewJob("job_4", EntityTypeCommunity, JobTypeUpdate, 0)
	job.EntityID = "cmy_1"
	if err := job.Requeue("stale"); err == nil {
		t.Fatal("pending job accepted Requeue")
	}

	if err := job.MarkRunning(); err != nil {
		t.Fatal(err)
	}
	if err := job.Requeue("stale timeout exceeded"); err != nil {
		t.Fatalf("Requeue: %v", err)
	}
	if job.Status != JobStatusPending {
		t.Fatalf("requeued job status = %s, want pending", job.Status)
	}
	if job.StartedAt != nil {
		t.Fatal("Requeue did not clear StartedAt")
	}
}

func TestJobValidate(t *testing.T) {
	job := NewJob("job_5", EntityType("castle"), JobTypeDiscovery, 0)
	if err := job.Validate(); err == nil || !strings.Contains(err.Error(), "entity type") {
		t.Fatalf("Validate accepted unknown entity type: %v", err)
	}

	update := NewJob("job_6", EntityTypeBuilder, JobTypeUpdate, 0)
	if err := update.Validate(); err == nil {
		t.Fatal("Validate accepted update job with no entity reference")
	}
	update.EntityID = "bld_1"
	if err := update.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestChangeReviewOnce(t *testing.T) {
	change := NewEntityChange("chg_1", EntityTypeHome, map[string]interface{}{"address": "12 Oak Ln"}, 0.95, "https://example.com")
	if change.ReviewStatus != ReviewStatusPending {
		t.Fatalf("new change status = %s, want pending", change.ReviewStatus)
	}

	if err := change.MarkApproved(SystemReviewer, "confidence above threshold"); err != nil {
		t.Fatalf("MarkApproved: %v", err)
	}
	if err := change.MarkRejected("alice", "second opinion"); err == nil {
		t.Fatal("approved change accepted MarkRejected")
	}
	if err := change.MarkApproved("alice", "again"); err == nil {
		t.Fatal("approved change accepted second MarkApproved")
	}
}
