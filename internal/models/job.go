// -----------------------------------------------------------------------
// Job - Durable unit of scheduled collection work
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"time"
)

// EntityType classifies the domain entity a job or change targets.
type EntityType string

const (
	EntityTypeBuilder   EntityType = "builder"
	EntityTypeCommunity EntityType = "community"
	EntityTypeHome      EntityType = "home"
	EntityTypeAgent     EntityType = "agent"
)

// EntityTypes lists all entity categories in dispatch order.
var EntityTypes = []EntityType{EntityTypeBuilder, EntityTypeCommunity, EntityTypeHome, EntityTypeAgent}

// Valid returns true for a known entity type.
func (t EntityType) Valid() bool {
	switch t {
	case EntityTypeBuilder, EntityTypeCommunity, EntityTypeHome, EntityTypeAgent:
		return true
	}
	return false
}

// JobType classifies the kind of collection work.
type JobType string

const (
	JobTypeDiscovery JobType = "discovery" // Find new entities matching a search query
	JobTypeUpdate    JobType = "update"    // Refresh an existing entity's tracked fields
	JobTypeInventory JobType = "inventory" // Enumerate homes for a community or builder
)

// Valid returns true for a known job type.
func (t JobType) Valid() bool {
	switch t {
	case JobTypeDiscovery, JobTypeUpdate, JobTypeInventory:
		return true
	}
	return false
}

// JobStatus represents the scheduling state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Job is one unit of scheduled work to collect or update data for one
// entity. Jobs are created by collector workflows (cascades) or by the
// admin trigger surface; the dispatcher moves them pending -> running and
// the owning collector moves them to a terminal state. Terminal states are
// immutable.
type Job struct {
	ID string `json:"id" badgerhold:"key"`

	EntityType EntityType `json:"entity_type"`
	JobType    JobType    `json:"job_type"`
	Status     JobStatus  `json:"status"`
	Priority   int        `json:"priority"`

	// EntityID references an existing record for update/inventory jobs.
	EntityID string `json:"entity_id,omitempty"`

	// Cascade lineage. Weak back-references for audit, not ownership.
	ParentEntityType EntityType `json:"parent_entity_type,omitempty"`
	ParentEntityID   string     `json:"parent_entity_id,omitempty"`

	SearchQuery   string                 `json:"search_query,omitempty"`
	SearchFilters map[string]interface{} `json:"search_filters,omitempty"`

	// Aggregate counts recorded on completion.
	ItemsFound       int `json:"items_found"`
	NewEntitiesFound int `json:"new_entities_found"`
	ChangesDetected  int `json:"changes_detected"`

	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a pending job.
func NewJob(id string, entityType EntityType, jobType JobType, priority int) *Job {
	return &Job{
		ID:         id,
		EntityType: entityType,
		JobType:    jobType,
		Status:     JobStatusPending,
		Priority:   priority,
		CreatedAt:  time.Now().UTC(),
	}
}

// jobTransitions is the legal status transition table. Terminal states have
// no outgoing edges.
var jobTransitions = map[JobStatus][]JobStatus{
	JobStatusPending: {JobStatusRunning},
	JobStatusRunning: {JobStatusCompleted, JobStatusFailed, JobStatusPending},
}

// canTransition reports whether the status move is legal. running -> pending
// exists only for stale-job requeue.
func (j *Job) canTransition(to JobStatus) bool {
	for _, allowed := range jobTransitions[j.Status] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// MarkRunning transitions the job pending -> running and stamps StartedAt.
func (j *Job) MarkRunning() error {
	if !j.canTransition(JobStatusRunning) {
		return fmt.Errorf("job %s: illegal status transition %s -> %s", j.ID, j.Status, JobStatusRunning)
	}
	j.Status = JobStatusRunning
	now := time.Now().UTC()
	j.StartedAt = &now
	return nil
}

// MarkCompleted transitions the job running -> completed with aggregate counts.
func (j *Job) MarkCompleted(itemsFound, newEntities, changes int) error {
	if !j.canTransition(JobStatusCompleted) {
		return fmt.Errorf("job %s: illegal status transition %s -> %s", j.ID, j.Status, JobStatusCompleted)
	}
	j.Status = JobStatusCompleted
	j.ItemsFound = itemsFound
	j.NewEntitiesFound = newEntities
	j.ChangesDetected = changes
	now := time.Now().UTC()
	j.CompletedAt = &now
	return nil
}

// MarkFailed transitions the job running -> failed with the error message.
// Partial counts already recorded on the job are preserved.
func (j *Job) MarkFailed(errorMsg string) error {
	if !j.canTransition(JobStatusFailed) {
		return fmt.Errorf("job %s: illegal status transition %s -> %s", j.ID, j.Status, JobStatusFailed)
	}
	j.Status = JobStatusFailed
	j.ErrorMessage = errorMsg
	now := time.Now().UTC()
	j.CompletedAt = &now
	return nil
}

// Requeue resets a stale running job back to pending, noting the requeue.
// Used only by the dispatcher's crash-recovery policy.
func (j *Job) Requeue(note string) error {
	if !j.canTransition(JobStatusPending) {
		return fmt.Errorf("job %s: illegal status transition %s -> %s", j.ID, j.Status, JobStatusPending)
	}
	j.Status = JobStatusPending
	j.StartedAt = nil
	j.ErrorMessage = note
	return nil
}

// Validate validates the job.
func (j *Job) Validate() error {
	if j.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if !j.EntityType.Valid() {
		return fmt.Errorf("unknown entity type %q", j.EntityType)
	}
	if !j.JobType.Valid() {
		return fmt.Errorf("unknown job type %q", j.JobType)
	}
	if j.JobType != JobTypeDiscovery && j.EntityID == "" && j.ParentEntityID == "" {
		return fmt.Errorf("%s job requires an entity or parent reference", j.JobType)
	}
	return nil
}
