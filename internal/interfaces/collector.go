package interfaces

import (
	"context"

	"github.com/ternarybob/prospectus/internal/models"
)

// Collector is a per-entity-type workflow executed for one claimed job.
// The dispatcher routes jobs to collectors by entity type. Execute owns the
// job's terminal status: it must leave the job completed or failed and must
// never panic through to the dispatcher loop.
type Collector interface {
	// EntityType returns the entity category this collector handles.
	EntityType() models.EntityType

	// Validate checks that the job is executable by this collector.
	// Called by the dispatcher before claiming a slot.
	Validate(job *models.Job) error

	// Execute runs the collection workflow for one job.
	Execute(ctx context.Context, job *models.Job) error
}

// Notifier delivers decision-pipeline events to the notification sink.
// Implementations log delivery failures and never return them: notification
// problems must not fail the originating job.
type Notifier interface {
	Notify(ctx context.Context, event *models.NotificationEvent)
}
