package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/prospectus/internal/models"
)

// StorageManager provides access to all storage interfaces
type StorageManager interface {
	JobStorage() JobStorage
	ChangeStorage() ChangeStorage
	EntityStorage() EntityStorage
	MatchStorage() MatchStorage
	HistoryStorage() HistoryStorage
	Close() error
}

// JobListOptions filters job listings.
type JobListOptions struct {
	Status     models.JobStatus
	EntityType models.EntityType
	Limit      int
	Offset     int
}

// JobStorage persists the durable job queue. The job store is the single
// source of truth for scheduling state.
type JobStorage interface {
	SaveJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	ListJobs(ctx context.Context, opts *JobListOptions) ([]*models.Job, error)

	// PendingJobs returns pending jobs ordered by priority descending then
	// creation time ascending, limited to limit.
	PendingJobs(ctx context.Context, limit int) ([]*models.Job, error)

	// StaleRunningJobs returns running jobs whose StartedAt is older than
	// cutoff with no completion timestamp.
	StaleRunningJobs(ctx context.Context, cutoff time.Time) ([]*models.Job, error)
}

// ChangeListOptions filters change listings.
type ChangeListOptions struct {
	ReviewStatus models.ReviewStatus
	EntityType   models.EntityType
	Limit        int
	Offset       int
}

// ChangeStorage persists the append-only change audit trail.
type ChangeStorage interface {
	SaveChange(ctx context.Context, change *models.Change) error
	GetChange(ctx context.Context, changeID string) (*models.Change, error)
	ListChanges(ctx context.Context, opts *ChangeListOptions) ([]*models.Change, error)
}

// BuilderFilter narrows builder candidate queries for identity resolution.
type BuilderFilter struct {
	CommunityID string // Only builders linked to this community
	State       string // Only builders declared or serving this state
}

// EntityStorage persists the domain entities.
type EntityStorage interface {
	SaveBuilder(ctx context.Context, builder *models.Builder) error
	GetBuilder(ctx context.Context, id string) (*models.Builder, error)
	ListBuilders(ctx context.Context, filter *BuilderFilter) ([]*models.Builder, error)

	SaveCommunity(ctx context.Context, community *models.Community) error
	GetCommunity(ctx context.Context, id string) (*models.Community, error)
	ListCommunities(ctx context.Context) ([]*models.Community, error)

	SaveHome(ctx context.Context, home *models.Home) error
	GetHome(ctx context.Context, id string) (*models.Home, error)
	HomesByCommunity(ctx context.Context, communityID string) ([]*models.Home, error)

	SaveAgent(ctx context.Context, agent *models.Agent) error
	GetAgent(ctx context.Context, id string) (*models.Agent, error)
	AgentsByBuilder(ctx context.Context, builderID string) ([]*models.Agent, error)
	ListAgents(ctx context.Context, status models.EntityStatus) ([]*models.Agent, error)
}

// MatchStorage persists identity-resolution audit records. Write-once.
type MatchStorage interface {
	SaveMatch(ctx context.Context, match *models.EntityMatch) error
	ListMatches(ctx context.Context, entityID string) ([]*models.EntityMatch, error)
}

// HistoryStorage persists the append-only status history log.
type HistoryStorage interface {
	AppendHistory(ctx context.Context, entry *models.StatusHistory) error
	ListHistory(ctx context.Context, entityID string) ([]*models.StatusHistory, error)
}
