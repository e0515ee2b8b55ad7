// -----------------------------------------------------------------------
// Collector base - shared workflow steps for all entity variants
// -----------------------------------------------------------------------

package collectors

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/ternarybob/prospectus/internal/services/decision"
	"github.com/ternarybob/prospectus/internal/services/lifecycle"
	"github.com/ternarybob/prospectus/internal/services/resolver"
)

// Deps bundles the collaborators every collector variant shares.
type Deps struct {
	Storage  interfaces.StorageManager
	Research interfaces.ResearchService
	Resolver *resolver.Resolver
	Decision *decision.Service
	Tracker  *lifecycle.Tracker
	Logger   arbor.ILogger
}

// counters accumulates the aggregate numbers recorded on job completion.
type counters struct {
	ItemsFound  int
	NewEntities int
	Changes     int
}

// base carries the shared dependencies and workflow steps. Each variant
// embeds it and supplies the entity-specific collect function.
type base struct {
	deps Deps
}

// run executes one job inside the shared lifecycle: structured start log,
// panic containment, and terminal status bookkeeping. The collect function
// does the entity-specific work and fills the counters. The dispatcher has
// already marked the job running.
func (b *base) run(ctx context.Context, job *models.Job, collect func(ctx context.Context, job *models.Job, c *counters) error) (err error) {
	logger := b.deps.Logger
	logger.Info().
		Str("job_id", job.ID).
		Str("entity_type", string(job.EntityType)).
		Str("job_type", string(job.JobType)).
		Msg("Collection started")

	var c counters

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("collector panic: %v", r)
		}
		if err != nil {
			b.finishFailed(ctx, job, &c, err)
			return
		}
		b.finishCompleted(ctx, job, &c)
	}()

	err = collect(ctx, job, &c)
	return err
}

func (b *base) finishCompleted(ctx context.Context, job *models.Job, c *counters) {
	if err := job.MarkCompleted(c.ItemsFound, c.NewEntities, c.Changes); err != nil {
		b.deps.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("Cannot complete job")
		return
	}
	if err := b.deps.Storage.JobStorage().SaveJob(ctx, job); err != nil {
		b.deps.Logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist completed job")
		return
	}
	b.deps.Logger.Info().
		Str("job_id", job.ID).
		Int("items_found", c.ItemsFound).
		Int("new_entities", c.NewEntities).
		Int("changes", c.Changes).
		Msg("Collection completed")
}

func (b *base) finishFailed(ctx context.Context, job *models.Job, c *counters, cause error) {
	// Preserve partial counts alongside the failure.
	job.ItemsFound = c.ItemsFound
	job.NewEntitiesFound = c.NewEntities
	job.ChangesDetected = c.Changes

	if err := job.MarkFailed(cause.Error()); err != nil {
		b.deps.Logger.Warn().Err(err).Str("job_id", job.ID).Msg("Cannot fail job")
		return
	}
	if err := b.deps.Storage.JobStorage().SaveJob(ctx, job); err != nil {
		b.deps.Logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to persist failed job")
		return
	}
	b.deps.Logger.Warn().
		Str("job_id", job.ID).
		Str("error", cause.Error()).
		Msg("Collection failed")
}

// research issues the knowledge-service query for a job.
func (b *base) research(ctx context.Context, job *models.Job, name, location string) (*models.ResearchResult, error) {
	req := &interfaces.ResearchRequest{
		EntityType: job.EntityType,
		JobType:    job.JobType,
		Name:       name,
		Location:   location,
		Filters:    job.SearchFilters,
	}
	result, err := b.deps.Research.Research(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("knowledge service query failed: %w", err)
	}
	return result, nil
}

// diffFields compares the stored field map against the incoming attribute
// map and records one modified Change per differing, non-null field.
func (b *base) diffFields(ctx context.Context, job *models.Job, entityID string, stored map[string]interface{}, incoming map[string]interface{}, result *models.ResearchResult, c *counters) error {
	for field, oldValue := range stored {
		newValue, ok := incoming[field]
		if !ok || newValue == nil {
			continue
		}
		if isBlank(newValue) || equalValues(oldValue, newValue) {
			continue
		}

		change := models.NewFieldChange(common.NewChangeID(), job.EntityType, entityID, field, oldValue, newValue, result.Confidence, result.PrimarySource())
		change.JobID = job.ID

		if err := b.deps.Storage.ChangeStorage().SaveChange(ctx, change); err != nil {
			return fmt.Errorf("failed to record field change: %w", err)
		}
		c.Changes++

		b.routeChange(ctx, change)
	}
	return nil
}

// proposeEntity records an added Change for a resolved-as-new candidate and
// feeds it to the decision pipeline when the entity type is eligible.
func (b *base) proposeEntity(ctx context.Context, job *models.Job, proposed map[string]interface{}, result *models.ResearchResult, c *counters) (*models.Change, error) {
	change := models.NewEntityChange(common.NewChangeID(), job.EntityType, proposed, result.Confidence, result.PrimarySource())
	change.JobID = job.ID

	if err := b.deps.Storage.ChangeStorage().SaveChange(ctx, change); err != nil {
		return nil, fmt.Errorf("failed to record entity change: %w", err)
	}
	c.NewEntities++
	c.Changes++

	b.routeChange(ctx, change)
	return change, nil
}

// routeChange feeds home and builder changes through the decision engine.
// Community and agent changes stay pending for manual review.
func (b *base) routeChange(ctx context.Context, change *models.Change) {
	switch change.EntityType {
	case models.EntityTypeHome, models.EntityTypeBuilder:
		if _, err := b.deps.Decision.Process(ctx, change); err != nil {
			b.deps.Logger.Warn().
				Err(err).
				Str("change_id", change.ID).
				Msg("Decision processing failed, change left pending")
		}
	}
}

// recordMatch writes the audit row for one identity-resolution attempt.
func (b *base) recordMatch(ctx context.Context, job *models.Job, name string, data map[string]interface{}, res *resolver.Resolution) error {
	match := &models.EntityMatch{
		ID:             common.NewMatchID(),
		EntityType:     job.EntityType,
		DiscoveredName: name,
		DiscoveredData: data,
		JobID:          job.ID,
		CreatedAt:      time.Now().UTC(),
	}
	if res != nil {
		match.MatchedEntityID = res.MatchedID
		match.MatchConfidence = res.Confidence
		match.MatchMethod = res.Method
	}
	if err := b.deps.Storage.MatchStorage().SaveMatch(ctx, match); err != nil {
		return fmt.Errorf("failed to record entity match: %w", err)
	}
	return nil
}

// spawnJob enqueues a cascade job carrying lineage back-references.
func (b *base) spawnJob(ctx context.Context, parent *models.Job, entityType models.EntityType, jobType models.JobType, entityID, query string, filters map[string]interface{}) error {
	job := models.NewJob(common.NewJobID(), entityType, jobType, parent.Priority)
	job.EntityID = entityID
	job.SearchQuery = query
	job.SearchFilters = filters
	job.ParentEntityType = parent.EntityType
	job.ParentEntityID = firstNonEmpty(parent.EntityID, parent.ParentEntityID)

	if err := b.deps.Storage.JobStorage().SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to enqueue cascade job: %w", err)
	}
	b.deps.Logger.Info().
		Str("job_id", job.ID).
		Str("entity_type", string(entityType)).
		Str("job_type", string(jobType)).
		Str("parent_job_id", parent.ID).
		Msg("Cascade job enqueued")
	return nil
}

// markSeen refreshes the primary entity's last-seen signal. Best effort.
func (b *base) markSeen(ctx context.Context, category models.EntityType, entityID string) {
	if entityID == "" {
		return
	}
	if err := b.deps.Tracker.MarkSeen(ctx, category, entityID, time.Now().UTC()); err != nil {
		b.deps.Logger.Warn().
			Err(err).
			Str("entity_id", entityID).
			Msg("Failed to refresh last-seen signal")
	}
}

func isBlank(v interface{}) bool {
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// equalValues compares a stored field against a decoded JSON value. JSON
// numbers arrive as float64 regardless of the stored numeric type.
func equalValues(stored, incoming interface{}) bool {
	if f, ok := incoming.(float64); ok {
		switch s := stored.(type) {
		case int:
			return float64(s) == f
		case float64:
			return s == f
		}
	}
	return reflect.DeepEqual(stored, incoming)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func stringAttr(attrs map[string]interface{}, key string) string {
	if v, ok := attrs[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func stringListAttr(attrs map[string]interface{}, key string) []string {
	raw, ok := attrs[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
