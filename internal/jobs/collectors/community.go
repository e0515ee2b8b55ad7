package collectors

import (
	"context"
	"fmt"

	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// CommunityCollector handles discovery and update jobs for developments.
// Community changes are never auto-processed, they queue for manual review.
type CommunityCollector struct {
	base
}

func NewCommunityCollector(deps Deps) *CommunityCollector {
	return &CommunityCollector{base{deps: deps}}
}

func (cc *CommunityCollector) EntityType() models.EntityType {
	return models.EntityTypeCommunity
}

func (cc *CommunityCollector) Validate(job *models.Job) error {
	switch job.JobType {
	case models.JobTypeDiscovery:
		if job.SearchQuery == "" {
			return fmt.Errorf("community discovery requires a search query")
		}
	case models.JobTypeUpdate:
		if job.EntityID == "" {
			return fmt.Errorf("community update requires an entity id")
		}
	default:
		return fmt.Errorf("community collector does not handle %s jobs", job.JobType)
	}
	return nil
}

func (cc *CommunityCollector) Execute(ctx context.Context, job *models.Job) error {
	return cc.run(ctx, job, func(ctx context.Context, job *models.Job, c *counters) error {
		if job.JobType == models.JobTypeUpdate {
			return cc.update(ctx, job, c)
		}
		return cc.discover(ctx, job, c)
	})
}

func (cc *CommunityCollector) update(ctx context.Context, job *models.Job, c *counters) error {
	community, err := cc.deps.Storage.EntityStorage().GetCommunity(ctx, job.EntityID)
	if err != nil {
		return fmt.Errorf("update job has no resolvable community %s: %w", job.EntityID, err)
	}

	result, err := cc.research(ctx, job, community.Name, locationOf(community.City, community.State))
	if err != nil {
		return err
	}
	c.ItemsFound = 1

	if err := cc.diffFields(ctx, job, community.ID, community.FieldMap(), result.Attributes, result, c); err != nil {
		return err
	}

	if _, err := cc.deps.Tracker.ApplyDerivedAvailability(ctx, community, models.SystemReviewer); err != nil {
		return err
	}

	if err := cc.cascadeBuilders(ctx, job, community.ID, result.Builders); err != nil {
		return err
	}

	cc.markSeen(ctx, models.EntityTypeCommunity, community.ID)
	return nil
}

func (cc *CommunityCollector) discover(ctx context.Context, job *models.Job, c *counters) error {
	result, err := cc.research(ctx, job, job.SearchQuery, stringAttr(job.SearchFilters, "location"))
	if err != nil {
		return err
	}

	existing, err := cc.deps.Storage.EntityStorage().ListCommunities(ctx)
	if err != nil {
		return fmt.Errorf("failed to load existing communities: %w", err)
	}

	// Lineage for the builder cascade: the first community matched to an
	// existing record, if any.
	lineageID := ""

	for _, attrs := range discoveredEntities(result) {
		name := stringAttr(attrs, "name")
		if name == "" {
			continue
		}
		c.ItemsFound++

		match := findCommunity(existing, name, stringAttr(attrs, "city"), stringAttr(attrs, "state"))
		if match != nil {
			cc.markSeen(ctx, models.EntityTypeCommunity, match.ID)
			if lineageID == "" {
				lineageID = match.ID
			}
			continue
		}

		if _, err := cc.proposeEntity(ctx, job, attrs, result, c); err != nil {
			return err
		}
	}

	return cc.cascadeBuilders(ctx, job, lineageID, result.Builders)
}

// cascadeBuilders spawns one builder-discovery job per organization the
// response mentioned.
func (cc *CommunityCollector) cascadeBuilders(ctx context.Context, job *models.Job, communityID string, builders []string) error {
	for _, name := range builders {
		if name == "" {
			continue
		}
		cascade := models.NewJob(common.NewJobID(), models.EntityTypeBuilder, models.JobTypeDiscovery, job.Priority)
		cascade.SearchQuery = name
		cascade.ParentEntityType = models.EntityTypeCommunity
		cascade.ParentEntityID = communityID

		if err := cc.deps.Storage.JobStorage().SaveJob(ctx, cascade); err != nil {
			return fmt.Errorf("failed to enqueue builder discovery for %q: %w", name, err)
		}
		cc.deps.Logger.Info().
			Str("job_id", cascade.ID).
			Str("builder_name", name).
			Str("parent_job_id", job.ID).
			Msg("Cascade job enqueued")
	}
	return nil
}

// findCommunity matches on normalized name plus city and state.
func findCommunity(existing []*models.Community, name, city, state string) *models.Community {
	normName := common.NormalizeName(name)
	normCity := common.NormalizeLocation(city)
	normState := common.NormalizeLocation(state)

	for _, community := range existing {
		if common.NormalizeName(community.Name) != normName {
			continue
		}
		if common.NormalizeLocation(community.City) == normCity && common.NormalizeLocation(community.State) == normState {
			return community
		}
	}
	return nil
}

var _ interfaces.Collector = (*CommunityCollector)(nil)
