package collectors

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/ternarybob/prospectus/internal/services/resolver"
)

// BuilderCollector handles discovery and update jobs for builder
// organizations. Discovered candidates pass through the identity resolver
// before any change is proposed.
type BuilderCollector struct {
	base
}

func NewBuilderCollector(deps Deps) *BuilderCollector {
	return &BuilderCollector{base{deps: deps}}
}

func (bc *BuilderCollector) EntityType() models.EntityType {
	return models.EntityTypeBuilder
}

func (bc *BuilderCollector) Validate(job *models.Job) error {
	switch job.JobType {
	case models.JobTypeDiscovery:
		if job.SearchQuery == "" {
			return fmt.Errorf("builder discovery requires a search query")
		}
	case models.JobTypeUpdate:
		if job.EntityID == "" {
			return fmt.Errorf("builder update requires an entity id")
		}
	default:
		return fmt.Errorf("builder collector does not handle %s jobs", job.JobType)
	}
	return nil
}

func (bc *BuilderCollector) Execute(ctx context.Context, job *models.Job) error {
	return bc.run(ctx, job, func(ctx context.Context, job *models.Job, c *counters) error {
		if job.JobType == models.JobTypeUpdate {
			return bc.update(ctx, job, c)
		}
		return bc.discover(ctx, job, c)
	})
}

func (bc *BuilderCollector) update(ctx context.Context, job *models.Job, c *counters) error {
	builder, err := bc.deps.Storage.EntityStorage().GetBuilder(ctx, job.EntityID)
	if err != nil {
		return fmt.Errorf("update job has no resolvable builder %s: %w", job.EntityID, err)
	}

	result, err := bc.research(ctx, job, builder.Name, locationOf(builder.City, builder.State))
	if err != nil {
		return err
	}
	c.ItemsFound = 1

	if err := bc.diffFields(ctx, job, builder.ID, builder.FieldMap(), result.Attributes, result, c); err != nil {
		return err
	}

	if err := bc.cascade(ctx, job, builder); err != nil {
		return err
	}

	bc.markSeen(ctx, models.EntityTypeBuilder, builder.ID)
	return nil
}

func (bc *BuilderCollector) discover(ctx context.Context, job *models.Job, c *counters) error {
	result, err := bc.research(ctx, job, job.SearchQuery, stringAttr(job.SearchFilters, "location"))
	if err != nil {
		return err
	}

	for _, attrs := range discoveredEntities(result) {
		name := stringAttr(attrs, "name")
		if name == "" {
			continue
		}
		c.ItemsFound++

		candidate := &resolver.Candidate{
			Name:         name,
			Website:      stringAttr(attrs, "website"),
			Email:        stringAttr(attrs, "email"),
			Phone:        stringAttr(attrs, "phone"),
			City:         stringAttr(attrs, "city"),
			State:        stringAttr(attrs, "state"),
			ServiceAreas: stringListAttr(attrs, "service_areas"),
		}
		if job.ParentEntityType == models.EntityTypeCommunity {
			candidate.ParentCommunityID = job.ParentEntityID
		}

		res, err := bc.deps.Resolver.Resolve(ctx, candidate)
		if err != nil {
			return fmt.Errorf("identity resolution failed for %q: %w", name, err)
		}

		if err := bc.recordMatch(ctx, job, name, attrs, res); err != nil {
			return err
		}

		if res != nil {
			// Known builder. Refresh its presence and cascade, no change
			// is proposed.
			matched, err := bc.deps.Storage.EntityStorage().GetBuilder(ctx, res.MatchedID)
			if err != nil {
				return fmt.Errorf("matched builder %s missing: %w", res.MatchedID, err)
			}
			if candidate.ParentCommunityID != "" && !matched.LinkedToCommunity(candidate.ParentCommunityID) {
				matched.CommunityIDs = append(matched.CommunityIDs, candidate.ParentCommunityID)
				if err := bc.deps.Storage.EntityStorage().SaveBuilder(ctx, matched); err != nil {
					return fmt.Errorf("failed to link builder to community: %w", err)
				}
			}
			bc.markSeen(ctx, models.EntityTypeBuilder, matched.ID)
			if err := bc.cascade(ctx, job, matched); err != nil {
				return err
			}
			continue
		}

		if _, err := bc.proposeEntity(ctx, job, attrs, result, c); err != nil {
			return err
		}
	}
	return nil
}

// cascade spawns the follow-on jobs a builder touch always produces: an
// agent-discovery sweep and, when the builder has location context, a home
// inventory sweep.
func (bc *BuilderCollector) cascade(ctx context.Context, job *models.Job, builder *models.Builder) error {
	if err := bc.spawnJob(ctx, job, models.EntityTypeAgent, models.JobTypeDiscovery, builder.ID, builder.Name, nil); err != nil {
		return err
	}

	if builder.City != "" || builder.State != "" || len(builder.ServiceAreas) > 0 {
		filters := map[string]interface{}{"builder_id": builder.ID}
		for _, communityID := range builder.CommunityIDs {
			if err := bc.spawnJob(ctx, job, models.EntityTypeHome, models.JobTypeInventory, communityID, builder.Name, filters); err != nil {
				return err
			}
		}
	}
	return nil
}

// discoveredEntities flattens the two result shapes into one list.
func discoveredEntities(result *models.ResearchResult) []map[string]interface{} {
	if len(result.Entities) > 0 {
		return result.Entities
	}
	if len(result.Attributes) > 0 {
		return []map[string]interface{}{result.Attributes}
	}
	return nil
}

func locationOf(city, state string) string {
	parts := make([]string, 0, 2)
	if city != "" {
		parts = append(parts, city)
	}
	if state != "" {
		parts = append(parts, state)
	}
	return strings.Join(parts, ", ")
}

var _ interfaces.Collector = (*BuilderCollector)(nil)
