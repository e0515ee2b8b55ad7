package collectors

import (
	"context"
	"fmt"

	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// HomeCollector handles inventory sweeps over a community and update jobs
// for an individual listing. Homes are the auto-processable category: new
// listings flow straight through the decision engine.
type HomeCollector struct {
	base
}

func NewHomeCollector(deps Deps) *HomeCollector {
	return &HomeCollector{base{deps: deps}}
}

func (hc *HomeCollector) EntityType() models.EntityType {
	return models.EntityTypeHome
}

func (hc *HomeCollector) Validate(job *models.Job) error {
	switch job.JobType {
	case models.JobTypeInventory:
		if job.EntityID == "" {
			return fmt.Errorf("home inventory requires a community id")
		}
	case models.JobTypeUpdate:
		if job.EntityID == "" {
			return fmt.Errorf("home update requires an entity id")
		}
	default:
		return fmt.Errorf("home collector does not handle %s jobs", job.JobType)
	}
	return nil
}

func (hc *HomeCollector) Execute(ctx context.Context, job *models.Job) error {
	return hc.run(ctx, job, func(ctx context.Context, job *models.Job, c *counters) error {
		if job.JobType == models.JobTypeUpdate {
			return hc.update(ctx, job, c)
		}
		return hc.inventory(ctx, job, c)
	})
}

func (hc *HomeCollector) update(ctx context.Context, job *models.Job, c *counters) error {
	home, err := hc.deps.Storage.EntityStorage().GetHome(ctx, job.EntityID)
	if err != nil {
		return fmt.Errorf("update job has no resolvable home %s: %w", job.EntityID, err)
	}

	result, err := hc.research(ctx, job, home.Address, "")
	if err != nil {
		return err
	}
	c.ItemsFound = 1

	if err := hc.diffFields(ctx, job, home.ID, home.FieldMap(), result.Attributes, result, c); err != nil {
		return err
	}

	hc.markSeen(ctx, models.EntityTypeHome, home.ID)
	return nil
}

// inventory enumerates a community's listings: known addresses are diffed
// and refreshed, unknown ones are proposed, and stored listings absent from
// the sweep get a removed change for review.
func (hc *HomeCollector) inventory(ctx context.Context, job *models.Job, c *counters) error {
	community, err := hc.deps.Storage.EntityStorage().GetCommunity(ctx, job.EntityID)
	if err != nil {
		return fmt.Errorf("inventory job has no resolvable community %s: %w", job.EntityID, err)
	}

	result, err := hc.research(ctx, job, community.Name, locationOf(community.City, community.State))
	if err != nil {
		return err
	}

	stored, err := hc.deps.Storage.EntityStorage().HomesByCommunity(ctx, community.ID)
	if err != nil {
		return fmt.Errorf("failed to load community inventory: %w", err)
	}

	seen := make(map[string]bool, len(result.Entities))
	for _, attrs := range result.Entities {
		address := stringAttr(attrs, "address")
		if address == "" {
			continue
		}
		c.ItemsFound++
		seen[common.NormalizeName(address)] = true

		existing := findHome(stored, address)
		if existing != nil {
			if err := hc.diffFields(ctx, job, existing.ID, existing.FieldMap(), attrs, result, c); err != nil {
				return err
			}
			hc.markSeen(ctx, models.EntityTypeHome, existing.ID)
			continue
		}

		attrs["community_id"] = community.ID
		if builderID := stringAttr(job.SearchFilters, "builder_id"); builderID != "" {
			attrs["builder_id"] = builderID
		}
		if _, err := hc.proposeEntity(ctx, job, attrs, result, c); err != nil {
			return err
		}
	}

	for _, home := range stored {
		if seen[common.NormalizeName(home.Address)] || home.Status != models.StatusAvailable {
			continue
		}
		change := models.NewRemovedChange(common.NewChangeID(), models.EntityTypeHome, home.ID, result.Confidence, result.PrimarySource())
		change.JobID = job.ID
		if err := hc.deps.Storage.ChangeStorage().SaveChange(ctx, change); err != nil {
			return fmt.Errorf("failed to record removed listing: %w", err)
		}
		c.Changes++
	}

	if err := hc.refreshAvailability(ctx, community, stored); err != nil {
		return err
	}

	hc.markSeen(ctx, models.EntityTypeCommunity, community.ID)
	return nil
}

// refreshAvailability recounts unit totals from the stored listings and
// reapplies the community's availability tier. Proposed listings do not
// count until approved.
func (hc *HomeCollector) refreshAvailability(ctx context.Context, community *models.Community, stored []*models.Home) error {
	if len(stored) == 0 {
		return nil
	}

	available, sold := 0, 0
	for _, home := range stored {
		switch home.Status {
		case models.StatusAvailable:
			available++
		case models.StatusSold:
			sold++
		}
	}

	community.TotalUnits = len(stored)
	community.AvailableUnits = available
	community.SoldUnits = sold
	if err := hc.deps.Storage.EntityStorage().SaveCommunity(ctx, community); err != nil {
		return fmt.Errorf("failed to persist inventory counts: %w", err)
	}

	if _, err := hc.deps.Tracker.ApplyDerivedAvailability(ctx, community, models.SystemReviewer); err != nil {
		return fmt.Errorf("failed to refresh community availability: %w", err)
	}
	return nil
}

func findHome(stored []*models.Home, address string) *models.Home {
	norm := common.NormalizeName(address)
	for _, home := range stored {
		if common.NormalizeName(home.Address) == norm {
			return home
		}
	}
	return nil
}

var _ interfaces.Collector = (*HomeCollector)(nil)
