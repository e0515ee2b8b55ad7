package collectors

import (
	"context"
	"fmt"

	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// AgentCollector handles discovery of sales representatives for a builder
// and update jobs for an individual agent. Agent changes always queue for
// manual review.
type AgentCollector struct {
	base
}

func NewAgentCollector(deps Deps) *AgentCollector {
	return &AgentCollector{base{deps: deps}}
}

func (ac *AgentCollector) EntityType() models.EntityType {
	return models.EntityTypeAgent
}

func (ac *AgentCollector) Validate(job *models.Job) error {
	switch job.JobType {
	case models.JobTypeDiscovery:
		if job.EntityID == "" {
			return fmt.Errorf("agent discovery requires a builder id")
		}
	case models.JobTypeUpdate:
		if job.EntityID == "" {
			return fmt.Errorf("agent update requires an entity id")
		}
	default:
		return fmt.Errorf("agent collector does not handle %s jobs", job.JobType)
	}
	return nil
}

func (ac *AgentCollector) Execute(ctx context.Context, job *models.Job) error {
	return ac.run(ctx, job, func(ctx context.Context, job *models.Job, c *counters) error {
		if job.JobType == models.JobTypeUpdate {
			return ac.update(ctx, job, c)
		}
		return ac.discover(ctx, job, c)
	})
}

func (ac *AgentCollector) update(ctx context.Context, job *models.Job, c *counters) error {
	agent, err := ac.deps.Storage.EntityStorage().GetAgent(ctx, job.EntityID)
	if err != nil {
		return fmt.Errorf("update job has no resolvable agent %s: %w", job.EntityID, err)
	}

	result, err := ac.research(ctx, job, agent.Name, "")
	if err != nil {
		return err
	}
	c.ItemsFound = 1

	if err := ac.diffFields(ctx, job, agent.ID, agent.FieldMap(), result.Attributes, result, c); err != nil {
		return err
	}

	ac.markSeen(ctx, models.EntityTypeAgent, agent.ID)
	return nil
}

func (ac *AgentCollector) discover(ctx context.Context, job *models.Job, c *counters) error {
	builder, err := ac.deps.Storage.EntityStorage().GetBuilder(ctx, job.EntityID)
	if err != nil {
		return fmt.Errorf("discovery job has no resolvable builder %s: %w", job.EntityID, err)
	}

	result, err := ac.research(ctx, job, builder.Name, locationOf(builder.City, builder.State))
	if err != nil {
		return err
	}

	roster, err := ac.deps.Storage.EntityStorage().AgentsByBuilder(ctx, builder.ID)
	if err != nil {
		return fmt.Errorf("failed to load agent roster: %w", err)
	}

	for _, attrs := range discoveredEntities(result) {
		name := stringAttr(attrs, "name")
		if name == "" {
			continue
		}
		c.ItemsFound++

		existing := findAgent(roster, name, stringAttr(attrs, "email"), stringAttr(attrs, "phone"))
		if existing != nil {
			if err := ac.diffFields(ctx, job, existing.ID, existing.FieldMap(), attrs, result, c); err != nil {
				return err
			}
			ac.markSeen(ctx, models.EntityTypeAgent, existing.ID)
			continue
		}

		attrs["builder_id"] = builder.ID
		if _, err := ac.proposeEntity(ctx, job, attrs, result, c); err != nil {
			return err
		}
	}

	ac.markSeen(ctx, models.EntityTypeBuilder, builder.ID)
	return nil
}

// findAgent matches by normalized email, then phone, then name.
func findAgent(roster []*models.Agent, name, email, phone string) *models.Agent {
	normEmail := common.NormalizeEmail(email)
	normPhone := common.NormalizePhone(phone)
	normName := common.NormalizeName(name)

	for _, agent := range roster {
		if normEmail != "" && common.NormalizeEmail(agent.Email) == normEmail {
			return agent
		}
		if normPhone != "" && common.NormalizePhone(agent.Phone) == normPhone {
			return agent
		}
		if common.NormalizeName(agent.Name) == normName {
			return agent
		}
	}
	return nil
}

var _ interfaces.Collector = (*AgentCollector)(nil)
