package badger

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// EntityStorage implements the EntityStorage interface for Badger
type EntityStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewEntityStorage creates a new EntityStorage instance
func NewEntityStorage(db *BadgerDB, logger arbor.ILogger) interfaces.EntityStorage {
	return &EntityStorage{
		db:     db,
		logger: logger,
	}
}

func (s *EntityStorage) SaveBuilder(ctx context.Context, builder *models.Builder) error {
	if builder.ID == "" {
		return fmt.Errorf("builder ID is required")
	}
	return WithRetry(ctx, s.logger, "save builder", func() error {
		return s.db.Store().Upsert(builder.ID, builder)
	})
}

func (s *EntityStorage) GetBuilder(ctx context.Context, id string) (*models.Builder, error) {
	var builder models.Builder
	if err := s.db.Store().Get(id, &builder); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("builder not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get builder: %w", err)
	}
	return &builder, nil
}

// ListBuilders returns builders matching the filter. The state filter
// matches either the declared state or any service area mentioning it.
func (s *EntityStorage) ListBuilders(ctx context.Context, filter *interfaces.BuilderFilter) ([]*models.Builder, error) {
	var builders []models.Builder
	query := badgerhold.Where("ID").Ne("")
	if filter != nil && filter.CommunityID != "" {
		query = query.And("CommunityIDs").Contains(filter.CommunityID)
	}
	if err := s.db.Store().Find(&builders, query); err != nil {
		return nil, fmt.Errorf("failed to list builders: %w", err)
	}

	result := make([]*models.Builder, 0, len(builders))
	for i := range builders {
		builder := &builders[i]
		if filter != nil && filter.State != "" && !builderServesState(builder, filter.State) {
			continue
		}
		result = append(result, builder)
	}
	return result, nil
}

func builderServesState(builder *models.Builder, state string) bool {
	state = strings.ToLower(strings.TrimSpace(state))
	if strings.ToLower(builder.State) == state {
		return true
	}
	for _, area := range builder.ServiceAreas {
		if strings.Contains(strings.ToLower(area), state) {
			return true
		}
	}
	return false
}

func (s *EntityStorage) SaveCommunity(ctx context.Context, community *models.Community) error {
	if community.ID == "" {
		return fmt.Errorf("community ID is required")
	}
	return WithRetry(ctx, s.logger, "save community", func() error {
		return s.db.Store().Upsert(community.ID, community)
	})
}

func (s *EntityStorage) GetCommunity(ctx context.Context, id string) (*models.Community, error) {
	var community models.Community
	if err := s.db.Store().Get(id, &community); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("community not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get community: %w", err)
	}
	return &community, nil
}

func (s *EntityStorage) ListCommunities(ctx context.Context) ([]*models.Community, error) {
	var communities []models.Community
	if err := s.db.Store().Find(&communities, badgerhold.Where("ID").Ne("").SortBy("CreatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list communities: %w", err)
	}
	result := make([]*models.Community, len(communities))
	for i := range communities {
		result[i] = &communities[i]
	}
	return result, nil
}

func (s *EntityStorage) SaveHome(ctx context.Context, home *models.Home) error {
	if home.ID == "" {
		return fmt.Errorf("home ID is required")
	}
	return WithRetry(ctx, s.logger, "save home", func() error {
		return s.db.Store().Upsert(home.ID, home)
	})
}

func (s *EntityStorage) GetHome(ctx context.Context, id string) (*models.Home, error) {
	var home models.Home
	if err := s.db.Store().Get(id, &home); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("home not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get home: %w", err)
	}
	return &home, nil
}

func (s *EntityStorage) HomesByCommunity(ctx context.Context, communityID string) ([]*models.Home, error) {
	var homes []models.Home
	if err := s.db.Store().Find(&homes, badgerhold.Where("CommunityID").Eq(communityID)); err != nil {
		return nil, fmt.Errorf("failed to query homes: %w", err)
	}
	result := make([]*models.Home, len(homes))
	for i := range homes {
		result[i] = &homes[i]
	}
	return result, nil
}

func (s *EntityStorage) SaveAgent(ctx context.Context, agent *models.Agent) error {
	if agent.ID == "" {
		return fmt.Errorf("agent ID is required")
	}
	return WithRetry(ctx, s.logger, "save agent", func() error {
		return s.db.Store().Upsert(agent.ID, agent)
	})
}

func (s *EntityStorage) GetAgent(ctx context.Context, id string) (*models.Agent, error) {
	var agent models.Agent
	if err := s.db.Store().Get(id, &agent); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("agent not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return &agent, nil
}

func (s *EntityStorage) AgentsByBuilder(ctx context.Context, builderID string) ([]*models.Agent, error) {
	var agents []models.Agent
	if err := s.db.Store().Find(&agents, badgerhold.Where("BuilderID").Eq(builderID)); err != nil {
		return nil, fmt.Errorf("failed to query agents: %w", err)
	}
	result := make([]*models.Agent, len(agents))
	for i := range agents {
		result[i] = &agents[i]
	}
	return result, nil
}

func (s *EntityStorage) ListAgents(ctx context.Context, status models.EntityStatus) ([]*models.Agent, error) {
	query := badgerhold.Where("ID").Ne("")
	if status != "" {
		query = query.And("Status").Eq(status)
	}
	var agents []models.Agent
	if err := s.db.Store().Find(&agents, query); err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	result := make([]*models.Agent, len(agents))
	for i := range agents {
		result[i] = &agents[i]
	}
	return result, nil
}
