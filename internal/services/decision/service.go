package decision

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// Service applies decision outcomes: approving materializes the proposed
// entity, denying records the rejection reason, and every outcome emits a
// notification.
type Service struct {
	engine   *Engine
	storage  interfaces.StorageManager
	notifier interfaces.Notifier
	logger   arbor.ILogger
}

// NewService creates a decision service.
func NewService(engine *Engine, storage interfaces.StorageManager, notifier interfaces.Notifier, logger arbor.ILogger) *Service {
	return &Service{
		engine:   engine,
		storage:  storage,
		notifier: notifier,
		logger:   logger,
	}
}

// Engine exposes the pure classifier, mainly for the admin surface.
func (s *Service) Engine() *Engine {
	return s.engine
}

// Process classifies a change and applies the outcome. The returned outcome
// reflects what was recorded.
func (s *Service) Process(ctx context.Context, change *models.Change) (Outcome, error) {
	outcome := s.engine.Decide(change)

	switch outcome.Verdict {
	case VerdictApprove:
		if err := s.approve(ctx, change, models.SystemReviewer, outcome.Reason); err != nil {
			return outcome, err
		}
	case VerdictDeny:
		if err := change.MarkRejected(models.SystemReviewer, outcome.Reason); err != nil {
			return outcome, err
		}
		if err := s.storage.ChangeStorage().SaveChange(ctx, change); err != nil {
			return outcome, fmt.Errorf("failed to record rejection: %w", err)
		}
		s.notify(ctx, models.NotificationAutoDenied, change, outcome.Reason)
	case VerdictReview:
		// Change stays pending for a human reviewer.
		s.notify(ctx, models.NotificationReviewRequired, change, outcome.Reason)
	}

	s.logger.Info().
		Str("change_id", change.ID).
		Str("entity_type", string(change.EntityType)).
		Str("verdict", string(outcome.Verdict)).
		Float64("confidence", change.Confidence).
		Msg("Decision recorded for change")

	return outcome, nil
}

// ApproveManually applies a human reviewer's approval to a pending change,
// materializing it the same way auto-approval does.
func (s *Service) ApproveManually(ctx context.Context, change *models.Change, reviewer, reason string) error {
	if reviewer == "" || reviewer == models.SystemReviewer {
		return fmt.Errorf("manual approval requires a named reviewer")
	}
	return s.approve(ctx, change, reviewer, reason)
}

// RejectManually applies a human reviewer's rejection to a pending change.
func (s *Service) RejectManually(ctx context.Context, change *models.Change, reviewer, reason string) error {
	if reviewer == "" || reviewer == models.SystemReviewer {
		return fmt.Errorf("manual rejection requires a named reviewer")
	}
	if err := change.MarkRejected(reviewer, reason); err != nil {
		return err
	}
	return s.storage.ChangeStorage().SaveChange(ctx, change)
}

// approve materializes the proposed entity and stamps the change approved.
func (s *Service) approve(ctx context.Context, change *models.Change, reviewer, reason string) error {
	if change.IsNewEntity {
		if _, err := s.materialize(ctx, change, reviewer); err != nil {
			return err
		}
	} else if change.FieldName != "" {
		if err := s.applyFieldChange(ctx, change); err != nil {
			return err
		}
	}

	if err := change.MarkApproved(reviewer, reason); err != nil {
		return err
	}
	if err := s.storage.ChangeStorage().SaveChange(ctx, change); err != nil {
		return fmt.Errorf("failed to record approval: %w", err)
	}

	if reviewer == models.SystemReviewer {
		s.notify(ctx, models.NotificationAutoApproved, change, reason)
	}
	return nil
}

// materialize creates the entity described by the change's proposed data.
// Homes reach here from auto-approval; the other categories only through a
// named reviewer.
func (s *Service) materialize(ctx context.Context, change *models.Change, approver string) (string, error) {
	switch change.EntityType {
	case models.EntityTypeHome:
		return s.materializeHome(ctx, change, approver)
	case models.EntityTypeBuilder:
		return s.materializeBuilder(ctx, change, approver)
	case models.EntityTypeCommunity:
		return s.materializeCommunity(ctx, change, approver)
	case models.EntityTypeAgent:
		return s.materializeAgent(ctx, change, approver)
	default:
		return "", fmt.Errorf("cannot materialize %s changes", change.EntityType)
	}
}

func (s *Service) materializeHome(ctx context.Context, change *models.Change, approver string) (string, error) {
	proposed, err := models.DecodeProposedHome(change.ProposedEntityData)
	if err != nil {
		return "", fmt.Errorf("proposed entity data failed validation: %w", err)
	}

	now := time.Now().UTC()
	home := &models.Home{
		ID:         common.NewEntityID("home"),
		Address:    proposed.Address,
		Plan:       proposed.Plan,
		Price:      proposed.Price,
		SquareFeet: proposed.SquareFeet,
		Beds:       proposed.Beds,
		Baths:      proposed.Baths,
		Status:     models.StatusAvailable,
		LastSeenAt: &now,
		ApprovedAt: &now,
		ApprovedBy: approver,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if communityID, ok := change.ProposedEntityData["community_id"].(string); ok {
		home.CommunityID = communityID
	}
	if builderID, ok := change.ProposedEntityData["builder_id"].(string); ok {
		home.BuilderID = builderID
	}

	if err := s.storage.EntityStorage().SaveHome(ctx, home); err != nil {
		return "", fmt.Errorf("failed to materialize home: %w", err)
	}

	change.EntityID = home.ID

	s.logger.Info().
		Str("home_id", home.ID).
		Str("change_id", change.ID).
		Str("approved_by", approver).
		Msg("Home materialized from approved change")

	return home.ID, nil
}

func (s *Service) materializeBuilder(ctx context.Context, change *models.Change, approver string) (string, error) {
	proposed, err := models.DecodeProposedBuilder(change.ProposedEntityData)
	if err != nil {
		return "", fmt.Errorf("proposed entity data failed validation: %w", err)
	}

	now := time.Now().UTC()
	builder := &models.Builder{
		ID:           common.NewEntityID("builder"),
		Name:         proposed.Name,
		Website:      proposed.Website,
		Email:        proposed.Email,
		Phone:        proposed.Phone,
		City:         proposed.City,
		State:        proposed.State,
		ServiceAreas: proposed.ServiceAreas,
		Status:       models.StatusActive,
		LastSeenAt:   &now,
		ApprovedAt:   &now,
		ApprovedBy:   approver,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if communityID, ok := change.ProposedEntityData["community_id"].(string); ok && communityID != "" {
		builder.CommunityIDs = []string{communityID}
	}

	if err := s.storage.EntityStorage().SaveBuilder(ctx, builder); err != nil {
		return "", fmt.Errorf("failed to materialize builder: %w", err)
	}

	change.EntityID = builder.ID

	s.logger.Info().
		Str("builder_id", builder.ID).
		Str("change_id", change.ID).
		Str("approved_by", approver).
		Msg("Builder materialized from approved change")

	return builder.ID, nil
}

func (s *Service) materializeCommunity(ctx context.Context, change *models.Change, approver string) (string, error) {
	proposed, err := models.DecodeProposedCommunity(change.ProposedEntityData)
	if err != nil {
		return "", fmt.Errorf("proposed entity data failed validation: %w", err)
	}

	now := time.Now().UTC()
	community := &models.Community{
		ID:             common.NewEntityID("community"),
		Name:           proposed.Name,
		City:           proposed.City,
		State:          proposed.State,
		Stage:          proposed.Stage,
		TotalUnits:     proposed.TotalUnits,
		AvailableUnits: proposed.AvailableUnits,
		SoldUnits:      proposed.SoldUnits,
		Status:         models.StatusActive,
		LastSeenAt:     &now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.storage.EntityStorage().SaveCommunity(ctx, community); err != nil {
		return "", fmt.Errorf("failed to materialize community: %w", err)
	}

	change.EntityID = community.ID

	s.logger.Info().
		Str("community_id", community.ID).
		Str("change_id", change.ID).
		Str("approved_by", approver).
		Msg("Community materialized from approved change")

	return community.ID, nil
}

func (s *Service) materializeAgent(ctx context.Context, change *models.Change, approver string) (string, error) {
	proposed, err := models.DecodeProposedAgent(change.ProposedEntityData)
	if err != nil {
		return "", fmt.Errorf("proposed entity data failed validation: %w", err)
	}

	now := time.Now().UTC()
	agent := &models.Agent{
		ID:         common.NewEntityID("agent"),
		Name:       proposed.Name,
		Email:      proposed.Email,
		Phone:      proposed.Phone,
		Title:      proposed.Title,
		Status:     models.StatusActive,
		LastSeenAt: &now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if builderID, ok := change.ProposedEntityData["builder_id"].(string); ok {
		agent.BuilderID = builderID
	}

	if err := s.storage.EntityStorage().SaveAgent(ctx, agent); err != nil {
		return "", fmt.Errorf("failed to materialize agent: %w", err)
	}

	change.EntityID = agent.ID

	s.logger.Info().
		Str("agent_id", agent.ID).
		Str("change_id", change.ID).
		Str("approved_by", approver).
		Msg("Agent materialized from approved change")

	return agent.ID, nil
}

// applyFieldChange writes an approved single-field modification onto the
// stored entity.
func (s *Service) applyFieldChange(ctx context.Context, change *models.Change) error {
	if change.EntityType != models.EntityTypeHome {
		// Field changes on other categories are recorded for audit; the
		// reviewer applies them through the owning collector's next update.
		return nil
	}
	home, err := s.storage.EntityStorage().GetHome(ctx, change.EntityID)
	if err != nil {
		return err
	}
	switch change.FieldName {
	case "price":
		if v, ok := change.NewValue.(float64); ok {
			home.Price = v
		}
	case "square_feet":
		switch v := change.NewValue.(type) {
		case int:
			home.SquareFeet = v
		case float64:
			home.SquareFeet = int(v)
		}
	case "plan":
		if v, ok := change.NewValue.(string); ok {
			home.Plan = v
		}
	case "address":
		if v, ok := change.NewValue.(string); ok {
			home.Address = v
		}
	default:
		return nil
	}
	home.UpdatedAt = time.Now().UTC()
	return s.storage.EntityStorage().SaveHome(ctx, home)
}

func (s *Service) notify(ctx context.Context, kind models.NotificationKind, change *models.Change, reason string) {
	name := ""
	if change.ProposedEntityData != nil {
		if v, ok := change.ProposedEntityData["address"].(string); ok {
			name = v
		} else if v, ok := change.ProposedEntityData["name"].(string); ok {
			name = v
		}
	}
	s.notifier.Notify(ctx, &models.NotificationEvent{
		Kind:       kind,
		EntityType: change.EntityType,
		EntityID:   change.EntityID,
		EntityName: name,
		ChangeID:   change.ID,
		Snapshot:   change.ProposedEntityData,
		Confidence: change.Confidence,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
}
