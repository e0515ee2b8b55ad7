// -----------------------------------------------------------------------
// Lifecycle tracker - entity status machine and grace-period deactivation
// -----------------------------------------------------------------------

package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
)

// ErrInvalidTransition marks an attempt to apply a status event that the
// transition table does not define for the entity's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// Event is a named lifecycle trigger.
type Event string

const (
	EventActivate         Event = "activate"
	EventStartDevelopment Event = "start_development"
	EventSellOut          Event = "sell_out"
	EventReserve          Event = "reserve"
	EventRelease          Event = "release"
	EventSell             Event = "sell"
	EventDeactivate       Event = "deactivate"
	EventReactivate       Event = "reactivate"
)

// transitionKey identifies one edge of the status machine.
type transitionKey struct {
	Category models.EntityType
	From     models.EntityStatus
	Event    Event
}

// transitions is the explicit transition table. Unmapped pairs are
// rejected, never coerced.
var transitions = map[transitionKey]models.EntityStatus{
	// Communities
	{models.EntityTypeCommunity, models.StatusUpcoming, EventActivate}:                 models.StatusActive,
	{models.EntityTypeCommunity, models.StatusUpcoming, EventDeactivate}:               models.StatusInactive,
	{models.EntityTypeCommunity, models.StatusActive, EventStartDevelopment}:           models.StatusUnderDevelopment,
	{models.EntityTypeCommunity, models.StatusActive, EventSellOut}:                    models.StatusSoldOut,
	{models.EntityTypeCommunity, models.StatusActive, EventDeactivate}:                 models.StatusInactive,
	{models.EntityTypeCommunity, models.StatusUnderDevelopment, EventActivate}:         models.StatusActive,
	{models.EntityTypeCommunity, models.StatusUnderDevelopment, EventSellOut}:          models.StatusSoldOut,
	{models.EntityTypeCommunity, models.StatusUnderDevelopment, EventDeactivate}:       models.StatusInactive,
	{models.EntityTypeCommunity, models.StatusSoldOut, EventReactivate}:                models.StatusActive,
	{models.EntityTypeCommunity, models.StatusInactive, EventReactivate}:               models.StatusActive,

	// Homes
	{models.EntityTypeHome, models.StatusAvailable, EventReserve}:      models.StatusPendingSale,
	{models.EntityTypeHome, models.StatusAvailable, EventSell}:         models.StatusSold,
	{models.EntityTypeHome, models.StatusAvailable, EventDeactivate}:   models.StatusInactive,
	{models.EntityTypeHome, models.StatusPendingSale, EventSell}:       models.StatusSold,
	{models.EntityTypeHome, models.StatusPendingSale, EventRelease}:    models.StatusAvailable,
	{models.EntityTypeHome, models.StatusPendingSale, EventDeactivate}: models.StatusInactive,
	{models.EntityTypeHome, models.StatusSold, EventRelease}:           models.StatusAvailable,
	{models.EntityTypeHome, models.StatusInactive, EventReactivate}:    models.StatusAvailable,

	// Builders
	{models.EntityTypeBuilder, models.StatusActive, EventDeactivate}:   models.StatusInactive,
	{models.EntityTypeBuilder, models.StatusInactive, EventReactivate}: models.StatusActive,

	// Agents
	{models.EntityTypeAgent, models.StatusActive, EventDeactivate}:   models.StatusInactive,
	{models.EntityTypeAgent, models.StatusInactive, EventReactivate}: models.StatusActive,
}

// Tracker owns every entity's current status field and the append-only
// status history.
type Tracker struct {
	storage     interfaces.StorageManager
	graceWindow time.Duration
	logger      arbor.ILogger
}

// NewTracker creates a lifecycle tracker.
func NewTracker(storage interfaces.StorageManager, config *common.LifecycleConfig, logger arbor.ILogger) *Tracker {
	return &Tracker{
		storage:     storage,
		graceWindow: config.GraceWindow(),
		logger:      logger,
	}
}

// Lookup resolves an event against the transition table without applying
// it. Returns ErrInvalidTransition for unmapped pairs.
func Lookup(category models.EntityType, from models.EntityStatus, event Event) (models.EntityStatus, error) {
	to, ok := transitions[transitionKey{Category: category, From: from, Event: event}]
	if !ok {
		return "", fmt.Errorf("%w: %s cannot %s from %s", ErrInvalidTransition, category, event, from)
	}
	return to, nil
}

// Transition applies a lifecycle event to an entity: validates it against
// the table, writes the entity's new status, and appends a history entry.
func (t *Tracker) Transition(ctx context.Context, category models.EntityType, entityID string, event Event, changedBy, reason string) (models.EntityStatus, error) {
	current, setStatus, err := t.loadStatus(ctx, category, entityID)
	if err != nil {
		return "", err
	}

	next, err := Lookup(category, current, event)
	if err != nil {
		return "", err
	}

	if err := setStatus(next); err != nil {
		return "", fmt.Errorf("failed to update %s status: %w", category, err)
	}

	entry := &models.StatusHistory{
		ID:         common.NewHistoryID(),
		EntityType: category,
		EntityID:   entityID,
		OldStatus:  string(current),
		NewStatus:  string(next),
		ChangedBy:  changedBy,
		Reason:     reason,
		ChangedAt:  time.Now().UTC(),
	}
	if err := t.storage.HistoryStorage().AppendHistory(ctx, entry); err != nil {
		return "", fmt.Errorf("failed to append status history: %w", err)
	}

	t.logger.Info().
		Str("entity_type", string(category)).
		Str("entity_id", entityID).
		Str("old_status", string(current)).
		Str("new_status", string(next)).
		Str("changed_by", changedBy).
		Msg("Entity status transitioned")

	return next, nil
}

// loadStatus fetches the entity's current status and returns a setter that
// persists a new one.
func (t *Tracker) loadStatus(ctx context.Context, category models.EntityType, entityID string) (models.EntityStatus, func(models.EntityStatus) error, error) {
	entities := t.storage.EntityStorage()
	now := time.Now().UTC()

	switch category {
	case models.EntityTypeBuilder:
		builder, err := entities.GetBuilder(ctx, entityID)
		if err != nil {
			return "", nil, err
		}
		return builder.Status, func(next models.EntityStatus) error {
			builder.Status = next
			builder.UpdatedAt = now
			return entities.SaveBuilder(ctx, builder)
		}, nil
	case models.EntityTypeCommunity:
		community, err := entities.GetCommunity(ctx, entityID)
		if err != nil {
			return "", nil, err
		}
		return community.Status, func(next models.EntityStatus) error {
			community.Status = next
			community.UpdatedAt = now
			return entities.SaveCommunity(ctx, community)
		}, nil
	case models.EntityTypeHome:
		home, err := entities.GetHome(ctx, entityID)
		if err != nil {
			return "", nil, err
		}
		return home.Status, func(next models.EntityStatus) error {
			home.Status = next
			home.UpdatedAt = now
			return entities.SaveHome(ctx, home)
		}, nil
	case models.EntityTypeAgent:
		agent, err := entities.GetAgent(ctx, entityID)
		if err != nil {
			return "", nil, err
		}
		return agent.Status, func(next models.EntityStatus) error {
			agent.Status = next
			agent.UpdatedAt = now
			return entities.SaveAgent(ctx, agent)
		}, nil
	}
	return "", nil, fmt.Errorf("unknown entity category %q", category)
}

// MarkSeen records that an entity appeared in the latest collection sweep.
// Reappearing before grace expiry silently resets the clock with no status
// change.
func (t *Tracker) MarkSeen(ctx context.Context, category models.EntityType, entityID string, seenAt time.Time) error {
	entities := t.storage.EntityStorage()
	seenAt = seenAt.UTC()

	switch category {
	case models.EntityTypeBuilder:
		builder, err := entities.GetBuilder(ctx, entityID)
		if err != nil {
			return err
		}
		builder.LastSeenAt = &seenAt
		return entities.SaveBuilder(ctx, builder)
	case models.EntityTypeCommunity:
		community, err := entities.GetCommunity(ctx, entityID)
		if err != nil {
			return err
		}
		community.LastSeenAt = &seenAt
		return entities.SaveCommunity(ctx, community)
	case models.EntityTypeHome:
		home, err := entities.GetHome(ctx, entityID)
		if err != nil {
			return err
		}
		home.LastSeenAt = &seenAt
		return entities.SaveHome(ctx, home)
	case models.EntityTypeAgent:
		agent, err := entities.GetAgent(ctx, entityID)
		if err != nil {
			return err
		}
		agent.LastSeenAt = &seenAt
		return entities.SaveAgent(ctx, agent)
	}
	return fmt.Errorf("unknown entity category %q", category)
}

// SweepStaleAgents deactivates active agents whose last-seen timestamp has
// aged past the grace window. Agents inside the window stay active.
// Returns the number of agents deactivated.
func (t *Tracker) SweepStaleAgents(ctx context.Context, now time.Time) (int, error) {
	agents, err := t.storage.EntityStorage().ListAgents(ctx, models.StatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to list active agents: %w", err)
	}

	cutoff := now.UTC().Add(-t.graceWindow)
	deactivated := 0

	for _, agent := range agents {
		if agent.LastSeenAt == nil || !agent.LastSeenAt.Before(cutoff) {
			continue
		}

		reason := fmt.Sprintf("not observed in any collection sweep since %s (grace window %d days)",
			agent.LastSeenAt.Format("2006-01-02"), int(t.graceWindow.Hours()/24))
		if _, err := t.Transition(ctx, models.EntityTypeAgent, agent.ID, EventDeactivate, models.SystemReviewer, reason); err != nil {
			t.logger.Warn().
				Err(err).
				Str("agent_id", agent.ID).
				Msg("Failed to deactivate stale agent")
			continue
		}
		deactivated++
	}

	if deactivated > 0 {
		t.logger.Info().
			Int("deactivated", deactivated).
			Int("checked", len(agents)).
			Msg("Grace-period sweep deactivated stale agents")
	}

	return deactivated, nil
}
