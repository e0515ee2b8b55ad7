package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/models"
)

// DeriveAvailability computes a community's availability status from its
// unit counts. When no counts are known the sales stage decides instead.
func DeriveAvailability(community *models.Community) models.EntityStatus {
	total := community.TotalUnits
	if total <= 0 {
		return stageFallback(community.Stage)
	}

	available := community.AvailableUnits
	sold := community.SoldUnits

	switch {
	case available <= 0:
		return models.StatusSoldOut
	case float64(available)/float64(total) <= 0.10:
		return models.StatusLimited
	case float64(sold)/float64(total) >= 0.90:
		return models.StatusLimited
	default:
		return models.StatusAvailable
	}
}

// ApplyDerivedAvailability recomputes a community's availability tier from
// its inventory counts and persists it when it differs from the stored
// status. Derivation bypasses the event table: it is a recalculation from
// counts, not a lifecycle event.
func (t *Tracker) ApplyDerivedAvailability(ctx context.Context, community *models.Community, changedBy string) (models.EntityStatus, error) {
	derived := DeriveAvailability(community)
	if derived == community.Status {
		return derived, nil
	}

	previous := community.Status
	community.Status = derived
	community.UpdatedAt = time.Now().UTC()
	if err := t.storage.EntityStorage().SaveCommunity(ctx, community); err != nil {
		return "", fmt.Errorf("failed to persist derived availability: %w", err)
	}

	entry := &models.StatusHistory{
		ID:         common.NewHistoryID(),
		EntityType: models.EntityTypeCommunity,
		EntityID:   community.ID,
		OldStatus:  string(previous),
		NewStatus:  string(derived),
		ChangedBy:  changedBy,
		Reason: fmt.Sprintf("availability derived from inventory counts (%d/%d available, %d sold)",
			community.AvailableUnits, community.TotalUnits, community.SoldUnits),
		ChangedAt: time.Now().UTC(),
	}
	if err := t.storage.HistoryStorage().AppendHistory(ctx, entry); err != nil {
		return "", fmt.Errorf("failed to append status history: %w", err)
	}

	t.logger.Info().
		Str("community_id", community.ID).
		Str("old_status", string(previous)).
		Str("new_status", string(derived)).
		Msg("Community availability rederived")

	return derived, nil
}

func stageFallback(stage string) models.EntityStatus {
	switch stage {
	case "pre_sales", "coming_soon":
		return models.StatusUpcoming
	case "closed", "closeout_complete":
		return models.StatusSoldOut
	default:
		return models.StatusAvailable
	}
}
