package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ChangeStorage implements the ChangeStorage interface for Badger. Changes
// are never deleted; they form the audit trail.
type ChangeStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewChangeStorage creates a new ChangeStorage instance
func NewChangeStorage(db *BadgerDB, logger arbor.ILogger) interfaces.ChangeStorage {
	return &ChangeStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ChangeStorage) SaveChange(ctx context.Context, change *models.Change) error {
	if change.ID == "" {
		return fmt.Errorf("change ID is required")
	}
	return WithRetry(ctx, s.logger, "save change", func() error {
		return s.db.Store().Upsert(change.ID, change)
	})
}

func (s *ChangeStorage) GetChange(ctx context.Context, changeID string) (*models.Change, error) {
	var change models.Change
	if err := s.db.Store().Get(changeID, &change); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, fmt.Errorf("change not found: %s", changeID)
		}
		return nil, fmt.Errorf("failed to get change: %w", err)
	}
	return &change, nil
}

func (s *ChangeStorage) ListChanges(ctx context.Context, opts *interfaces.ChangeListOptions) ([]*models.Change, error) {
	query := badgerhold.Where("ID").Ne("")

	if opts != nil {
		if opts.ReviewStatus != "" {
			query = query.And("ReviewStatus").Eq(opts.ReviewStatus)
		}
		if opts.EntityType != "" {
			query = query.And("EntityType").Eq(opts.EntityType)
		}
		if opts.Limit > 0 {
			query = query.Limit(opts.Limit)
		}
		if opts.Offset > 0 {
			query = query.Skip(opts.Offset)
		}
	}
	query = query.SortBy("CreatedAt").Reverse()

	var changes []models.Change
	if err := s.db.Store().Find(&changes, query); err != nil {
		return nil, fmt.Errorf("failed to list changes: %w", err)
	}

	result := make([]*models.Change, len(changes))
	for i := range changes {
		result[i] = &changes[i]
	}
	return result, nil
}
