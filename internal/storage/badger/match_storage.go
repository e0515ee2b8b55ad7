package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/interfaces"
	"github.com/ternarybob/prospectus/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// MatchStorage implements the MatchStorage interface for Badger.
// EntityMatch records are write-once.
type MatchStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewMatchStorage creates a new MatchStorage instance
func NewMatchStorage(db *BadgerDB, logger arbor.ILogger) interfaces.MatchStorage {
	return &MatchStorage{
		db:     db,
		logger: logger,
	}
}

func (s *MatchStorage) SaveMatch(ctx context.Context, match *models.EntityMatch) error {
	if match.ID == "" {
		return fmt.Errorf("match ID is required")
	}
	return WithRetry(ctx, s.logger, "save entity match", func() error {
		// Insert, not Upsert: match records are immutable once written.
		return s.db.Store().Insert(match.ID, match)
	})
}

func (s *MatchStorage) ListMatches(ctx context.Context, entityID string) ([]*models.EntityMatch, error) {
	var matches []models.EntityMatch
	if err := s.db.Store().Find(&matches, badgerhold.Where("MatchedEntityID").Eq(entityID).SortBy("CreatedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	result := make([]*models.EntityMatch, len(matches))
	for i := range matches {
		result[i] = &matches[i]
	}
	return result, nil
}

// HistoryStorage implements the HistoryStorage interface for Badger.
// Entries are append-only.
type HistoryStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewHistoryStorage creates a new HistoryStorage instance
func NewHistoryStorage(db *BadgerDB, logger arbor.ILogger) interfaces.HistoryStorage {
	return &HistoryStorage{
		db:     db,
		logger: logger,
	}
}

func (s *HistoryStorage) AppendHistory(ctx context.Context, entry *models.StatusHistory) error {
	if entry.ID == "" {
		return fmt.Errorf("history entry ID is required")
	}
	return WithRetry(ctx, s.logger, "append status history", func() error {
		return s.db.Store().Insert(entry.ID, entry)
	})
}

func (s *HistoryStorage) ListHistory(ctx context.Context, entityID string) ([]*models.StatusHistory, error) {
	var entries []models.StatusHistory
	if err := s.db.Store().Find(&entries, badgerhold.Where("EntityID").Eq(entityID).SortBy("ChangedAt")); err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	result := make([]*models.StatusHistory, len(entries))
	for i := range entries {
		result[i] = &entries[i]
	}
	return result, nil
}
