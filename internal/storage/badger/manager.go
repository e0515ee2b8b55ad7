package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/prospectus/internal/common"
	"github.com/ternarybob/prospectus/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	job     interfaces.JobStorage
	change  interfaces.ChangeStorage
	entity  interfaces.EntityStorage
	match   interfaces.MatchStorage
	history interfaces.HistoryStorage
	logger  arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:      db,
		job:     NewJobStorage(db, logger),
		change:  NewChangeStorage(db, logger),
		entity:  NewEntityStorage(db, logger),
		match:   NewMatchStorage(db, logger),
		history: NewHistoryStorage(db, logger),
		logger:  logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// JobStorage returns the Job storage interface
func (m *Manager) JobStorage() interfaces.JobStorage {
	return m.job
}

// ChangeStorage returns the Change storage interface
func (m *Manager) ChangeStorage() interfaces.ChangeStorage {
	return m.change
}

// EntityStorage returns the Entity storage interface
func (m *Manager) EntityStorage() interfaces.EntityStorage {
	return m.entity
}

// MatchStorage returns the EntityMatch storage interface
func (m *Manager) MatchStorage() interfaces.MatchStorage {
	return m.match
}

// HistoryStorage returns the StatusHistory storage interface
func (m *Manager) HistoryStorage() interfaces.HistoryStorage {
	return m.history
}

// Close closes the underlying database
func (m *Manager) Close() error {
	return m.db.Close()
}
