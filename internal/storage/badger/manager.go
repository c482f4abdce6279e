package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/common"
	"github.com/ternarybob/evharness/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db        *BadgerDB
	runs      interfaces.RunStorage
	snapshots interfaces.SnapshotStorage
	artifacts interfaces.ArtifactIndex
	kv        interfaces.KeyValueStorage
	logger    arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	return newManager(db, logger), nil
}

func newManager(db *BadgerDB, logger arbor.ILogger) *Manager {
	return &Manager{
		db:        db,
		runs:      NewRunStorage(db, logger),
		snapshots: NewSnapshotStorage(db, logger),
		artifacts: NewArtifactIndex(db, logger),
		kv:        NewKVStorage(db, logger),
		logger:    logger,
	}
}

// RunStorage returns the run record storage
func (m *Manager) RunStorage() interfaces.RunStorage {
	return m.runs
}

// SnapshotStorage returns the eligibility snapshot storage
func (m *Manager) SnapshotStorage() interfaces.SnapshotStorage {
	return m.snapshots
}

// ArtifactIndex returns the artifact index
func (m *Manager) ArtifactIndex() interfaces.ArtifactIndex {
	return m.artifacts
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// DB returns the underlying database connection
func (m *Manager) DB() interface{} {
	if m.db != nil {
		return m.db.Store()
	}
	return nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
