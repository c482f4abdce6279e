package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/interfaces"
	"github.com/ternarybob/evharness/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SnapshotStorage implements interfaces.SnapshotStorage for Badger.
// Snapshots are keyed "<namespace>/<window_id>/<date>"; re-resolving the same
// window on the same day replaces the snapshot.
type SnapshotStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSnapshotStorage creates a new SnapshotStorage instance
func NewSnapshotStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SnapshotStorage {
	return &SnapshotStorage{
		db:     db,
		logger: logger,
	}
}

func (s *SnapshotStorage) SaveSnapshot(ctx context.Context, resolution *models.Resolution) error {
	if resolution.ID == "" {
		return fmt.Errorf("snapshot id is required")
	}
	if err := s.db.Store().Upsert(resolution.ID, resolution); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", resolution.ID, err)
	}
	return nil
}

func (s *SnapshotStorage) GetSnapshot(ctx context.Context, id string) (*models.Resolution, error) {
	var resolution models.Resolution
	err := s.db.Store().Get(id, &resolution)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %s: %w", id, err)
	}
	return &resolution, nil
}

func (s *SnapshotStorage) ListSnapshotsByNamespace(ctx context.Context, namespace string) ([]*models.Resolution, error) {
	var snapshots []models.Resolution
	if err := s.db.Store().Find(&snapshots, badgerhold.Where("Namespace").Eq(namespace).SortBy("ID")); err != nil {
		return nil, fmt.Errorf("failed to list snapshots for %s: %w", namespace, err)
	}
	result := make([]*models.Resolution, len(snapshots))
	for i := range snapshots {
		result[i] = &snapshots[i]
	}
	return result, nil
}
