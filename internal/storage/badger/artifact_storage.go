package badger

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/interfaces"
	"github.com/ternarybob/evharness/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// ArtifactIndex implements interfaces.ArtifactIndex for Badger
type ArtifactIndex struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewArtifactIndex creates a new ArtifactIndex instance
func NewArtifactIndex(db *BadgerDB, logger arbor.ILogger) interfaces.ArtifactIndex {
	return &ArtifactIndex{
		db:     db,
		logger: logger,
	}
}

// RecordArtifact stores an index entry; the id is "<run_id>/<window_id>/<name>"
func (s *ArtifactIndex) RecordArtifact(ctx context.Context, record *models.ArtifactRecord) error {
	if record.ID == "" {
		record.ID = fmt.Sprintf("%s/%s/%s", record.RunID, record.WindowID, record.Name)
	}
	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to record artifact %s: %w", record.ID, err)
	}
	return nil
}

// ListArtifactsByRun returns the artifacts of a run ordered by id
func (s *ArtifactIndex) ListArtifactsByRun(ctx context.Context, runID string) ([]*models.ArtifactRecord, error) {
	var records []models.ArtifactRecord
	if err := s.db.Store().Find(&records, badgerhold.Where("RunID").Eq(runID).SortBy("ID")); err != nil {
		return nil, fmt.Errorf("failed to list artifacts for run %s: %w", runID, err)
	}
	result := make([]*models.ArtifactRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}
