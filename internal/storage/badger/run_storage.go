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

// ErrRunExists is returned when a run id is saved twice
var ErrRunExists = errors.New("run record already exists")

// RunStorage implements interfaces.RunStorage for Badger
type RunStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewRunStorage creates a new RunStorage instance
func NewRunStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RunStorage {
	return &RunStorage{
		db:     db,
		logger: logger,
	}
}

// SaveRun inserts a run record. Existing records are never overwritten.
func (s *RunStorage) SaveRun(ctx context.Context, run *models.RunRecord) error {
	if run.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	err := s.db.Store().Insert(run.RunID, run)
	if errors.Is(err, badgerhold.ErrKeyExists) {
		return fmt.Errorf("%w: %s", ErrRunExists, run.RunID)
	}
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.RunID, err)
	}
	s.logger.Debug().Str("run_id", run.RunID).Str("outcome", string(run.Outcome)).Msg("Run record saved")
	return nil
}

// GetRun retrieves a run record by id
func (s *RunStorage) GetRun(ctx context.Context, runID string) (*models.RunRecord, error) {
	var run models.RunRecord
	err := s.db.Store().Get(runID, &run)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, interfaces.ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRunsByProfile returns all runs of a profile, oldest first
func (s *RunStorage) ListRunsByProfile(ctx context.Context, profileID string) ([]*models.RunRecord, error) {
	var runs []models.RunRecord
	if err := s.db.Store().Find(&runs, badgerhold.Where("ProfileID").Eq(profileID).SortBy("StartedAt")); err != nil {
		return nil, fmt.Errorf("failed to list runs for profile %s: %w", profileID, err)
	}
	return toRunPointers(runs), nil
}

// ListRuns returns every stored run, newest first
func (s *RunStorage) ListRuns(ctx context.Context) ([]*models.RunRecord, error) {
	var runs []models.RunRecord
	if err := s.db.Store().Find(&runs, badgerhold.Where("RunID").Ne("").SortBy("StartedAt").Reverse()); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return toRunPointers(runs), nil
}

func toRunPointers(runs []models.RunRecord) []*models.RunRecord {
	result := make([]*models.RunRecord, len(runs))
	for i := range runs {
		result[i] = &runs[i]
	}
	return result
}
