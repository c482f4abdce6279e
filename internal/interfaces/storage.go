package interfaces

import (
	"context"

	"github.com/ternarybob/evharness/internal/models"
)

// RunStorage persists pipeline run records. Records are append-only: saving a
// run id that already exists is an error.
type RunStorage interface {
	SaveRun(ctx context.Context, run *models.RunRecord) error
	GetRun(ctx context.Context, runID string) (*models.RunRecord, error)
	ListRunsByProfile(ctx context.Context, profileID string) ([]*models.RunRecord, error)
	ListRuns(ctx context.Context) ([]*models.RunRecord, error)
}

// SnapshotStorage persists dated eligibility snapshots
type SnapshotStorage interface {
	SaveSnapshot(ctx context.Context, resolution *models.Resolution) error
	GetSnapshot(ctx context.Context, id string) (*models.Resolution, error)
	ListSnapshotsByNamespace(ctx context.Context, namespace string) ([]*models.Resolution, error)
}

// ArtifactIndex records the artifacts written by each run
type ArtifactIndex interface {
	RecordArtifact(ctx context.Context, record *models.ArtifactRecord) error
	ListArtifactsByRun(ctx context.Context, runID string) ([]*models.ArtifactRecord, error)
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	RunStorage() RunStorage
	SnapshotStorage() SnapshotStorage
	ArtifactIndex() ArtifactIndex
	KeyValueStorage() KeyValueStorage
	DB() interface{}
	Close() error
}
