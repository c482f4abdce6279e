package eligibility

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/interfaces"
	"github.com/ternarybob/evharness/internal/models"
)

// SnapshotID is <namespace>/<window_id>/<YYYY-MM-DD>
func SnapshotID(namespace, windowID string, res *models.Resolution) string {
	return fmt.Sprintf("%s/%s/%s", namespace, windowID, res.ResolvedAt.UTC().Format(models.DateLayout))
}

// Snapshotter persists resolutions as dated JSON files and, when a store is
// configured, as Badger records.
type Snapshotter struct {
	layout artifacts.Layout
	store  interfaces.SnapshotStorage
	logger arbor.ILogger
}

// NewSnapshotter creates a snapshotter; store may be nil
func NewSnapshotter(layout artifacts.Layout, store interfaces.SnapshotStorage, logger arbor.ILogger) *Snapshotter {
	return &Snapshotter{layout: layout, store: store, logger: logger}
}

// Snapshot writes <YYYY-MM-DD>.json under the window's eligibility directory
// and returns its path. A second resolution on the same day replaces it.
func (s *Snapshotter) Snapshot(ctx context.Context, namespace, windowID string, res *models.Resolution) (string, error) {
	res.ID = SnapshotID(namespace, windowID, res)
	res.Namespace = namespace
	res.WindowID = windowID

	path := filepath.Join(s.layout.SnapshotDir(namespace, windowID), res.ResolvedAt.UTC().Format(models.DateLayout)+".json")
	if err := artifacts.WriteJSON(path, res); err != nil {
		return "", fmt.Errorf("failed to write eligibility snapshot: %w", err)
	}

	if s.store != nil {
		if err := s.store.SaveSnapshot(ctx, res); err != nil {
			return "", err
		}
	}

	s.logger.Info().
		Str("window_id", windowID).
		Int("eligible", res.Summary.Eligible).
		Int("conditional", res.Summary.Conditional).
		Int("blocked", res.Summary.Blocked).
		Msg("Eligibility snapshot persisted")
	return path, nil
}

// LoadSnapshot reads a snapshot file
func LoadSnapshot(path string) (*models.Resolution, error) {
	var res models.Resolution
	if err := artifacts.ReadJSON(path, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
