package windows

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/evharness/internal/models"
)

func horizon(start, end string) models.Horizon {
	return models.Horizon{Start: start, End: end}
}

func TestGenerate_Single(t *testing.T) {
	ws, err := Generate(models.WindowingPolicy{Type: models.WindowingSingle}, horizon("2024-01-01", "2024-06-30"))
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "W001_20240101_20240630", ws[0].WindowID)
	assert.Equal(t, 181, ws[0].Days())
}

func TestGenerate_Rolling200Days(t *testing.T) {
	// 2024-01-01 + 200 days = 2024-07-19
	policy := models.WindowingPolicy{Type: models.WindowingRolling, WindowSize: 90, StepSize: 30}
	ws, err := Generate(policy, horizon("2024-01-01", "2024-07-19"))
	require.NoError(t, err)
	require.Len(t, ws, 4)

	wantStarts := []string{"2024-01-01", "2024-01-31", "2024-03-01", "2024-03-31"}
	for i, w := range ws {
		span := w.Span()
		assert.Equal(t, wantStarts[i], span.Start)
		assert.Equal(t, 90, w.Days())
	}
	assert.Equal(t, "W001_20240101_20240331", ws[0].WindowID)
	assert.Equal(t, "W004_20240331_20240629", ws[3].WindowID)
}

func TestGenerate_RollingExactFit(t *testing.T) {
	policy := models.WindowingPolicy{Type: models.WindowingRolling, WindowSize: 10, StepSize: 10}
	ws, err := Generate(policy, horizon("2024-01-01", "2024-01-21"))
	require.NoError(t, err)
	require.Len(t, ws, 2)
	assert.Equal(t, "2024-01-21", ws[1].Span().End)
}

func TestGenerate_RollingTooLong(t *testing.T) {
	policy := models.WindowingPolicy{Type: models.WindowingRolling, WindowSize: 400, StepSize: 30}
	ws, err := Generate(policy, horizon("2024-01-01", "2024-07-19"))
	require.NoError(t, err)
	assert.Empty(t, ws)
}

func TestGenerate_Anchored(t *testing.T) {
	policy := models.WindowingPolicy{
		Type:        models.WindowingAnchored,
		WindowSize:  60,
		AnchorDates: []string{"2024-05-01", "2024-02-01", "2023-12-01", "2024-02-01", "2024-06-15"},
	}
	ws, err := Generate(policy, horizon("2024-01-01", "2024-06-30"))
	require.NoError(t, err)
	require.Len(t, ws, 3)

	assert.Equal(t, "W001_20240201_20240401", ws[0].WindowID)
	assert.Equal(t, "W002_20240501_20240630", ws[1].WindowID, "clipped to horizon end")
	assert.Equal(t, "W003_20240615_20240630", ws[2].WindowID)
}

func TestGenerate_AnchoredDefaultsToRemainingHorizon(t *testing.T) {
	policy := models.WindowingPolicy{Type: models.WindowingAnchored, AnchorDates: []string{"2024-03-01"}}
	ws, err := Generate(policy, horizon("2024-01-01", "2024-06-30"))
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, "2024-06-30", ws[0].Span().End)
}

func TestGenerate_Errors(t *testing.T) {
	_, err := Generate(models.WindowingPolicy{Type: models.WindowingSingle}, horizon("2024-06-30", "2024-01-01"))
	assert.Error(t, err)

	_, err = Generate(models.WindowingPolicy{Type: models.WindowingSingle}, horizon("bad", "2024-01-01"))
	assert.Error(t, err)

	_, err = Generate(models.WindowingPolicy{Type: models.WindowingRolling}, horizon("2024-01-01", "2024-06-30"))
	assert.Error(t, err)

	_, err = Generate(models.WindowingPolicy{Type: "expanding"}, horizon("2024-01-01", "2024-06-30"))
	assert.Error(t, err)
}

func TestFingerprint_Deterministic(t *testing.T) {
	policy := models.WindowingPolicy{Type: models.WindowingRolling, WindowSize: 90, StepSize: 30}
	a, err := Generate(policy, horizon("2024-01-01", "2024-12-31"))
	require.NoError(t, err)
	b, err := Generate(policy, horizon("2024-01-01", "2024-12-31"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.Len(t, Fingerprint(a), 64)
	assert.NotEqual(t, Fingerprint(a), Fingerprint(a[:1]))
}
