// Package windows expands a profile windowing policy into concrete,
// deterministic evaluation windows.
package windows

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"

	"github.com/ternarybob/evharness/internal/models"
)

// Generate cuts the horizon into windows according to the policy. Output is
// ordered and identical for identical inputs.
func Generate(policy models.WindowingPolicy, horizon models.Horizon) ([]models.Window, error) {
	start, end, err := horizon.Bounds()
	if err != nil {
		return nil, err
	}
	if !end.After(start) {
		return nil, fmt.Errorf("horizon end %s must be after start %s", horizon.End, horizon.Start)
	}

	switch policy.Type {
	case models.WindowingSingle:
		return []models.Window{newWindow(1, start, end)}, nil
	case models.WindowingRolling:
		return rolling(policy, start, end)
	case models.WindowingAnchored:
		return anchored(policy, start, end)
	default:
		return nil, fmt.Errorf("unsupported windowing type %q", policy.Type)
	}
}

// rolling slides a fixed-size window by step while it fits in the horizon
func rolling(policy models.WindowingPolicy, start, end time.Time) ([]models.Window, error) {
	size, step := policy.WindowSize.Days(), policy.StepSize.Days()
	if size <= 0 || step <= 0 {
		return nil, fmt.Errorf("rolling windows need positive window_size and step_size (got %d, %d)", size, step)
	}

	var windows []models.Window
	for ws := start; ; ws = ws.AddDate(0, 0, step) {
		we := ws.AddDate(0, 0, size)
		if we.After(end) {
			break
		}
		windows = append(windows, newWindow(len(windows)+1, ws, we))
	}
	return windows, nil
}

// anchored opens one window at each anchor date. Anchors outside the horizon
// are dropped; windows are clipped at the horizon end.
func anchored(policy models.WindowingPolicy, start, end time.Time) ([]models.Window, error) {
	if len(policy.AnchorDates) == 0 {
		return nil, fmt.Errorf("anchored windows need at least one anchor date")
	}

	seen := make(map[time.Time]bool, len(policy.AnchorDates))
	anchors := make([]time.Time, 0, len(policy.AnchorDates))
	for _, raw := range policy.AnchorDates {
		anchor, err := time.Parse(models.DateLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid anchor date %q: %w", raw, err)
		}
		if anchor.Before(start) || !anchor.Before(end) || seen[anchor] {
			continue
		}
		seen[anchor] = true
		anchors = append(anchors, anchor)
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].Before(anchors[j]) })

	windows := make([]models.Window, 0, len(anchors))
	for _, anchor := range anchors {
		we := end
		if size := policy.WindowSize.Days(); size > 0 {
			if candidate := anchor.AddDate(0, 0, size); candidate.Before(end) {
				we = candidate
			}
		}
		windows = append(windows, newWindow(len(windows)+1, anchor, we))
	}
	return windows, nil
}

func newWindow(ordinal int, start, end time.Time) models.Window {
	start, end = start.UTC(), end.UTC()
	return models.Window{
		WindowID: models.NewWindowID(ordinal, start, end),
		Start:    start,
		End:      end,
	}
}

// Fingerprint is a stable digest of a window list
func Fingerprint(windows []models.Window) string {
	h := sha256.New()
	for _, w := range windows {
		fmt.Fprintf(h, "%s|%s|%s\n", w.WindowID, w.Start.Format(models.DateLayout), w.End.Format(models.DateLayout))
	}
	return hex.EncodeToString(h.Sum(nil))
}
