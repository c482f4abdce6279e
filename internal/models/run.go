package models

import (
	"encoding/gob"
	"time"
)

// RunOutcome is the overall result of a pipeline run
type RunOutcome string

const (
	RunSuccess RunOutcome = "SUCCESS"
	RunFailure RunOutcome = "FAILURE"
)

// WindowOutcome records how a single window finished
type WindowOutcome struct {
	WindowID    string    `json:"window_id"`
	Start       string    `json:"start"`
	End         string    `json:"end"`
	Success     bool      `json:"success"`
	RegimeCode  string    `json:"regime_code,omitempty"`
	Viability   string    `json:"viability,omitempty"`
	Eligible    int       `json:"eligible"`
	Conditional int       `json:"conditional"`
	Blocked     int       `json:"blocked"`
	ArtifactDir string    `json:"artifact_dir,omitempty"`
	Artifacts   []string  `json:"artifacts,omitempty"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

// RunRecord is the audit record of one pipeline execution. Records are
// appended per run and never rewritten.
type RunRecord struct {
	RunID       string          `json:"run_id" badgerhold:"key"`
	ProfileID   string          `json:"profile_id" badgerholdIndex:"ProfileID"`
	Version     string          `json:"version"`
	Mode        ModeType        `json:"mode"`
	Market      string          `json:"market"`
	Namespace   string          `json:"namespace"`
	DecisionRef string          `json:"decision_ref"`
	WindowCount int             `json:"window_count"`
	Windows     []WindowOutcome `json:"windows"`
	Outcome     RunOutcome      `json:"outcome"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
}

// Succeeded reports whether every window finished without error
func (r *RunRecord) Succeeded() bool {
	if r.WindowCount == 0 {
		return false
	}
	for _, w := range r.Windows {
		if !w.Success {
			return false
		}
	}
	return true
}

// FailedWindows returns the outcomes that carry an error
func (r *RunRecord) FailedWindows() []WindowOutcome {
	var failed []WindowOutcome
	for _, w := range r.Windows {
		if !w.Success {
			failed = append(failed, w)
		}
	}
	return failed
}

// ArtifactRecord indexes an artifact written under the output root
type ArtifactRecord struct {
	ID        string    `json:"id" badgerhold:"key"`
	RunID     string    `json:"run_id" badgerholdIndex:"RunID"`
	Namespace string    `json:"namespace" badgerholdIndex:"Namespace"`
	WindowID  string    `json:"window_id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	SHA256    string    `json:"sha256"`
	Size      int64     `json:"size"`
	WrittenAt time.Time `json:"written_at"`
}

func init() {
	// Register types stored through badgerhold's gob encoder
	gob.Register(RunRecord{})
	gob.Register(ArtifactRecord{})
	gob.Register(Resolution{})
	gob.Register(map[string]interface{}{})
}
