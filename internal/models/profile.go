package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the calendar date format used by profiles, windows and artifact names
const DateLayout = "2006-01-02"

// ModeType selects how the regime for each window is established
type ModeType string

const (
	ModeHistorical   ModeType = "historical"
	ModeForcedRegime ModeType = "forced_regime"
)

// WindowingType selects how the evaluation horizon is cut into windows
type WindowingType string

const (
	WindowingSingle   WindowingType = "single"
	WindowingRolling  WindowingType = "rolling"
	WindowingAnchored WindowingType = "anchored"
)

// FactorObservation selects whether factor signals are computed
type FactorObservation string

const (
	FactorObserve FactorObservation = "observe"
	FactorDisable FactorObservation = "disable"
)

// EvaluationProfile is the declarative, immutable input of a pipeline run.
// Sub-objects are pointers so that an absent section fails validation instead
// of silently decoding to zero values.
type EvaluationProfile struct {
	ProfileID   string            `yaml:"profile_id" validate:"required"`
	Version     string            `yaml:"version" validate:"required"`
	Description string            `yaml:"description,omitempty"`
	Market      string            `yaml:"market,omitempty"`
	Horizon     *Horizon          `yaml:"horizon,omitempty"`
	Mode        *ModeSpec         `yaml:"mode" validate:"required"`
	Windowing   *WindowingPolicy  `yaml:"windowing" validate:"required"`
	Regime      *RegimePolicy     `yaml:"regime" validate:"required"`
	Factor      *FactorPolicy     `yaml:"factor" validate:"required"`
	Execution   *ExecutionPolicy  `yaml:"execution" validate:"required"`
	Outputs     *OutputPolicy     `yaml:"outputs" validate:"required"`
	Governance  *GovernancePolicy `yaml:"governance" validate:"required"`
	Invariants  *InvariantFlags   `yaml:"invariants" validate:"required"`
}

// ModeSpec wraps the run mode
type ModeSpec struct {
	Type ModeType `yaml:"type" validate:"required,oneof=historical forced_regime"`
}

// Horizon is the base evaluation range that windows are cut from
type Horizon struct {
	Start string `yaml:"start" validate:"required,datetime=2006-01-02"`
	End   string `yaml:"end" validate:"required,datetime=2006-01-02"`
}

// Bounds parses the horizon dates
func (h Horizon) Bounds() (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, h.Start)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid horizon start %q: %w", h.Start, err)
	}
	end, err := time.Parse(DateLayout, h.End)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid horizon end %q: %w", h.End, err)
	}
	return start, end, nil
}

// WindowingPolicy describes how windows are generated
type WindowingPolicy struct {
	Type        WindowingType `yaml:"type" validate:"required,oneof=single rolling anchored"`
	WindowSize  DayCount      `yaml:"window_size,omitempty"`
	StepSize    DayCount      `yaml:"step_size,omitempty"`
	AnchorDates []string      `yaml:"anchor_dates,omitempty" validate:"omitempty,dive,datetime=2006-01-02"`
}

// RegimePolicy selects detection or a forced override
type RegimePolicy struct {
	Detection bool            `yaml:"detection"`
	Override  *RegimeOverride `yaml:"override"`
}

// RegimeOverride forces a counterfactual regime code
type RegimeOverride struct {
	RegimeCode string `yaml:"regime_code"`
	Rationale  string `yaml:"rationale"`
}

// FactorPolicy controls factor observation. Override is declared only so that a
// non-null value can be rejected.
type FactorPolicy struct {
	Observation FactorObservation `yaml:"observation" validate:"required,oneof=observe disable"`
	Override    interface{}       `yaml:"override"`
}

type ExecutionPolicy struct {
	ShadowOnly           bool `yaml:"shadow_only"`
	AllowReplay          bool `yaml:"allow_replay"`
	AllowParallelWindows bool `yaml:"allow_parallel_windows"`
}

type OutputPolicy struct {
	ArtifactNamespace   string `yaml:"artifact_namespace" validate:"required"`
	PersistIntermediate bool   `yaml:"persist_intermediate"`
}

type GovernancePolicy struct {
	DecisionRef    string `yaml:"decision_ref" validate:"required"`
	LedgerRequired bool   `yaml:"ledger_required"`
	DIDRequired    bool   `yaml:"did_required"`
}

type InvariantFlags struct {
	ForbidRealExecution    bool `yaml:"forbid_real_execution"`
	ForbidStrategyMutation bool `yaml:"forbid_strategy_mutation"`
	ForbidRegimeFallback   bool `yaml:"forbid_regime_fallback"`
}

// DayCount is a whole number of calendar days. Profiles may write it as 90,
// "90" or "90d".
type DayCount int

// UnmarshalYAML accepts integer and "<n>d" scalars
func (d *DayCount) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: day count must be a scalar", value.Line)
	}
	raw := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(value.Value)), "d")
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("line %d: invalid day count %q", value.Line, value.Value)
	}
	*d = DayCount(n)
	return nil
}

// Days returns the day count as an int
func (d DayCount) Days() int {
	return int(d)
}

// DIDSlug returns the profile id as used in documentation-impact file names
func (p *EvaluationProfile) DIDSlug() string {
	return strings.ReplaceAll(strings.ToLower(p.ProfileID), "-", "_")
}

// MarketOrDefault returns the profile market or the given fallback
func (p *EvaluationProfile) MarketOrDefault(fallback string) string {
	if p.Market != "" {
		return strings.ToUpper(p.Market)
	}
	return strings.ToUpper(fallback)
}
