package profile

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/evharness/internal/market"
	"github.com/ternarybob/evharness/internal/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report yaml field names so violations read like the profile document
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate runs structural then logical validation and returns a
// *ValidationError listing every violation, or nil.
func Validate(p *models.EvaluationProfile) error {
	var violations []string

	if err := validate.Struct(p); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return &ValidationError{Violations: []string{fmt.Sprintf("Configuration Error: %v", err)}}
		}
		for _, fe := range fieldErrs {
			violations = append(violations, describeFieldError(fe))
		}
	}

	// Logical checks need the required sections; structural errors above
	// already name any missing ones.
	if p.Mode != nil && p.Regime != nil && p.Windowing != nil && p.Factor != nil &&
		p.Execution != nil && p.Governance != nil && p.Invariants != nil {
		violations = append(violations, invariantViolations(p)...)
		violations = append(violations, modeViolations(p)...)
		violations = append(violations, windowingViolations(p.Windowing)...)
	}
	violations = append(violations, horizonViolations(p.Horizon)...)

	if p.Market != "" {
		if _, ok := market.Lookup(p.Market); !ok {
			violations = append(violations, fmt.Sprintf("Configuration Error: unknown market %q (known: %s)",
				p.Market, strings.Join(market.Codes(), ", ")))
		}
	}

	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	// Namespace is "EvaluationProfile.windowing.type"; drop the root type name
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Configuration Error: %s is required", field)
	case "oneof":
		return fmt.Sprintf("Configuration Error: %s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "datetime":
		return fmt.Sprintf("Configuration Error: %s must be a YYYY-MM-DD date, got %q", field, fe.Value())
	default:
		return fmt.Sprintf("Configuration Error: %s failed %s validation", field, fe.Tag())
	}
}

// Safety flags must be literally true; absence decodes to false and fails.
func invariantViolations(p *models.EvaluationProfile) []string {
	var violations []string
	require := func(ok bool, field string) {
		if !ok {
			violations = append(violations, fmt.Sprintf("Invariant Violation: %s must be True", field))
		}
	}
	require(p.Execution.ShadowOnly, "execution.shadow_only")
	require(p.Invariants.ForbidRealExecution, "invariants.forbid_real_execution")
	require(p.Invariants.ForbidStrategyMutation, "invariants.forbid_strategy_mutation")
	require(p.Invariants.ForbidRegimeFallback, "invariants.forbid_regime_fallback")

	if !p.Governance.LedgerRequired {
		violations = append(violations, "Governance Violation: governance.ledger_required must be True")
	}
	if !p.Governance.DIDRequired {
		violations = append(violations, "Governance Violation: governance.did_required must be True")
	}
	return violations
}

func modeViolations(p *models.EvaluationProfile) []string {
	var violations []string
	switch p.Mode.Type {
	case models.ModeHistorical:
		if !p.Regime.Detection {
			violations = append(violations, "Configuration Error: Historical mode requires regime.detection=True")
		}
		if p.Regime.Override != nil {
			violations = append(violations, "Configuration Error: Historical mode forbids regime.override")
		}
	case models.ModeForcedRegime:
		if p.Regime.Detection {
			violations = append(violations, "Configuration Error: Forced Regime mode requires regime.detection=False")
		}
		if p.Regime.Override == nil {
			violations = append(violations, "Configuration Error: Forced Regime mode requires regime.override")
		} else if strings.TrimSpace(p.Regime.Override.RegimeCode) == "" {
			violations = append(violations, "Configuration Error: Forced Regime mode requires valid regime_code")
		}
	}

	if p.Factor.Override != nil {
		violations = append(violations, "Configuration Error: factor.override must be null (factor forcing is forbidden)")
	}
	return violations
}

func windowingViolations(w *models.WindowingPolicy) []string {
	var violations []string
	switch w.Type {
	case models.WindowingRolling:
		if w.WindowSize <= 0 {
			violations = append(violations, "Configuration Error: Rolling window requires a positive window_size")
		}
		if w.StepSize <= 0 {
			violations = append(violations, "Configuration Error: Rolling window requires a positive step_size")
		}
	case models.WindowingAnchored:
		if len(w.AnchorDates) == 0 {
			violations = append(violations, "Configuration Error: Anchored window requires anchor_dates")
		}
		if w.WindowSize < 0 {
			violations = append(violations, "Configuration Error: window_size must not be negative")
		}
	case models.WindowingSingle:
		if w.StepSize != 0 || len(w.AnchorDates) > 0 {
			violations = append(violations, "Configuration Error: Single window should not have step_size or anchor_dates")
		}
	}
	return violations
}

func horizonViolations(h *models.Horizon) []string {
	if h == nil {
		return nil
	}
	start, errStart := time.Parse(models.DateLayout, h.Start)
	end, errEnd := time.Parse(models.DateLayout, h.End)
	if errStart != nil || errEnd != nil {
		// reported by the datetime tag
		return nil
	}
	if !end.After(start) {
		return []string{fmt.Sprintf("Configuration Error: horizon.end %s must be after horizon.start %s", h.End, h.Start)}
	}
	return nil
}
