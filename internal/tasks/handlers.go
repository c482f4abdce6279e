package tasks

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ternarybob/evharness/internal/evidence"
	"github.com/ternarybob/evharness/internal/interfaces"
	"github.com/ternarybob/evharness/internal/models"
	"github.com/ternarybob/evharness/internal/pipeline"
	"github.com/ternarybob/evharness/internal/profile"
)

// Task parameter names
const (
	ParamProfile   = "profile"
	ParamStart     = "start"
	ParamEnd       = "end"
	ParamMarket    = "market"
	ParamSymbols   = "symbols"
	ParamWindowDir = "window_dir"
	ParamHTML      = "html"
	ParamPDF       = "pdf"
	ParamRoots     = "roots"
	ParamOutput    = "output"
)

// ProfileRunner runs an evaluation profile
type ProfileRunner interface {
	Run(ctx context.Context, p *models.EvaluationProfile, override *models.Horizon) (*pipeline.Result, error)
}

// MarketIngester downloads series of a market into the series store
type MarketIngester interface {
	IngestMarket(ctx context.Context, marketCode string, symbols []string) error
}

// BundleRenderer renders a window bundle into other formats
type BundleRenderer interface {
	Render(windowDir string, html, pdf bool) ([]string, error)
}

// RunProfile loads the "profile" file and runs it. A run that finishes with
// outcome FAILURE is a task error.
func RunProfile(runner ProfileRunner) interfaces.TaskHandler {
	return func(ctx context.Context, params map[string]string) error {
		path, err := required(params, ParamProfile)
		if err != nil {
			return err
		}
		p, err := profile.Load(path)
		if err != nil {
			return err
		}

		var override *models.Horizon
		if params[ParamStart] != "" || params[ParamEnd] != "" {
			override = &models.Horizon{Start: params[ParamStart], End: params[ParamEnd]}
		}

		result, err := runner.Run(ctx, p, override)
		if err != nil {
			return err
		}
		if result.Run.Outcome != models.RunSuccess {
			return fmt.Errorf("run %s failed: %d of %d windows failed",
				result.Run.RunID, len(result.Run.FailedWindows()), result.Run.WindowCount)
		}
		return nil
	}
}

// ValidateProfile loads and validates the "profile" file
func ValidateProfile() interfaces.TaskHandler {
	return func(ctx context.Context, params map[string]string) error {
		path, err := required(params, ParamProfile)
		if err != nil {
			return err
		}
		_, err = profile.Load(path)
		return err
	}
}

// IngestMarket downloads the "symbols" (comma separated, default: every
// symbol of the market) of "market" (default: defaultMarket).
func IngestMarket(ingester MarketIngester, defaultMarket string) interfaces.TaskHandler {
	return func(ctx context.Context, params map[string]string) error {
		marketCode := params[ParamMarket]
		if marketCode == "" {
			marketCode = defaultMarket
		}
		return ingester.IngestMarket(ctx, strings.ToUpper(marketCode), SplitList(params[ParamSymbols]))
	}
}

// CompileReport renders the bundle in "window_dir"; "html" and "pdf" default
// to the given toggles.
func CompileReport(renderer BundleRenderer, html, pdf bool) interfaces.TaskHandler {
	return func(ctx context.Context, params map[string]string) error {
		dir, err := required(params, ParamWindowDir)
		if err != nil {
			return err
		}
		asHTML, err := boolParam(params, ParamHTML, html)
		if err != nil {
			return err
		}
		asPDF, err := boolParam(params, ParamPDF, pdf)
		if err != nil {
			return err
		}
		_, err = renderer.Render(dir, asHTML, asPDF)
		return err
	}
}

// CompareWindows aggregates every evaluated window under "roots" (comma
// separated, default: defaultRoot) into the metrics table written to
// "output" (default: defaultOutput).
func CompareWindows(defaultRoot, defaultOutput string) interfaces.TaskHandler {
	return func(ctx context.Context, params map[string]string) error {
		roots := SplitList(params[ParamRoots])
		if len(roots) == 0 {
			roots = []string{defaultRoot}
		}
		output := strings.TrimSpace(params[ParamOutput])
		if output == "" {
			output = defaultOutput
		}

		rows, err := evidence.Aggregate(roots...)
		if err != nil {
			return err
		}
		_, err = evidence.WriteMetricsTable(output, rows)
		return err
	}
}

// SplitList splits a comma separated list, dropping blanks
func SplitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func required(params map[string]string, key string) (string, error) {
	v := strings.TrimSpace(params[key])
	if v == "" {
		return "", fmt.Errorf("missing task parameter %q", key)
	}
	return v, nil
}

func boolParam(params map[string]string, key string, fallback bool) (bool, error) {
	raw, ok := params[key]
	if !ok || raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("task parameter %q: %w", key, err)
	}
	return v, nil
}
