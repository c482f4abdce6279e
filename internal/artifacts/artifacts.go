// Package artifacts owns the on-disk layout of evaluation output and the
// write semantics of each artifact.
package artifacts

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// ErrArtifactExists is returned when a write-once artifact is written twice
var ErrArtifactExists = errors.New("artifact already exists")

// Artifact file names within a window directory
const (
	RegimeContext     = "regime_context.json"
	FactorContext     = "factor_context.json"
	ActivationMatrix  = "strategy_activation_matrix.csv"
	DecisionTraceLog  = "decision_trace_log.csv"
	PaperPnLSummary   = "paper_pnl_summary.csv"
	CoverageReport    = "coverage_diagnostics.md"
	RejectionAnalysis = "rejection_analysis.csv"
	Bundle            = "evolution_evaluation_bundle.md"
	BundleHTML        = "evolution_evaluation_bundle.html"
	BundlePDF         = "evolution_evaluation_bundle.pdf"
)

// Cross-window comparison outputs
const (
	MetricsTableCSV      = "evolution_metrics_table.csv"
	MetricsTableMarkdown = "evolution_metrics_table.md"
)

// Layout resolves paths under the output root
type Layout struct {
	Root string
}

// NewLayout creates a layout rooted at root
func NewLayout(root string) Layout {
	return Layout{Root: root}
}

// WindowDir is <root>/evolution/evaluation/<namespace>/<window_id>
func (l Layout) WindowDir(namespace, windowID string) string {
	return filepath.Join(l.Root, "evolution", "evaluation", namespace, windowID)
}

// EvaluationDir is <root>/evolution/evaluation, the parent of every namespace
func (l Layout) EvaluationDir() string {
	return filepath.Join(l.Root, "evolution", "evaluation")
}

// MetaAnalysisDir is <root>/evolution/meta_analysis
func (l Layout) MetaAnalysisDir() string {
	return filepath.Join(l.Root, "evolution", "meta_analysis")
}

// SnapshotDir is <root>/evolution/eligibility/<namespace>/<window_id>
func (l Layout) SnapshotDir(namespace, windowID string) string {
	return filepath.Join(l.Root, "evolution", "eligibility", namespace, windowID)
}

// LedgerPath is the append-only evolution ledger
func (l Layout) LedgerPath() string {
	return filepath.Join(l.Root, "epistemic", "ledger", "evolution_log.md")
}

// ImpactDir holds documentation-impact records
func (l Layout) ImpactDir() string {
	return filepath.Join(l.Root, "impact")
}

// ResetDir removes and recreates a directory so that a window starts from a
// clean slate on every run.
func ResetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to clear %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return nil
}

// WriteOnce creates path exclusively; an existing file yields ErrArtifactExists
func WriteOnce(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrArtifactExists, path)
		}
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// Write replaces path atomically via a temp file and rename
func Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set mode on %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

// MarshalJSON encodes v with two-space indentation and a trailing newline
func MarshalJSON(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteJSONOnce encodes v into a write-once artifact
func WriteJSONOnce(path string, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return WriteOnce(path, data)
}

// WriteJSON encodes v and replaces path atomically
func WriteJSON(path string, v interface{}) error {
	data, err := MarshalJSON(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return Write(path, data)
}

// ReadJSON decodes a JSON artifact. A missing file wraps fs.ErrNotExist.
func ReadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}

// Exists reports whether path is a regular file
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Info describes one artifact in a window directory
type Info struct {
	Name   string
	Path   string
	Size   int64
	SHA256 string
}

// List returns the artifacts of a directory sorted by name. Temp files are
// skipped.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var infos []Info
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) == ".tmp" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		sum := sha256.Sum256(data)
		infos = append(infos, Info{
			Name:   entry.Name(),
			Path:   path,
			Size:   int64(len(data)),
			SHA256: hex.EncodeToString(sum[:]),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos, nil
}

// Prune removes every file in dir except the named ones
func Prune(dir string, keep ...string) error {
	keepSet := make(map[string]bool, len(keep))
	for _, name := range keep {
		keepSet[name] = true
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || keepSet[entry.Name()] {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
	}
	return nil
}
