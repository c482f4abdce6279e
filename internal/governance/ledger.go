package governance

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/evharness/internal/models"
)

// Ledger appends run entries to the evolution log. The file and its parent
// directories are created on first write; existing entries are never
// rewritten.
type Ledger struct {
	path string
	mu   sync.Mutex
}

// NewLedger creates a ledger writing to path
func NewLedger(path string) *Ledger {
	return &Ledger{path: path}
}

// Path returns the ledger file path
func (l *Ledger) Path() string {
	return l.path
}

// Append writes the entry for a finished run
func (l *Ledger) Append(p *models.EvaluationProfile, run *models.RunRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create ledger directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open ledger: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(LedgerEntry(p, run)); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// LedgerEntry renders the markdown entry for a run
func LedgerEntry(p *models.EvaluationProfile, run *models.RunRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n### [%s] EV-RUN Profile Execution\n", run.FinishedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "- **Run ID**: `%s`\n", run.RunID)
	fmt.Fprintf(&b, "- **Profile**: `%s` (v%s)\n", p.ProfileID, p.Version)
	fmt.Fprintf(&b, "- **Mode**: %s\n", p.Mode.Type)
	fmt.Fprintf(&b, "- **Market**: %s\n", run.Market)
	fmt.Fprintf(&b, "- **Windows Executed**: %d\n", run.WindowCount)
	fmt.Fprintf(&b, "- **Decision Ref**: `%s`\n", p.Governance.DecisionRef)
	fmt.Fprintf(&b, "- **Outcome**: %s\n", run.Outcome)
	for _, w := range run.FailedWindows() {
		fmt.Fprintf(&b, "- **Window Error** `%s`: %s\n", w.WindowID, w.Error)
	}
	return b.String()
}
