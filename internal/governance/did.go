package governance

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ternarybob/evharness/internal/artifacts"
	"github.com/ternarybob/evharness/internal/models"
)

// DIDFileName is <date>__evolution__<profile slug>_exec.md
func DIDFileName(p *models.EvaluationProfile, at time.Time) string {
	return fmt.Sprintf("%s__evolution__%s_exec.md", at.UTC().Format(models.DateLayout), p.DIDSlug())
}

// WriteDID writes the documentation-impact declaration of a run into dir and
// returns its path. A later run on the same day replaces it.
func WriteDID(dir string, p *models.EvaluationProfile, run *models.RunRecord, windowNames []string) (string, error) {
	path := filepath.Join(dir, DIDFileName(p, run.FinishedAt))
	if err := artifacts.Write(path, []byte(DIDContent(p, run, windowNames))); err != nil {
		return "", fmt.Errorf("failed to write documentation impact declaration: %w", err)
	}
	return path, nil
}

// DIDContent renders the declaration body
func DIDContent(p *models.EvaluationProfile, run *models.RunRecord, windowNames []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Documentation Impact Declaration: %s Execution\n\n", p.ProfileID)
	fmt.Fprintf(&b, "**Date**: %s\n", run.FinishedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**Run ID**: %s\n", run.RunID)
	fmt.Fprintf(&b, "**Profile ID**: %s\n", p.ProfileID)
	fmt.Fprintf(&b, "**Version**: %s\n", p.Version)
	fmt.Fprintf(&b, "**Status**: %s\n\n", run.Outcome)

	b.WriteString("## Execution Summary\n")
	fmt.Fprintf(&b, "Execution of evaluation profile `%s` in `%s` mode.\n\n", p.ProfileID, p.Mode.Type)
	fmt.Fprintf(&b, "- **Window Count**: %d\n", run.WindowCount)
	fmt.Fprintf(&b, "- **Failed Windows**: %d\n", len(run.FailedWindows()))
	fmt.Fprintf(&b, "- **Artifact Namespace**: `%s`\n", p.Outputs.ArtifactNamespace)
	fmt.Fprintf(&b, "- **Shadow Only**: %t\n\n", p.Execution.ShadowOnly)

	b.WriteString("## Artifacts Generated\n")
	b.WriteString("All artifacts are located under:\n")
	fmt.Fprintf(&b, "`evolution/evaluation/%s/`\n\n", p.Outputs.ArtifactNamespace)
	b.WriteString("Each window contains the following artifacts:\n")
	for _, name := range windowNames {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	b.WriteString("\n")

	b.WriteString("## Governance Check\n")
	fmt.Fprintf(&b, "- [x] **%s Compliance**: Shadow-only execution verified.\n", p.Governance.DecisionRef)
	b.WriteString("- [x] **Ledger Entry**: Recorded in `evolution_log.md`.\n")
	b.WriteString("- [x] **Invariant Check**: No strategy mutation or real execution detected.\n")
	return b.String()
}
