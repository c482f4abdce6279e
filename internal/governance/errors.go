package governance

import "fmt"

// InvariantError reports a disagreement between a profile or strategy
// contract and the shadow-only safety rules. It is always fatal.
type InvariantError struct {
	Subject string // profile or strategy id
	Rule    string
	Detail  string
}

func (e *InvariantError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("Invariant Violation [%s]: %s", e.Subject, e.Rule)
	}
	return fmt.Sprintf("Invariant Violation [%s]: %s (%s)", e.Subject, e.Rule, e.Detail)
}
