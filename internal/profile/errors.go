package profile

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidProfile is matched by every profile validation failure
var ErrInvalidProfile = errors.New("invalid evaluation profile")

// ValidationError collects every violation found in a profile. A profile with
// any violation is rejected as a whole.
type ValidationError struct {
	Path       string
	Violations []string
}

func (e *ValidationError) Error() string {
	prefix := "profile validation failed"
	if e.Path != "" {
		prefix = fmt.Sprintf("profile %s validation failed", e.Path)
	}
	if len(e.Violations) == 1 {
		return fmt.Sprintf("%s: %s", prefix, e.Violations[0])
	}
	return fmt.Sprintf("%s with %d violations: %s", prefix, len(e.Violations), strings.Join(e.Violations, "; "))
}

// Is lets errors.Is(err, ErrInvalidProfile) match
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidProfile
}
