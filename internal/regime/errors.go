package regime

import (
	"fmt"

	"github.com/ternarybob/evharness/internal/models"
)

// RegimeContextError fails a window whose regime cannot be established or
// read. There is no fallback regime.
type RegimeContextError struct {
	WindowID  string
	Reason    string
	Viability *models.Viability
	Err       error
}

func (e *RegimeContextError) Error() string {
	msg := fmt.Sprintf("regime context error for %s: %s", e.WindowID, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RegimeContextError) Unwrap() error {
	return e.Err
}
