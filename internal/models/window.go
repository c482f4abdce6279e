package models

import (
	"fmt"
	"time"
)

// Window is one concrete evaluation window cut from the profile horizon
type Window struct {
	WindowID string    `json:"window_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// WindowSpan is the date-only view of a window written into artifacts
type WindowSpan struct {
	WindowID string `json:"window_id"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

// Span returns the artifact representation of the window
func (w Window) Span() WindowSpan {
	return WindowSpan{
		WindowID: w.WindowID,
		Start:    w.Start.Format(DateLayout),
		End:      w.End.Format(DateLayout),
	}
}

// Days returns the calendar length of the window
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours() / 24)
}

func (w Window) String() string {
	return fmt.Sprintf("%s [%s .. %s]", w.WindowID, w.Start.Format(DateLayout), w.End.Format(DateLayout))
}

// NewWindowID encodes the ordinal and bounds of a window
func NewWindowID(ordinal int, start, end time.Time) string {
	return fmt.Sprintf("W%03d_%s_%s", ordinal, start.Format("20060102"), end.Format("20060102"))
}
