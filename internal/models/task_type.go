package models

// TaskType names a scheduled task handler. Handlers are registered explicitly
// against these values; there is no reflection-based dispatch.
type TaskType string

const (
	TaskTypeRunProfile      TaskType = "run_profile"      // Run the evaluation pipeline for a profile file
	TaskTypeValidateProfile TaskType = "validate_profile" // Validate a profile without running it
	TaskTypeIngestMarket    TaskType = "ingest_market"    // Download EOD series for a market
	TaskTypeCompileReport   TaskType = "compile_report"   // Render a window bundle to HTML/PDF
	TaskTypeCompareWindows  TaskType = "compare_windows"  // Aggregate evaluated windows into the metrics table
)

// IsValid checks if the TaskType is a known type
func (t TaskType) IsValid() bool {
	switch t {
	case TaskTypeRunProfile, TaskTypeValidateProfile, TaskTypeIngestMarket, TaskTypeCompileReport, TaskTypeCompareWindows:
		return true
	}
	return false
}

func (t TaskType) String() string {
	return string(t)
}

// AllTaskTypes returns all known task types
func AllTaskTypes() []TaskType {
	return []TaskType{
		TaskTypeRunProfile,
		TaskTypeValidateProfile,
		TaskTypeIngestMarket,
		TaskTypeCompileReport,
		TaskTypeCompareWindows,
	}
}
