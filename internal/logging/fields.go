package logging

// Standardized structured logging keys.
const (
	FieldComponent = "component"
	// FieldRunID identifies one apply run.
	FieldRunID = "run_id"
	// FieldJobID identifies one queued job.
	FieldJobID = "job_id"
	// FieldPhase names the run phase (scan, rename, queue).
	FieldPhase = "phase"
	// FieldEventType classifies a log line for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldImpact states what a warning means for the user's files.
	FieldImpact = "impact"
)
