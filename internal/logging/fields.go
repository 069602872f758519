package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for job identifiers.
	FieldJobID = "job_id"
	// FieldBatchID is the standardized structured logging key for batch identifiers.
	FieldBatchID = "batch_id"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldEventType tags log records with a machine-readable event class.
	FieldEventType = "event_type"
	// FieldErrorHint carries operator guidance attached to error records.
	FieldErrorHint = "error_hint"
	// FieldFingerprint is the standardized structured logging key for cache fingerprints.
	FieldFingerprint = "fingerprint"
)
