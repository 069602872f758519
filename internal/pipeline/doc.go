// Package pipeline drives a single render job through its stages: optional
// script generation, background video processing, narration synthesis,
// subtitle transcription, and final compilation. The engine owns stage
// ordering, progress checkpoints, per-stage deadlines, and the result cache
// short-circuit; it persists the job after every checkpoint so observers see
// live progress.
package pipeline
