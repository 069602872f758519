// Package services holds the shared error taxonomy and context annotation
// helpers used by the stage executor wrappers and the orchestration layers.
//
// Stage executors live in subpackages (script, ffmpeg, tts, whisper, export)
// and are thin wrappers around external tools. They classify failures with
// the sentinel errors defined here so the pipeline, batch runner, and API
// can map them to retry and response semantics without string matching.
package services
