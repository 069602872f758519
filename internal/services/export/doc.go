// Package export produces final deliverables: it muxes pipeline artifacts
// into the finished clip and re-encodes existing videos for export batches.
package export
