// Package preflight validates service operation inputs before expensive work
// starts. A static rule table maps (service, operation) pairs to the
// capabilities they require; Validate checks each capability against the
// fields actually populated on the input bag. Unknown pairs validate
// permissively so services opt in to checking explicitly.
//
// CheckStageOrder is advisory tooling, not enforcement: it compares a
// proposed stage sequence against the canonical order and emits warnings,
// never errors, and only for adjacent canonical pairs.
package preflight
