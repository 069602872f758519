// Package queue persists jobs and batches in SQLite and provides the
// synchronized registry the pipeline engine and batch runner mutate.
//
// A Job records one request's walk through the render pipeline: its
// batch-level Status (pending through completed/failed/cancelled), its
// pipeline Stage, progress, accumulated stage results, and terminal error.
// A Batch groups jobs processed under a shared concurrency bound and owns
// the roll-up counters. All counter updates go through single UPDATE
// statements so concurrent job goroutines never read-modify-write shared
// state.
package queue
