// Package daemon wires the queue store, batch runner, result cache, and HTTP
// API into a single background process guarded by a file lock.
package daemon
