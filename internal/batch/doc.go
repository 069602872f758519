// Package batch schedules groups of jobs against the pipeline engine with a
// bounded worker width. Creation returns immediately; execution proceeds in
// fixed-size chunks where every job in a chunk settles before the next chunk
// starts. Export batches re-encode finished videos and retry transient
// failures up to a configured attempt bound.
package batch
