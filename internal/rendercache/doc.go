// Package rendercache deduplicates identical pipeline runs. Requests are
// reduced to a deterministic fingerprint over their output-affecting fields;
// terminal results are stored under that fingerprint and replayed on
// identical submissions so no stage executor runs twice for the same work.
//
// The cache is advisory. Every failure path (missing file, corrupt entry,
// persistence error) degrades to a miss, never to a pipeline failure.
// Entries are bounded by count with least-recently-accessed eviction, and a
// periodic sweep drops entries older than the configured TTL.
package rendercache
