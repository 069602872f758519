// Command clipforge is the CLI for the clipforge daemon. It talks to the
// daemon's HTTP API to submit render jobs, manage batches and exports, and
// inspect the result cache.
package main
