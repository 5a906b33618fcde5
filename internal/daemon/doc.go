// Package daemon coordinates the long-running lector process and system
// integration points.
//
// It wires configuration, queue storage, the workflow manager, and the inbox
// watcher into a single lifecycle with flock-based locking to prevent multiple
// instances. The daemon exposes queue maintenance helpers, manages manual book
// ingestion, and emits dependency health summaries for status reporting.
//
// Keep orchestration logic here: individual workflow stages should live in
// their respective packages while the daemon focuses on startup, shutdown, and
// high level coordination.
package daemon
