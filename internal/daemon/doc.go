// Package daemon coordinates the long-running Stagehand server process.
//
// It wires configuration, the record store, the position cache, the change
// notifier, and the HTTP server into a single lifecycle with flock-based
// locking to prevent multiple instances against the same data directory.
// Run serves requests and runs cache maintenance in one errgroup so that a
// failure in either stops both.
//
// Keep orchestration logic here: frame and roster rules live in their own
// packages while the daemon focuses on startup, shutdown, and wiring.
package daemon
