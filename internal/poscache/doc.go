// Package poscache keeps denormalized per-frame position snapshots in
// BadgerDB so frame reads do not hit the record store.
//
// Keys are the decimal frame id and values are JSON snapshots. The cache is
// never authoritative: a missing or unreadable entry is rebuilt from the
// record store, and concurrent rebuilds of one frame share a single load.
package poscache
