// Package frames implements the position frame lifecycle.
//
// Every mutation runs the same pipeline: start validation against the
// timeline, the edit lock where the operation needs one, the record store
// write, a position cache refresh or eviction, and finally a map event
// followed by a record event. Overlap and lock conflicts are reported
// before anything is written. Publish failures are logged and never undo a
// committed write.
package frames
