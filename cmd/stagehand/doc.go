// Command stagehand runs the show-control editor server and offers CLI
// access to its frames, roster, and change feed.
//
// `stagehand serve` runs the server in the foreground. Every other command
// talks to a running server over HTTP; --server overrides the address taken
// from server.api_bind and --user sets the editor identity sent as
// X-User-ID.
package main
