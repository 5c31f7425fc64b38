// Package server exposes the frame, roster, and notifier services over
// HTTP.
//
// Mutations identify the acting user through the X-User-ID header. Change
// notifications are available as websocket streams under
// /api/subscriptions/{topic} and as a long-poll feed under /api/events.
// Errors are returned as api.ErrorResponse bodies whose status code follows
// the error kind.
package server
