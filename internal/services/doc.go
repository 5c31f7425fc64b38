// Package services defines shared error markers consumed by the frame and
// roster services and the HTTP transport.
//
// Key responsibilities:
//   - Sentinel markers (validation, not found, conflict) plus the Wrap helper
//     that tags a failure with component and operation context.
//   - Kind, which classifies any error returned by a service into the stable
//     strings the API reports to clients.
//
// Domain errors that carry data (overlap, lock conflict) implement
// ErrorKind() themselves; Kind honours that before falling back to markers.
package services
