// Package store persists performers, parts, timeline frames, position data, and
// edit-lock markers in SQLite.
//
// The Store manages the database connection, schema initialization, busy
// retries, and multi-row transactions. It is the single durable source of
// truth: the position cache and every notification are projections of what is
// committed here.
//
// Lookups return (nil, nil) when a record is absent. Uniqueness violations are
// reported through ErrDuplicateStart and ErrDuplicateName so callers can turn
// them into domain errors without parsing driver messages.
//
// Schema changes bump schemaVersion in schema.go; users delete the database to
// adopt the new schema.
package store
