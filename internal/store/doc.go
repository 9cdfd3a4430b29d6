// Package store persists uploaded videos and their watch analytics in SQLite.
//
// Each video owns exactly one analytics row, created in the same transaction
// as the video and removed with it through ON DELETE CASCADE. Watch events
// are kept as a JSON array per video; appends read, extend and rewrite the
// array inside one transaction. The schema is embedded from schema.sql and
// guarded by schema_version; when the schema changes bump schemaVersion.
package store
