// Package api defines the wire-format types for the clipperd HTTP API and a
// client for it.
//
// DTOs use camelCase JSON tags for browser consumers. Timestamps use RFC3339
// with milliseconds. Converters translate store and analytics models so the
// HTTP layer never exposes internal types directly.
//
// Client implements analytics.Reporter so viewer sessions can report straight
// to the daemon. Idempotent calls retry with exponential backoff and jitter on
// network errors and 429/5xx responses; uploads are sent once.
package api
