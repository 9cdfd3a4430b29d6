// Package services defines shared error markers and context helpers used by
// capture, transcode, analytics and the HTTP API.
//
// Key responsibilities:
//   - Context helpers that stamp video IDs, session IDs and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper, and HTTPStatus which turns
//     a marked error into the API response code.
package services
