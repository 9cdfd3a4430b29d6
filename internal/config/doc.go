// Package config loads, normalizes, and validates clipper configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CLIPPER_BASE_URL and the AWS_* storage variables. The Config type centralizes
// every knob the CLI and the clipperd daemon need, so capture, trim, upload and
// analytics code all see the same sanitized values.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, canonical formats, and clear validation errors.
package config
