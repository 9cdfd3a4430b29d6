// Package storage writes uploaded clips to local disk or to S3 and mints the
// share tokens and stored filenames that identify them.
package storage
