// Package logs reads the clipper log file for `clipper logs`.
//
// Last returns the final lines with bounded memory, Since reads everything
// after a byte offset, and Follow polls for appended lines until its context
// ends. A file that shrinks below the remembered offset (truncated or rotated
// by logrotate copytruncate) is re-read from the start.
package logs
