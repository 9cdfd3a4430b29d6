// Package workerpool provides a small bounded goroutine pool used for
// fire-and-forget work such as viewer analytics reports.
package workerpool
