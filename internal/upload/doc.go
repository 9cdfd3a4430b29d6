// Package upload accepts finished clips, stores them under a fresh share
// token and records the video and its empty analytics row.
package upload
