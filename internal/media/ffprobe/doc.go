// Package ffprobe runs ffprobe and decodes the subset of its JSON output that
// clipper needs to measure clip durations and detect audio tracks.
package ffprobe
