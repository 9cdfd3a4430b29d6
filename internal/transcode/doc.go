// Package transcode trims clips into shareable WebM or MP4 files.
//
// An Engine owns one lazily loaded Runtime with a private scratch filesystem.
// Trim writes the source under a fixed input name, runs the transcoder with a
// codec pair chosen by the output format, reads the result back, and deletes
// both scratch files before returning. Trims are serialized because they share
// those file names. Shared returns the process-wide engine.
//
// FFmpegRuntime is the production runtime; tests use an in-memory fake.
package transcode
