// Package preflight provides readiness checks for the directories and external
// binaries clipper depends on.
//
// `clipper doctor` runs RunAll and renders the results; `clipperd` runs the
// directory checks at startup so a misconfigured data directory fails fast.
// Optional results (ffprobe, mp4 encoders) never fail the run on their own.
package preflight
