// Package capture records the screen, optionally with microphone audio, into a
// single WebM clip.
//
// A Composer acquires the display track and an optional microphone track from
// a Devices implementation, degrading to video only when the microphone is
// refused. A Session drives the Idle, Requesting, Recording, Stopping, Ready
// and Error states through an explicit transition table, buffers recorder
// chunks, tracks elapsed time from the captured start timestamp, and
// finalizes exactly one Clip per run. Explicit Stop and the display track
// ending share the same stop path, and every exit path releases the tracks.
//
// The production backend runs ffmpeg input devices (FFmpegDevices,
// FFmpegRecorders); tests substitute in-memory fakes.
package capture
