// Package analytics tracks how far viewers watch shared clips.
//
// On the viewer side a PlaybackSession reports one view per playback and
// throttles progress samples to 10% milestone crossings, sending reports in
// the background through a worker pool. On the server side an Aggregator
// increments view counts, appends watch events rounded to two decimals, and
// derives the average completion when summaries are read.
package analytics
