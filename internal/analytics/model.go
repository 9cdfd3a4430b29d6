package analytics

import (
	"math"
	"time"
)

// WatchEvent is one recorded progress sample. Timestamp is unix milliseconds.
type WatchEvent struct {
	Timestamp  int64   `json:"timestamp"`
	Percentage float64 `json:"percentage"`
}

// Record is the persisted analytics row for one video.
type Record struct {
	VideoID     int64
	Views       int
	WatchEvents []WatchEvent
	LastViewed  *time.Time
}

// Summary is a Record plus the derived average completion.
type Summary struct {
	VideoID       int64
	Views         int
	WatchEvents   []WatchEvent
	AvgCompletion float64
	LastViewed    *time.Time
}

// Round2 rounds to two decimal places.
func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// AverageCompletion is the mean percentage of events rounded to two
// decimals, or 0 when there are no events.
func AverageCompletion(events []WatchEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	sum := 0.0
	for _, event := range events {
		sum += event.Percentage
	}
	return Round2(sum / float64(len(events)))
}

// Summarize derives a Summary from a Record.
func Summarize(record Record) Summary {
	events := record.WatchEvents
	if events == nil {
		events = []WatchEvent{}
	}
	return Summary{
		VideoID:       record.VideoID,
		Views:         record.Views,
		WatchEvents:   events,
		AvgCompletion: AverageCompletion(events),
		LastViewed:    record.LastViewed,
	}
}
