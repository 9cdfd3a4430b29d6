package api

import (
	"clipper/internal/analytics"
	"clipper/internal/store"
	"clipper/internal/upload"
)

// FromVideo converts a store record to its API representation. shareURL and
// videoURL are resolved by the caller since they depend on configuration.
func FromVideo(video *store.Video, shareURL, videoURL string) Video {
	if video == nil {
		return Video{}
	}
	dto := Video{
		ID:               video.ID,
		Title:            upload.DisplayTitle(video.OriginalFilename),
		Filename:         video.Filename,
		OriginalFilename: video.OriginalFilename,
		ShareToken:       video.ShareToken,
		ShareURL:         shareURL,
		VideoURL:         videoURL,
		Size:             video.Size,
		MIMEType:         video.MIMEType,
	}
	if video.Duration > 0 {
		d := video.Duration
		dto.Duration = &d
	}
	if !video.CreatedAt.IsZero() {
		dto.CreatedAt = video.CreatedAt.UTC().Format(dateTimeFormat)
	}
	return dto
}

// FromSummary converts an analytics summary.
func FromSummary(summary analytics.Summary) Analytics {
	dto := Analytics{
		VideoID:       summary.VideoID,
		Views:         summary.Views,
		WatchEvents:   summary.WatchEvents,
		AvgCompletion: summary.AvgCompletion,
	}
	if dto.WatchEvents == nil {
		dto.WatchEvents = []analytics.WatchEvent{}
	}
	if summary.LastViewed != nil {
		ts := summary.LastViewed.UTC().Format(dateTimeFormat)
		dto.LastViewed = &ts
	}
	return dto
}
