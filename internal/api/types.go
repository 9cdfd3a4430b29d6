package api

import "clipper/internal/analytics"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Video describes an uploaded clip in a transport-friendly format.
type Video struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	Filename         string   `json:"filename"`
	OriginalFilename string   `json:"originalFilename"`
	ShareToken       string   `json:"shareToken"`
	ShareURL         string   `json:"shareUrl"`
	VideoURL         string   `json:"videoUrl,omitempty"`
	Duration         *float64 `json:"duration,omitempty"`
	Size             int64    `json:"size"`
	MIMEType         string   `json:"mimeType"`
	CreatedAt        string   `json:"createdAt,omitempty"`
}

// VideoList wraps GET /api/videos.
type VideoList struct {
	Videos []Video `json:"videos"`
}

// UploadResponse is returned by POST /api/upload.
type UploadResponse struct {
	Success    bool   `json:"success"`
	VideoID    int64  `json:"videoId"`
	ShareToken string `json:"shareToken"`
	ShareURL   string `json:"shareUrl"`
	Filename   string `json:"filename"`
}

// ViewRequest is the body of POST /api/analytics/view.
type ViewRequest struct {
	VideoID *int64 `json:"videoId"`
}

// ProgressRequest is the body of POST /api/analytics/progress. Pointer fields
// distinguish a missing value from zero.
type ProgressRequest struct {
	VideoID    *int64   `json:"videoId"`
	Percentage *float64 `json:"percentage"`
}

// SuccessResponse acknowledges analytics reports and deletes.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// Analytics is returned by GET /api/analytics/{videoId}.
type Analytics struct {
	VideoID       int64                  `json:"videoId"`
	Views         int                    `json:"views"`
	WatchEvents   []analytics.WatchEvent `json:"watchEvents"`
	AvgCompletion float64                `json:"avgCompletion"`
	LastViewed    *string                `json:"lastViewed"`
}

// ErrorResponse carries a failure message.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Health is returned by GET /health.
type Health struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
	Videos  int    `json:"videos"`
}
