package daemon

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"clipper/internal/api"
	"clipper/internal/logging"
	"clipper/internal/services"
	"clipper/internal/storage"
	"clipper/internal/store"
	"clipper/internal/upload"
)

// Go's builtin MIME table lacks the clip containers.
var videoContentTypes = map[string]string{
	"webm": "video/webm",
	"mp4":  "video/mp4",
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := api.Health{Status: "ok", Storage: s.daemon.backend.Kind()}
	if err := s.daemon.store.Ping(r.Context()); err != nil {
		health.Status = "unhealthy"
		s.writeJSON(w, http.StatusServiceUnavailable, health)
		return
	}
	if videos, err := s.daemon.store.ListVideos(r.Context(), store.DefaultListLimit); err == nil {
		health.Videos = len(videos)
	}
	s.writeJSON(w, http.StatusOK, health)
}

func (s *apiServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("video")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "video file is too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "No video file provided")
		return
	}
	defer file.Close()

	var duration float64
	if raw := strings.TrimSpace(r.FormValue("duration")); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed > 0 {
			duration = parsed
		}
	}

	result, err := s.daemon.uploads.Upload(r.Context(), upload.Request{
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Duration:     duration,
		Body:         file,
	})
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			s.writeError(w, http.StatusBadRequest, "Invalid file type. Please upload a video file.")
			return
		}
		s.writeFailure(w, r, err, "Failed to upload video. Please try again.")
		return
	}
	s.writeJSON(w, http.StatusOK, api.UploadResponse{
		Success:    true,
		VideoID:    result.Video.ID,
		ShareToken: result.Video.ShareToken,
		ShareURL:   result.ShareURL,
		Filename:   result.Video.Filename,
	})
}

func (s *apiServer) handleView(w http.ResponseWriter, r *http.Request) {
	var req api.ViewRequest
	if err := decodeJSON(r, &req); err != nil || req.VideoID == nil || *req.VideoID == 0 {
		s.writeError(w, http.StatusBadRequest, "Video ID is required")
		return
	}
	if err := s.daemon.aggregator.IncrementView(r.Context(), *req.VideoID); err != nil {
		s.writeFailure(w, r, err, "Failed to track view")
		return
	}
	s.writeJSON(w, http.StatusOK, api.SuccessResponse{Success: true})
}

func (s *apiServer) handleProgress(w http.ResponseWriter, r *http.Request) {
	var req api.ProgressRequest
	if err := decodeJSON(r, &req); err != nil || req.VideoID == nil || *req.VideoID == 0 || req.Percentage == nil {
		s.writeError(w, http.StatusBadRequest, "Video ID and percentage are required")
		return
	}
	if err := s.daemon.aggregator.AddWatchEvent(r.Context(), *req.VideoID, *req.Percentage); err != nil {
		s.writeFailure(w, r, err, "Failed to track progress")
		return
	}
	s.writeJSON(w, http.StatusOK, api.SuccessResponse{Success: true})
}

func (s *apiServer) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	videoID, err := strconv.ParseInt(mux.Vars(r)["videoId"], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid video ID")
		return
	}
	summary, err := s.daemon.aggregator.Summary(r.Context(), videoID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Analytics not found")
			return
		}
		s.writeFailure(w, r, err, "Failed to fetch analytics")
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromSummary(summary))
}

func (s *apiServer) handleListVideos(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	videos, err := s.daemon.store.ListVideos(r.Context(), limit)
	if err != nil {
		s.writeFailure(w, r, err, "Failed to list videos")
		return
	}
	out := api.VideoList{Videos: make([]api.Video, 0, len(videos))}
	for _, video := range videos {
		out.Videos = append(out.Videos, s.videoDTO(r, video))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *apiServer) handleVideoByToken(w http.ResponseWriter, r *http.Request) {
	video, err := s.daemon.store.GetVideoByToken(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Video not found")
			return
		}
		s.writeFailure(w, r, err, "Failed to fetch video")
		return
	}
	s.writeJSON(w, http.StatusOK, s.videoDTO(r, video))
}

func (s *apiServer) handleDeleteVideo(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid video ID")
		return
	}
	video, err := s.daemon.store.DeleteVideo(r.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "Video not found")
			return
		}
		s.writeFailure(w, r, err, "Failed to delete video")
		return
	}
	if err := s.daemon.backend.Delete(r.Context(), video.Filename); err != nil {
		logging.WithContext(services.WithVideoID(r.Context(), id), s.logger).Warn("failed to delete stored clip",
			logging.String("filename", video.Filename),
			logging.Error(err),
			logging.String(logging.FieldEventType, "clip_delete_failed"),
			logging.String(logging.FieldErrorHint, "remove the file from storage manually"),
		)
	}
	s.writeJSON(w, http.StatusOK, api.SuccessResponse{Success: true})
}

func (s *apiServer) handleServeUpload(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]
	if err := storage.ValidateName(name); err != nil {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	backend := s.daemon.backend
	if _, local := backend.(*storage.Local); !local {
		target, err := backend.URL(r.Context(), name)
		if err != nil {
			s.writeFailure(w, r, err, "Failed to locate video")
			return
		}
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	rc, err := backend.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "not found")
			return
		}
		s.writeFailure(w, r, err, "Failed to read video")
		return
	}
	defer rc.Close()

	if contentType, ok := videoContentTypes[storage.Extension(name)]; ok {
		w.Header().Set("Content-Type", contentType)
	}
	if seeker, ok := rc.(io.ReadSeeker); ok {
		http.ServeContent(w, r, name, time.Time{}, seeker)
		return
	}
	_, _ = io.Copy(w, rc)
}

func (s *apiServer) videoDTO(r *http.Request, video *store.Video) api.Video {
	videoURL, err := s.daemon.backend.URL(r.Context(), video.Filename)
	if err != nil {
		videoURL = ""
	}
	return api.FromVideo(video, s.daemon.uploads.ShareURL(video.ShareToken), videoURL)
}

func decodeJSON(r *http.Request, out any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	return decoder.Decode(out)
}
