package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"clipper/internal/config"
	"clipper/internal/logging"
	"clipper/internal/services"
)

// maxUploadBytes bounds one multipart upload.
const maxUploadBytes = 1 << 30

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   cfg.Server.Bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(cfg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes(cfg *config.Config) http.Handler {
	token := cfg.Server.APIToken
	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/upload", s.requireToken(token, s.handleUpload)).Methods(http.MethodPost)
	api.HandleFunc("/analytics/view", s.handleView).Methods(http.MethodPost)
	api.HandleFunc("/analytics/progress", s.handleProgress).Methods(http.MethodPost)
	api.HandleFunc("/analytics/{videoId}", s.handleAnalytics).Methods(http.MethodGet)
	api.HandleFunc("/videos", s.handleListVideos).Methods(http.MethodGet)
	api.HandleFunc("/videos/{token}", s.handleVideoByToken).Methods(http.MethodGet)
	api.HandleFunc("/videos/{id:[0-9]+}", s.requireToken(token, s.handleDeleteVideo)).Methods(http.MethodDelete)

	r.HandleFunc("/uploads/{filename}", s.handleServeUpload).Methods(http.MethodGet, http.MethodHead)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.Use(s.requestIDMiddleware)

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{originOf(cfg.Server.BaseURL)}
	}
	cors := handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: s.logger}),
		handlers.PrintRecoveryStack(true),
	)
	access := func(h http.Handler) http.Handler {
		return handlers.CustomLoggingHandler(io.Discard, h, s.logAccess)
	}
	return access(recovery(cors(r)))
}

func (s *apiServer) start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) logAccess(_ io.Writer, params handlers.LogFormatterParams) {
	level := slog.LevelDebug
	if params.StatusCode >= http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	s.logger.Log(params.Request.Context(), level, "http request",
		logging.Args(
			logging.String("method", params.Request.Method),
			logging.String("path", params.URL.Path),
			logging.Int("status", params.StatusCode),
			logging.Int("bytes", params.Size),
			logging.Duration("elapsed", time.Since(params.TimeStamp)),
		)...,
	)
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeFailure maps a marked error to a status. Server-side failures are
// logged and reported with fallback instead of the internal message.
func (s *apiServer) writeFailure(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := services.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.logger).Error(fallback,
			logging.Error(err),
			logging.String(logging.FieldEventType, "request_failed"),
		)
		s.writeError(w, status, fallback)
		return
	}
	s.writeError(w, status, err.Error())
}

type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(values ...any) {
	l.logger.Error("recovered from panic", logging.String("detail", fmt.Sprint(values...)))
}

func originOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return raw
	}
	return parsed.Scheme + "://" + parsed.Host
}
