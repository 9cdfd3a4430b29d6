package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrPermissionDenied marks a refused screen or microphone capture request.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrDeviceUnavailable marks a missing or failed capture source.
	ErrDeviceUnavailable = errors.New("device unavailable")
	// ErrEngineLoad marks a transcoding runtime that failed to initialize.
	ErrEngineLoad = errors.New("engine load failure")
	// ErrTranscode marks bad trim arguments, corrupt input or codec errors.
	ErrTranscode = errors.New("transcode failure")
	// ErrReporting marks best-effort view and progress calls that failed.
	ErrReporting = errors.New("reporting failure")

	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// HTTPStatus maps a marked error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrTranscode):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrDeviceUnavailable), errors.Is(err, ErrEngineLoad), errors.Is(err, ErrTransient):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
