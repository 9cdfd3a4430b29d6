package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"clipper/internal/services"
)

// Backend stores uploaded clips under flat names.
type Backend interface {
	// Put writes r under name.
	Put(ctx context.Context, name, contentType string, r io.Reader, size int64) error
	// Open returns a reader for name; errors wrap services.ErrNotFound when absent.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// Delete removes name. Missing objects are not an error.
	Delete(ctx context.Context, name string) error
	// URL returns where viewers fetch name.
	URL(ctx context.Context, name string) (string, error)
	// Kind reports the configured backend name.
	Kind() string
}

// FileName builds the stored name `<token>-<unixms>.<ext>`. The extension is
// taken from the original filename and defaults to webm.
func FileName(token, originalName string, at time.Time) string {
	return fmt.Sprintf("%s-%d.%s", token, at.UnixMilli(), Extension(originalName))
}

// Extension returns the lowercased extension of name without the dot, or
// "webm" when name has none.
func Extension(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(strings.TrimSpace(name)), ".")
	ext = strings.ToLower(ext)
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		return "webm"
	}
	return ext
}

// ValidateName rejects names that could escape the storage root.
func ValidateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return services.Wrap(services.ErrValidation, "storage", "validate name", fmt.Sprintf("invalid object name %q", name), nil)
	}
	return nil
}
