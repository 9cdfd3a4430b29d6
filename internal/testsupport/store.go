package testsupport

import (
	"context"
	"fmt"
	"testing"

	"clipper/internal/config"
	"clipper/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// NewVideo inserts a webm video whose filename derives from token.
func NewVideo(t testing.TB, st *store.Store, token string) *store.Video {
	t.Helper()

	video, err := st.CreateVideo(context.Background(), store.NewVideo{
		Filename:         fmt.Sprintf("%s-1700000000000.webm", token),
		OriginalFilename: "recording-1700000000000.webm",
		ShareToken:       token,
		Duration:         12.5,
		Size:             2048,
		MIMEType:         "video/webm",
	})
	if err != nil {
		t.Fatalf("store.CreateVideo: %v", err)
	}
	return video
}
