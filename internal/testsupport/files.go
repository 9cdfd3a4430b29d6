package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// ebmlMagic opens every Matroska/WebM file.
var ebmlMagic = []byte{0x1a, 0x45, 0xdf, 0xa3}

// WriteClip writes a fake webm fixture of size bytes (at least the four EBML
// magic bytes) under dir and returns its path. The payload is not decodable;
// it only needs to look like a clip to upload and storage code.
func WriteClip(t testing.TB, dir, name string, size int64) string {
	t.Helper()

	if size < int64(len(ebmlMagic)) {
		size = int64(len(ebmlMagic))
	}
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	data := make([]byte, size)
	copy(data, ebmlMagic)
	for i := len(ebmlMagic); i < len(data); i++ {
		data[i] = byte(i % 251)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
