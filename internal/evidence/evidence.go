// Package evidence persists the camera frames behind check-in attempts.
// Files are content-addressed by SHA-256 and sharded by capture date, so
// duplicate frames collapse to one file and audits can walk a day at a time.
package evidence

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"time"

	_ "golang.org/x/image/webp"
)

// ErrInvalidImage marks payloads that do not decode as a supported image.
var ErrInvalidImage = errors.New("invalid image data")

// Store writes evidence images under a root directory.
type Store struct {
	root string
}

// NewStore creates an evidence store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("evidence directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create evidence directory: %w", err)
	}
	return &Store{root: dir}, nil
}

// Save validates and writes one image, returning an opaque reference usable
// with Open. Saving the same bytes twice returns the same reference.
func (s *Store) Save(data []byte, capturedAt time.Time) (string, error) {
	format, err := validateImage(data)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(data)
	ref := filepath.Join(
		capturedAt.UTC().Format("2006/01/02"),
		hex.EncodeToString(sum[:])+extension(format),
	)

	path := filepath.Join(s.root, ref)
	if _, err := os.Stat(path); err == nil {
		return ref, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create evidence shard: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write evidence file: %w", err)
	}
	return ref, nil
}

// Open returns the stored bytes for a reference returned by Save.
func (s *Store) Open(ref string) ([]byte, error) {
	path := filepath.Join(s.root, filepath.Clean(ref))
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read evidence file: %w", err)
	}
	return data, nil
}

// validateImage decodes the header and returns the format name.
func validateImage(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return format, nil
}

func extension(format string) string {
	switch format {
	case "jpeg":
		return ".jpg"
	case "png":
		return ".png"
	case "gif":
		return ".gif"
	case "webp":
		return ".webp"
	default:
		return ".bin"
	}
}
