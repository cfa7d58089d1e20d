package domain

import (
	"errors"
	"fmt"
)

const (
	MinMediaFiles = 1
	MaxMediaFiles = 5
)

var allowedMediaTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// ErrInvalidMedia wraps every media validation failure.
var ErrInvalidMedia = errors.New("invalid media")

// MediaFile is an uploaded file before storage.
type MediaFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// StoredMedia is where the media storage provider put a file.
type StoredMedia struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// ValidateMedia checks count, declared type and filename uniqueness.
func ValidateMedia(files []MediaFile) error {
	if len(files) < MinMediaFiles || len(files) > MaxMediaFiles {
		return fmt.Errorf("%w: expected %d to %d files, got %d", ErrInvalidMedia, MinMediaFiles, MaxMediaFiles, len(files))
	}
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		if f.Filename == "" {
			return fmt.Errorf("%w: file without a name", ErrInvalidMedia)
		}
		if _, ok := allowedMediaTypes[f.ContentType]; !ok {
			return fmt.Errorf("%w: %s has unsupported type %q", ErrInvalidMedia, f.Filename, f.ContentType)
		}
		if _, dup := seen[f.Filename]; dup {
			return fmt.Errorf("%w: duplicate filename %s", ErrInvalidMedia, f.Filename)
		}
		seen[f.Filename] = struct{}{}
	}
	return nil
}
