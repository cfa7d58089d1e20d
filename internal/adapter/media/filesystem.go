// Package media stores uploaded product images on the local filesystem.
package media

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"storefront/config"
	"storefront/internal/core/domain"

	"github.com/oklog/ulid/v2"
)

// FileStore implements ports.MediaStorage under a root directory.
type FileStore struct {
	root    string
	baseURL string
}

// NewFileStore creates the root directory if needed.
func NewFileStore(cfg config.MediaConfig) (*FileStore, error) {
	if err := os.MkdirAll(cfg.RootDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media root %s: %w", cfg.RootDir, err)
	}
	return &FileStore{
		root:    cfg.RootDir,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}, nil
}

// Store writes data to <root>/<destinationHint>/<ulid>-<filename>. The file is
// written under a temporary name and renamed so readers never see a partial
// image.
func (s *FileStore) Store(ctx context.Context, data []byte, destinationHint, filename string) (domain.StoredMedia, error) {
	if err := ctx.Err(); err != nil {
		return domain.StoredMedia{}, err
	}

	dir, err := cleanSegment(destinationHint)
	if err != nil {
		return domain.StoredMedia{}, err
	}
	name := sanitizeFilename(filename)
	if name == "" {
		return domain.StoredMedia{}, fmt.Errorf("invalid media filename %q", filename)
	}
	stored := ulid.Make().String() + "-" + name
	rel := path.Join(dir, stored)

	target := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return domain.StoredMedia{}, fmt.Errorf("creating media dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return domain.StoredMedia{}, fmt.Errorf("creating temp media file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return domain.StoredMedia{}, fmt.Errorf("writing media file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return domain.StoredMedia{}, fmt.Errorf("closing media file: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return domain.StoredMedia{}, fmt.Errorf("publishing media file: %w", err)
	}

	url := "/" + rel
	if s.baseURL != "" {
		url = s.baseURL + url
	}
	return domain.StoredMedia{Path: rel, Filename: stored, URL: url}, nil
}

// cleanSegment turns a hint like "products/<seller>" into a relative path
// that cannot escape the root.
func cleanSegment(hint string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(hint, "\\", "/"))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "misc", nil
	}
	for _, part := range strings.Split(cleaned, "/") {
		if part == ".." {
			return "", fmt.Errorf("invalid media destination %q", hint)
		}
	}
	return cleaned, nil
}

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}
