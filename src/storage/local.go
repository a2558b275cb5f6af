package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// PublicPrefix is the URL path local uploads are served under
const PublicPrefix = "/uploads"

var extensionsByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// LocalStore keeps images on disk below Root
type LocalStore struct {
	Root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("invalid upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &LocalStore{Root: abs}, nil
}

func (s *LocalStore) Save(ctx context.Context, folder string, img Image) (string, error) {
	dir := filepath.Join(s.Root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create %s: %w", folder, err)
	}

	name := uuid.NewString() + extensionFor(img)
	dst, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(dst, img.Body); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return path.Join(PublicPrefix, folder, name), nil
}

// Delete removes a previously saved file. Remote URLs and references that
// resolve outside Root are ignored.
func (s *LocalStore) Delete(ctx context.Context, ref string) error {
	p, ok := s.resolve(ref)
	if !ok {
		return nil
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *LocalStore) resolve(ref string) (string, bool) {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return "", false
	}

	rel := strings.TrimPrefix(ref, PublicPrefix)
	rel = strings.TrimPrefix(rel, strings.TrimPrefix(PublicPrefix, "/"))
	p := filepath.Join(s.Root, filepath.FromSlash(rel))

	if p == s.Root || !strings.HasPrefix(p, s.Root+string(filepath.Separator)) {
		return "", false
	}
	return p, true
}

// extensionFor only yields extensions of raster formats, so a stored file is
// never served back as markup
func extensionFor(img Image) string {
	return extensionsByType[img.ContentType]
}
