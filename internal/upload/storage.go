package upload

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
)

// Storage persists an uploaded file and returns its public URL.
type Storage interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// LocalStorage writes into Dir, which is served under URLPath.
type LocalStorage struct {
	Dir     string
	URLPath string
}

func NewLocalStorage(dir, urlPath string) *LocalStorage {
	return &LocalStorage{Dir: dir, URLPath: urlPath}
}

func (s *LocalStorage) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name != filepath.Base(name) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.Dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return path.Join("/", s.URLPath, name), nil
}
