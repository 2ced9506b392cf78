package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Option func(*Repository)

// Repository writes the output of one ingest run below a directory.
// Files are written to a temporary name and renamed into place, so a
// reader never sees a partially written records.json or facilities.json.
type Repository struct {
	dir    string
	logger *zap.Logger
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Repository) {
		r.logger = logger
	}
}

// New writes directly below dir.
func New(dir string, opts ...Option) *Repository {
	r := &Repository{
		dir:    dir,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ForRun writes below basePath/<runID>, one directory per ingest run.
func ForRun(basePath string, runID uuid.UUID, opts ...Option) *Repository {
	r := New(filepath.Join(basePath, runID.String()), opts...)
	r.logger = r.logger.With(zap.String("run_id", runID.String()))
	return r
}

// Dir is the directory the repository writes below.
func (r *Repository) Dir() string {
	return r.dir
}

// Path returns where key is stored. Keys may not leave the directory.
func (r *Repository) Path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("local: invalid key %q", key)
	}
	return filepath.Join(r.dir, clean), nil
}

func (r *Repository) Write(ctx context.Context, key string, reader io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath, err := r.Path(key)
	if err != nil {
		return err
	}
	r.logger.Info("writing file", zap.String("path", fullPath))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), "."+filepath.Base(fullPath)+".*")
	if err != nil {
		return err
	}

	if err := writeAndSync(tmp, reader); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func writeAndSync(f *os.File, reader io.Reader) error {
	if err := f.Chmod(0644); err != nil {
		f.Close()
		return err
	}
	if _, err := io.Copy(f, reader); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
