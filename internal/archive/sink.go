// Package archive exports post histories to a filesystem directory or an S3
// bucket.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

var archiveLogger zerolog.Logger = zerolog.Nop()

func SetLogger(l zerolog.Logger) {
	archiveLogger = l
}

// Sink stores archive objects under slash separated keys.
type Sink interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type FSSink struct {
	dir string
}

func NewFSSink(dir string) *FSSink {
	return &FSSink{dir: dir}
}

func (s *FSSink) path(key string) (string, error) {
	clean := filepath.FromSlash(strings.TrimPrefix(key, "/"))
	if !filepath.IsLocal(clean) {
		return "", fmt.Errorf("archive key %q escapes the archive directory", key)
	}
	return filepath.Join(s.dir, clean), nil
}

// Put writes through a temporary file so readers never see partial objects.
func (s *FSSink) Put(_ context.Context, key string, data []byte, _ string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func (s *FSSink) Exists(_ context.Context, key string) (bool, error) {
	path, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
