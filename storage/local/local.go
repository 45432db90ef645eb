// Package local keeps audio on disk. The HTTP server publishes the base
// directory under /media so suppliers can fetch it.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/kbukum/scribe/storage"
)

func init() {
	storage.Register(storage.ProviderLocal, func(d storage.Deps) (storage.Storage, error) {
		return Open(d.Config.Local.BasePath, d.Config.PublicBaseURL)
	})
}

// Store confines every key to its base directory through an os.Root.
type Store struct {
	root    *os.Root
	baseURL string
}

var _ storage.Storage = (*Store)(nil)

// Open creates dir when missing.
func Open(dir, publicBaseURL string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("local storage: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("local storage: %w", err)
	}
	return &Store{root: root, baseURL: strings.TrimRight(publicBaseURL, "/")}, nil
}

func (s *Store) Name() string { return storage.ProviderLocal }

func (s *Store) IsAvailable(context.Context) bool {
	_, err := s.root.Stat(".")
	return err == nil
}

// Dir is the base directory.
func (s *Store) Dir() string { return s.root.Name() }

func clean(key string) string { return path.Clean(strings.TrimLeft(key, "/")) }

// Put writes to a temporary sibling and renames it into place, so a
// concurrent reader never sees a partial file.
func (s *Store) Put(_ context.Context, obj storage.Object) error {
	key := clean(obj.Key)
	if dir := path.Dir(key); dir != "." {
		if err := s.root.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("local storage: %w", err)
		}
	}
	tmp := key + ".tmp-" + uuid.NewString()
	f, err := s.root.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("local storage: %w", err)
	}
	_, err = io.Copy(f, obj.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = s.root.Rename(tmp, key)
	}
	if err != nil {
		_ = s.root.Remove(tmp)
		return fmt.Errorf("local storage: write %s: %w", key, err)
	}
	return nil
}

func (s *Store) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := s.root.Open(clean(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("local storage: %w", err)
	}
	return f, nil
}

func (s *Store) Has(_ context.Context, key string) (bool, error) {
	_, err := s.root.Stat(clean(key))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	}
	return false, fmt.Errorf("local storage: %w", err)
}

func (s *Store) Remove(_ context.Context, key string) error {
	if err := s.root.Remove(clean(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("local storage: %w", err)
	}
	return nil
}

func (s *Store) URL(key string) string {
	return s.baseURL + "/" + clean(key)
}
