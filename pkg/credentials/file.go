package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"git.sr.ht/~jakintosh/storefront/internal/watcher"
)

// FileStore keeps the session in a JSON file readable only by its owner.
// Writes replace the file atomically. With Watch enabled, changes made by
// other processes (a sign-out in another shell, say) are picked up without
// a restart.
type FileStore struct {
	path string

	mu   sync.RWMutex
	data map[string]string

	watcher  *watcher.Watcher
	onChange func()
}

var _ Store = (*FileStore)(nil)

func NewFileStore(
	path string,
) (
	*FileStore,
	error,
) {
	if path == "" {
		return nil, errors.New("credential file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create credential dir: %w", err)
	}

	s := &FileStore{
		path: filepath.Clean(path),
		data: make(map[string]string),
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Path() string {
	return s.path
}

// Watch starts reloading the file whenever it changes on disk. onChange, if
// non-nil, runs after each reload.
func (s *FileStore) Watch(
	onChange func(),
) error {
	w, err := watcher.WatchFile(s.path, watcher.DefaultDebounce, func() {
		if err := s.reload(); err != nil {
			slog.Warn("credential file reload failed", "path", s.path, "err", err)
			return
		}
		s.mu.RLock()
		cb := s.onChange
		s.mu.RUnlock()
		if cb != nil {
			cb()
		}
	})
	if err != nil {
		return fmt.Errorf("watch credential file: %w", err)
	}

	s.mu.Lock()
	s.watcher = w
	s.onChange = onChange
	s.mu.Unlock()
	return nil
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w != nil {
		return w.Close()
	}
	return nil
}

func (s *FileStore) Get(
	_ context.Context,
	key string,
) (
	string,
	bool,
	error,
) {
	s.mu.RLock()
	v, ok := s.data[key]
	s.mu.RUnlock()
	return v, ok, nil
}

func (s *FileStore) Set(
	_ context.Context,
	key string,
	value string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.flush()
}

func (s *FileStore) Remove(
	_ context.Context,
	key string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return nil
	}
	delete(s.data, key)
	return s.flush()
}

func (s *FileStore) reload() error {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.mu.Lock()
		clear(s.data)
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read credential file: %w", err)
	}

	data := make(map[string]string)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &data); err != nil {
			return fmt.Errorf("parse credential file '%s': %w", s.path, err)
		}
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// flush must be called with s.mu held.
func (s *FileStore) flush() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp credential file: %w", err)
	}
	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp credential file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}
