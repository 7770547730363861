package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotFound is returned when a key or directory does not exist.
var ErrNotFound = errors.New("storage: not found")

// Storage is the durable substrate for the whole pipeline: JSON values keyed
// by slash-separated paths on a hierarchical filesystem. Rename is atomic on
// the backing filesystem and is used as the state-transition primitive.
type Storage struct {
	fs   afero.Fs
	root string
}

// New creates a Storage rooted at dir on the given filesystem. Production
// uses afero.NewOsFs(); tests use afero.NewMemMapFs().
func New(fs afero.Fs, dir string) *Storage {
	return &Storage{fs: fs, root: dir}
}

func (s *Storage) abs(key string) string {
	return path.Join(s.root, key)
}

// StoreItem writes value as JSON under key, creating parent directories.
func (s *Storage) StoreItem(key string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	full := s.abs(key)
	if err := s.fs.MkdirAll(path.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	if err := afero.WriteFile(s.fs, full, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// LoadItem reads the JSON value under key into value.
func (s *Storage) LoadItem(key string, value any) error {
	data, err := afero.ReadFile(s.fs, s.abs(key))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	if err := json.Unmarshal(data, value); err != nil {
		return fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return nil
}

// HasItem reports whether key exists.
func (s *Storage) HasItem(key string) (bool, error) {
	ok, err := afero.Exists(s.fs, s.abs(key))
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return ok, nil
}

// RenameItem atomically moves a value from oldKey to newKey, creating the
// destination's parent directories.
func (s *Storage) RenameItem(oldKey, newKey string) error {
	dst := s.abs(newKey)
	if err := s.fs.MkdirAll(path.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", newKey, err)
	}
	if err := s.fs.Rename(s.abs(oldKey), dst); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, oldKey)
		}
		return fmt.Errorf("failed to rename %s to %s: %w", oldKey, newKey, err)
	}
	return nil
}

// RemoveItem deletes the value under key.
func (s *Storage) RemoveItem(key string) error {
	if err := s.fs.Remove(s.abs(key)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

// ListItems returns the file names directly under dir, sorted. A missing
// directory lists as empty: an absent status folder and an exhausted one are
// the same fact for the pipeline.
func (s *Storage) ListItems(dir string) ([]string, error) {
	return s.list(dir, false)
}

// ListSubdirectories returns the directory names directly under dir, sorted.
func (s *Storage) ListSubdirectories(dir string) ([]string, error) {
	return s.list(dir, true)
}

func (s *Storage) list(dir string, dirs bool) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.abs(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() == dirs {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// HasNoItems reports whether dir holds no files (it may be absent entirely).
func (s *Storage) HasNoItems(dir string) (bool, error) {
	items, err := s.ListItems(dir)
	if err != nil {
		return false, err
	}
	return len(items) == 0, nil
}

// RemoveTree deletes dir and everything under it.
func (s *Storage) RemoveTree(dir string) error {
	if dir == "" || dir == "/" || strings.TrimSpace(dir) == "" {
		return fmt.Errorf("refusing to remove tree at %q", dir)
	}
	if err := s.fs.RemoveAll(s.abs(dir)); err != nil {
		return fmt.Errorf("failed to remove tree %s: %w", dir, err)
	}
	return nil
}
