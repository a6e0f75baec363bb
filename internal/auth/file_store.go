package auth

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bytedance/sonic"
)

// FileStore keeps the entries as one JSON object on disk.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	// Touch file if not exists
	f, err := os.OpenFile(path, os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("touch file: %w", err)
	}
	_ = f.Close()
	return &FileStore{path: path}, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.loadUnlocked()
	if err != nil {
		return "", false, err
	}
	v, ok := entries[key]
	return v, ok, nil
}

func (s *FileStore) Put(entries map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.loadUnlocked()
	if err != nil {
		return err
	}
	for k, v := range entries {
		current[k] = v
	}
	return s.saveUnlocked(current)
}

func (s *FileStore) Delete(keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, err := s.loadUnlocked()
	if err != nil {
		return err
	}
	for _, k := range keys {
		delete(current, k)
	}
	return s.saveUnlocked(current)
}

func (s *FileStore) loadUnlocked() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read: %w", err)
	}
	entries := map[string]string{}
	if len(bytes.TrimSpace(data)) == 0 {
		return entries, nil
	}
	if err := sonic.Unmarshal(data, &entries); err != nil {
		// malformed -> start fresh
		return map[string]string{}, nil
	}
	return entries, nil
}

// saveUnlocked writes through a temp file so a crash never leaves one key
// without the other.
func (s *FileStore) saveUnlocked(entries map[string]string) error {
	data, err := sonic.ConfigStd.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace: %w", err)
	}
	return nil
}
