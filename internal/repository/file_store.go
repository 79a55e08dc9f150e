package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

var _ Store = (*FileStore)(nil)

// FileStore keeps the cache and the history as JSON documents on local disk.
// Every write goes to a temporary file in the target directory and is renamed over
// the destination, so readers see either the old or the new document.
type FileStore struct {
	cachePath   string
	historyPath string
	mu          sync.Mutex
}

// NewFileStore creates a FileStore, making sure both parent directories exist.
func NewFileStore(cachePath, historyPath string) (*FileStore, error) {
	for _, p := range []string{cachePath, historyPath} {
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir for %s: %w", p, err)
		}
	}
	return &FileStore{cachePath: cachePath, historyPath: historyPath}, nil
}

// GetCache reads the cache file. A missing or empty file yields an empty snapshot.
func (s *FileStore) GetCache(_ context.Context) (Snapshot, error) {
	snap := NewSnapshot()
	data, err := readFile(s.cachePath)
	if err != nil {
		return snap, err
	}
	if len(data) == 0 {
		return snap, nil
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return NewSnapshot(), fmt.Errorf("decode %s: %w", s.cachePath, err)
	}
	if snap.Pairs == nil {
		snap.Pairs = make(map[string]Quote)
	}
	return snap, nil
}

// PutCache atomically replaces the cache file.
func (s *FileStore) PutCache(_ context.Context, snap Snapshot) error {
	if snap.Pairs == nil {
		snap.Pairs = make(map[string]Quote)
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	return writeFileAtomic(s.cachePath, data)
}

// AppendHistory adds a record to the history file.
func (s *FileStore) AppendHistory(_ context.Context, rec HistoryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.readHistory()
	if err != nil {
		return err
	}
	records = append(records, rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	return writeFileAtomic(s.historyPath, data)
}

// History returns every stored record in append order.
func (s *FileStore) History(_ context.Context) ([]HistoryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readHistory()
}

func (s *FileStore) readHistory() ([]HistoryRecord, error) {
	data, err := readFile(s.historyPath)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var records []HistoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.historyPath, err)
	}
	return records, nil
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return bytes.TrimSpace(data), nil
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
