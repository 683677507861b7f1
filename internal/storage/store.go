package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// RecordStore is the contract the engine requires from a durable object
// store. Load misses return ErrNotFound; Save and Delete failures wrap
// ErrPersistence. Query is used by tag and global search scopes.
type RecordStore interface {
	Load(Identifier) (*Record, error)
	Save(Identifier, *Record) error
	Delete(Identifier) error
	Query(func(*Record) bool) ([]Identifier, error)
}

// FileStore keeps one JSON asset file per record under a directory and
// mirrors them in memory. All reads are served from the cache; writes go
// to disk first so a failed write never leaves the cache ahead of disk.
type FileStore struct {
	path    string
	records map[Identifier]*Record

	mu sync.RWMutex
}

func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:    path,
		records: map[Identifier]*Record{},
	}

	err := s.load()
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *FileStore) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Clear existing records when loading
	s.records = map[Identifier]*Record{}

	return filepath.Walk(s.path, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		// Load all json files in the store path
		if !info.IsDir() && filepath.Ext(path) == ".json" {
			asset, err := s.loadAsset(path)
			if err != nil {
				return err
			}

			err = asset.Validate()
			if err != nil {
				return fmt.Errorf("validating %s: %w", filepath.Base(path), err)
			}

			// Error if the key is already in use
			_, ok := s.records[asset.Id()]
			if ok {
				return fmt.Errorf("duplicate identity detected: %s", asset.Id())
			}

			s.records[asset.Id()] = asset.Spec
		}

		return nil
	})
}

func (s *FileStore) Load(id Identifier) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("loading %q: %w", id, ErrNotFound)
	}

	return rec, nil
}

func (s *FileStore) Save(id Identifier, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset := &Asset[*Record]{
		Version:    1,
		Identifier: id,
		Spec:       rec,
	}

	jsonData, err := json.Marshal(asset)
	if err != nil {
		return fmt.Errorf("marshalling record %q: %w: %v", id, ErrPersistence, err)
	}

	if err := atomicWrite(s.filePath(id), jsonData, 0644); err != nil {
		return fmt.Errorf("writing record %q: %w: %v", id, ErrPersistence, err)
	}

	// Only update the cache once the write landed
	s.records[id] = rec
	return nil
}

func (s *FileStore) Delete(id Identifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return nil
	}

	if err := os.Remove(s.filePath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting record %q: %w: %v", id, ErrPersistence, err)
	}

	delete(s.records, id)
	return nil
}

func (s *FileStore) Query(pred func(*Record) bool) ([]Identifier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []Identifier
	for id, rec := range s.records {
		if pred(rec) {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// atomicWrite writes data to a temp file then renames it to the target path.
// This prevents partial or empty files if the process is interrupted.
func atomicWrite(path string, data []byte, perm os.FileMode) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		if removeErr := os.Remove(tmp); removeErr != nil {
			slog.Warn("failed to remove temp file after rename failure", "path", tmp, "error", removeErr)
		}
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

func (s *FileStore) filePath(id Identifier) string {
	return filepath.Join(s.path, fmt.Sprintf("%s.json", id))
}

func (s *FileStore) loadAsset(path string) (*Asset[*Record], error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}

	// Ignoring close error - file is read-only, error is not actionable
	defer func() { _ = file.Close() }()

	jsonData, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	asset := &Asset[*Record]{}
	err = json.Unmarshal(jsonData, asset)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling asset: %w", err)
	}

	return asset, nil
}
