package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/image-upscaler/backend/internal/models"
)

// Store defines the interface for per-request image workspaces.
type Store interface {
	Save(name string, r io.Reader) (*models.FileInfo, error)
	Get(id string) (*models.FileInfo, error)
	List(limit int) ([]*models.FileInfo, error)
	Delete(id string) error
	GetFilePath(id string) (string, error)
	OutputPath(id string) (string, error)
}

// LocalStore implements Store using the local filesystem. Every saved file
// gets its own directory so the input and its upscaled output can be removed together.
type LocalStore struct {
	mu      sync.RWMutex
	workDir string
	files   map[string]*models.FileInfo
}

// NewLocalStore creates a new LocalStore.
func NewLocalStore(workDir string) (*LocalStore, error) {
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("creating workspace directory: %w", err)
	}

	return &LocalStore{
		workDir: workDir,
		files:   make(map[string]*models.FileInfo),
	}, nil
}

// Save writes r into a fresh workspace under the given (already sanitized) name.
func (s *LocalStore) Save(name string, r io.Reader) (*models.FileInfo, error) {
	if name == "" || name != filepath.Base(name) {
		return nil, fmt.Errorf("invalid file name: %q", name)
	}

	id := uuid.New().String()
	dir := filepath.Join(s.workDir, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("writing file: %w", err)
	}

	info := &models.FileInfo{
		ID:         id,
		Name:       name,
		Size:       size,
		UploadedAt: time.Now(),
		Status:     "uploaded",
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info

	return info, nil
}

// Get retrieves file metadata by ID.
func (s *LocalStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", id)
	}

	return info, nil
}

// List returns the most recent files.
func (s *LocalStore) List(limit int) ([]*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.FileInfo, 0, len(s.files))
	for _, info := range s.files {
		list = append(list, info)
	}

	// Sort by UploadedAt desc
	sort.Slice(list, func(i, j int) bool {
		return list[i].UploadedAt.After(list[j].UploadedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	return list, nil
}

// Delete removes a workspace with everything in it.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("file not found: %s", id)
	}

	if err := os.RemoveAll(filepath.Join(s.workDir, id)); err != nil {
		return fmt.Errorf("deleting workspace: %w", err)
	}

	delete(s.files, id)
	return nil
}

// GetFilePath returns the absolute path to the uploaded input.
func (s *LocalStore) GetFilePath(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return "", fmt.Errorf("file not found: %s", id)
	}

	return filepath.Join(s.workDir, id, info.Name), nil
}

// OutputPath returns where the upscaled result for id is written: upscaled_<stem>.png
// next to the input.
func (s *LocalStore) OutputPath(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return "", fmt.Errorf("file not found: %s", id)
	}

	return filepath.Join(s.workDir, id, OutputName(info.Name)), nil
}

// CleanupOlderThan removes workspaces older than maxAge, including directories
// left behind by a previous process. It returns the number of removed workspaces.
func (s *LocalStore) CleanupOlderThan(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.workDir)
	if err != nil {
		return 0, fmt.Errorf("reading workspace directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		fi, err := entry.Info()
		if err != nil || fi.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(s.workDir, entry.Name())); err != nil {
			return removed, fmt.Errorf("removing workspace %s: %w", entry.Name(), err)
		}
		delete(s.files, entry.Name())
		removed++
	}

	return removed, nil
}

// OutputName derives the result file name for an input: the stem (name without its
// final extension) prefixed with "upscaled_" and given a .png extension.
func OutputName(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if stem == "" {
		stem = name
	}
	return "upscaled_" + stem + ".png"
}
