// Package storage owns the scratch directories used for uploads and
// generated labels. One Storage is created at startup and handed to every
// handler; nothing else touches these paths.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/phillip-england/shiplabel/internal/security"
)

var ErrOutsideStorage = errors.New("path is outside upload storage")

type Kind string

const (
	KindSpreadsheet Kind = "spreadsheets"
	KindImage       Kind = "images"
)

type Storage struct {
	root    string
	uploads string
	jobs    string
}

func New(root string) (*Storage, error) {
	if root == "" {
		return nil, errors.New("storage root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	s := &Storage{
		root:    abs,
		uploads: filepath.Join(abs, "uploads"),
		jobs:    filepath.Join(abs, "jobs"),
	}
	for _, dir := range []string{
		filepath.Join(s.uploads, string(KindSpreadsheet)),
		filepath.Join(s.uploads, string(KindImage)),
		s.jobs,
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return s, nil
}

func (s *Storage) Root() string { return s.root }

// SaveUpload writes data under a fresh id so two uploads with the same
// client file name never overwrite each other.
func (s *Storage) SaveUpload(kind Kind, filename string, data []byte) (string, error) {
	dir := filepath.Join(s.uploads, string(kind))
	path := filepath.Join(dir, uuid.NewString()+"-"+security.UploadName(filename))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return path, nil
}

// Resolve validates a path previously returned by SaveUpload. Empty input
// resolves to empty output.
func (s *Storage) Resolve(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	abs, err := security.Within(s.uploads, path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrOutsideStorage, path)
	}
	return abs, nil
}

// Job is a request-scoped output directory.
type Job struct {
	ID  string
	Dir string
}

func (s *Storage) NewJob() (*Job, error) {
	id := uuid.NewString()
	dir := filepath.Join(s.jobs, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create job directory: %w", err)
	}
	return &Job{ID: id, Dir: dir}, nil
}

func (j *Job) Remove() error {
	return os.RemoveAll(j.Dir)
}

// Purge deletes uploads and job directories older than maxAge and returns
// how many entries were removed.
func (s *Storage) Purge(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	dirs := []string{
		filepath.Join(s.uploads, string(KindSpreadsheet)),
		filepath.Join(s.uploads, string(KindImage)),
		s.jobs,
	}
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, err
		}
		for _, entry := range entries {
			info, err := entry.Info()
			if err != nil {
				continue
			}
			if info.ModTime().After(cutoff) {
				continue
			}
			if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
