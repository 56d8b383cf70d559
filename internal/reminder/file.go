package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps reminders in a JSON array file. Every operation is a
// read-modify-write cycle under one mutex.
type FileStore struct {
	mu   sync.Mutex
	path string
}

// NewFileStore creates a store backed by path. The file is created lazily.
func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	return &FileStore{path: path}, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string { return s.path }

// Create appends r. A missing, empty or corrupt file is treated as empty.
func (s *FileStore) Create(_ context.Context, r Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders, err := s.load()
	if err != nil {
		log.Printf("[reminder] %s unreadable, starting fresh: %v", s.path, err)
		reminders = nil
	}
	reminders = append(reminders, r)
	return s.save(reminders)
}

// PopDue removes and returns reminders due at now. A missing file yields nothing.
func (s *FileStore) PopDue(_ context.Context, now time.Time) ([]Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reminders, err := s.load()
	if err != nil {
		return nil, err
	}

	var due, future []Reminder
	for _, r := range reminders {
		if r.Due(now) {
			due = append(due, r)
		} else {
			future = append(future, r)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}
	if err := s.save(future); err != nil {
		return nil, err
	}
	return due, nil
}

// Pending returns all stored reminders.
func (s *FileStore) Pending(_ context.Context) ([]Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) load() ([]Reminder, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	var reminders []Reminder
	if err := json.Unmarshal(data, &reminders); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return reminders, nil
}

// save writes through a temp file and rename so readers never see a partial file.
func (s *FileStore) save(reminders []Reminder) error {
	if reminders == nil {
		reminders = []Reminder{}
	}
	data, err := json.MarshalIndent(reminders, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".reminders-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
