// Package persistence durably serializes the identity and channel
// collections so state survives process restart. Snapshots are whole-state:
// three keyed collections written together on every mutation.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"relay-service/internal/models"
)

// Snapshot is one whole-state capture. Version is assigned by the engine in
// mutation order.
type Snapshot struct {
	Version uint64                         `json:"-"`
	Users   map[string]models.User         `json:"users"`
	Rooms   map[string]models.Room         `json:"rooms"`
	Threads map[string]models.DirectThread `json:"dms"`
}

// Store persists and restores whole-state snapshots.
type Store interface {
	Save(snap Snapshot) error
	Load() (Snapshot, error)
}

const (
	usersFile   = "users.json"
	roomsFile   = "rooms.json"
	threadsFile = "dms.json"
)

// FileStore writes each collection to its own JSON file under a data
// directory.
type FileStore struct {
	dir string
}

// NewFileStore ensures the data directory exists and returns the store.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Save writes all three collections. Each file is written to a temp file
// first and renamed, so a crash mid-write never truncates a collection.
func (s *FileStore) Save(snap Snapshot) error {
	if err := s.writeJSON(usersFile, snap.Users); err != nil {
		return err
	}
	if err := s.writeJSON(roomsFile, snap.Rooms); err != nil {
		return err
	}
	return s.writeJSON(threadsFile, snap.Threads)
}

// Load reads the three collections; missing files yield empty collections.
func (s *FileStore) Load() (Snapshot, error) {
	snap := Snapshot{
		Users:   map[string]models.User{},
		Rooms:   map[string]models.Room{},
		Threads: map[string]models.DirectThread{},
	}
	if err := s.readJSON(usersFile, &snap.Users); err != nil {
		return Snapshot{}, err
	}
	if err := s.readJSON(roomsFile, &snap.Rooms); err != nil {
		return Snapshot{}, err
	}
	if err := s.readJSON(threadsFile, &snap.Threads); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (s *FileStore) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("rename %s: %w", name, err)
	}
	return nil
}

func (s *FileStore) readJSON(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", name, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}
