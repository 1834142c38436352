// Package snapshot persists a component's full state as a single JSON
// file, overwritten wholesale on every mutation. Writes go through a
// temp file plus rename so a crash mid-write never truncates the
// previous snapshot.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCorrupt marks a snapshot file that exists but cannot be decoded.
// Callers are expected to log it and start from empty state.
var ErrCorrupt = errors.New("corrupt snapshot")

// Store reads and writes one snapshot file.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the snapshot file location.
func (s *Store) Path() string {
	return s.path
}

// Save marshals v and atomically replaces the snapshot file.
func (s *Store) Save(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}

	_, werr := tmp.Write(data)
	cerr := tmp.Close()

	if werr != nil || cerr != nil {
		_ = os.Remove(tmp.Name())

		if werr != nil {
			return fmt.Errorf("write snapshot: %w", werr)
		}

		return fmt.Errorf("close snapshot: %w", cerr)
	}

	err = os.Rename(tmp.Name(), s.path)
	if err != nil {
		_ = os.Remove(tmp.Name())

		return fmt.Errorf("replace snapshot: %w", err)
	}

	return nil
}

// Load unmarshals the snapshot file into v. A missing file is not an
// error: v is left untouched and ok is false. A file that cannot be
// decoded returns an error wrapping ErrCorrupt.
func (s *Store) Load(v any) (ok bool, err error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}

		return false, fmt.Errorf("read snapshot: %w", err)
	}

	err = json.Unmarshal(data, v)
	if err != nil {
		return false, fmt.Errorf("decode %s: %w: %w", s.path, ErrCorrupt, err)
	}

	return true, nil
}
