package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DefaultSlot is the slot the signed in user is stored under.
const DefaultSlot = "user"

// FileStore keeps snapshots in a JSON object keyed by slot. Other slots in
// the file are preserved.
type FileStore struct {
	path string
	slot string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, slot: DefaultSlot}
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(_ context.Context) (Snapshot, error) {
	const op = "session.FileStore.Load"

	slots, err := f.read()
	if err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}

	raw, ok := slots[f.slot]
	if !ok || string(raw) == "null" {
		return Snapshot{}, ErrNoSession
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("%s: decode %s: %w", op, f.slot, err)
	}

	if snap.Token == "" {
		return Snapshot{}, ErrNoSession
	}

	return snap, nil
}

func (f *FileStore) Save(_ context.Context, snap Snapshot) error {
	const op = "session.FileStore.Save"

	slots, err := f.read()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	slots[f.slot] = raw

	if err := f.write(slots); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (f *FileStore) Clear(_ context.Context) error {
	const op = "session.FileStore.Clear"

	slots, err := f.read()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if _, ok := slots[f.slot]; !ok {
		return nil
	}
	delete(slots, f.slot)

	if err := f.write(slots); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (f *FileStore) read() (map[string]json.RawMessage, error) {
	b, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, err
	}

	slots := map[string]json.RawMessage{}
	if len(b) == 0 {
		return slots, nil
	}
	if err := json.Unmarshal(b, &slots); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}

	return slots, nil
}

// write replaces the file atomically through a temp file in the same
// directory.
func (f *FileStore) write(slots map[string]json.RawMessage) error {
	b, err := json.MarshalIndent(slots, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".session-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), f.path)
}
