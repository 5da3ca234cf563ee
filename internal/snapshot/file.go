package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/auction-arena/cricket-auction-backend/pkg/types"
)

// FileStore keeps one JSON file per room under a directory. Writes go
// through a temp file and rename so a crash never leaves a torn snapshot.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating snapshot dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (fs *FileStore) path(roomID string) string {
	return filepath.Join(fs.dir, roomID+".json")
}

func (fs *FileStore) Save(_ context.Context, snap *types.RoomSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", snap.State.RoomID, err)
	}
	tmp := fs.path(snap.State.RoomID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing snapshot %s: %w", snap.State.RoomID, err)
	}
	if err := os.Rename(tmp, fs.path(snap.State.RoomID)); err != nil {
		return fmt.Errorf("committing snapshot %s: %w", snap.State.RoomID, err)
	}
	return nil
}

func (fs *FileStore) Load(_ context.Context, roomID string) (*types.RoomSnapshot, error) {
	data, err := os.ReadFile(fs.path(roomID))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", roomID, err)
	}
	var snap types.RoomSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", roomID, err)
	}
	return &snap, nil
}

func (fs *FileStore) Delete(_ context.Context, roomID string) error {
	err := os.Remove(fs.path(roomID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting snapshot %s: %w", roomID, err)
	}
	return nil
}

func (fs *FileStore) LoadAll(ctx context.Context) ([]*types.RoomSnapshot, error) {
	entries, err := os.ReadDir(fs.dir)
	if err != nil {
		return nil, fmt.Errorf("listing snapshot dir: %w", err)
	}
	var snaps []*types.RoomSnapshot
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		snap, err := fs.Load(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

func (fs *FileStore) Close(context.Context) error { return nil }
