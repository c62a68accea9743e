// ABOUTME: Atomic snapshot files of a scene's materialized state.
// ABOUTME: Named state_<event_id>.json; the highest event ID wins on load, and old ones can be pruned.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/2389-research/funcdeck/scene/core"
)

// SnapshotData is a scene state captured after LastEventID.
type SnapshotData struct {
	State       *core.SceneState `json:"state"`
	LastEventID uint64           `json:"last_event_id"`
	SavedAt     time.Time        `json:"saved_at"`
}

// NewSnapshot captures state as of its last applied event.
func NewSnapshot(state *core.SceneState) *SnapshotData {
	return &SnapshotData{
		State:       state,
		LastEventID: state.LastEventID,
		SavedAt:     time.Now().UTC(),
	}
}

func snapshotName(eventID uint64) string {
	return fmt.Sprintf("state_%d.json", eventID)
}

// parseSnapshotName extracts the event ID from a snapshot file name.
func parseSnapshotName(name string) (uint64, bool) {
	idStr, ok := strings.CutPrefix(name, "state_")
	if !ok {
		return 0, false
	}
	idStr, ok = strings.CutSuffix(idStr, ".json")
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	return id, err == nil
}

// SaveSnapshot writes data to dir through a temp file, fsync, and rename.
func SaveSnapshot(dir string, data *SnapshotData) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	finalPath := filepath.Join(dir, snapshotName(data.LastEventID))
	tmpPath := strings.TrimSuffix(finalPath, ".json") + ".tmp"

	tmp, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(encoded); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write snapshot data: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("fsync snapshot: %w", err)
	}
	_ = tmp.Close()

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	syncDir(dir)
	return nil
}

// snapshotIDs returns the event IDs of the snapshots in dir, ascending.
func snapshotIDs(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}
	var ids []uint64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if id, ok := parseSnapshotName(entry.Name()); ok {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// LoadLatestSnapshot loads the snapshot with the highest event ID in dir.
// Returns nil, nil when there is none.
func LoadLatestSnapshot(dir string) (*SnapshotData, error) {
	ids, err := snapshotIDs(dir)
	if err != nil || len(ids) == 0 {
		return nil, err
	}

	contents, err := os.ReadFile(filepath.Join(dir, snapshotName(ids[len(ids)-1])))
	if err != nil {
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}
	var data SnapshotData
	if err := json.Unmarshal(contents, &data); err != nil {
		return nil, fmt.Errorf("parse snapshot: %w", err)
	}
	if data.State == nil {
		data.State = core.NewSceneState()
	}
	return &data, nil
}

// PruneSnapshots removes all but the newest keep snapshots from dir.
// Returns the number removed.
func PruneSnapshots(dir string, keep int) (int, error) {
	ids, err := snapshotIDs(dir)
	if err != nil {
		return 0, err
	}
	if keep < 1 {
		keep = 1
	}
	removed := 0
	for len(ids) > keep {
		if err := os.Remove(filepath.Join(dir, snapshotName(ids[0]))); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove snapshot %d: %w", ids[0], err)
		}
		ids = ids[1:]
		removed++
	}
	return removed, nil
}
