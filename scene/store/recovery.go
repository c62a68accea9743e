// ABOUTME: Crash recovery for a scene directory: snapshot, repaired event log, and index check.
// ABOUTME: The event log is the source of truth; the snapshot is a shortcut and the index a cache.
package store

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/2389-research/funcdeck/scene/core"
)

// File names inside a scene directory.
const (
	EventsFile   = "events.jsonl"
	IndexFile    = "index.db"
	SnapshotsDir = "snapshots"
	ExportsDir   = "exports"
)

// ErrEventGap indicates the event log skips an event after the snapshot.
var ErrEventGap = errors.New("event log is not contiguous")

// RecoverScene rebuilds a scene's state from its directory.
//
// It starts from the latest snapshot (or an empty state), repairs the event
// log, applies the events newer than the snapshot, and rebuilds the SQLite
// index when its last_event_id does not match the recovered state. A log
// whose tail skips an event ID returns ErrEventGap.
func RecoverScene(sceneDir string) (*core.SceneState, uint64, error) {
	eventsPath := filepath.Join(sceneDir, EventsFile)

	state := core.NewSceneState()
	var fromEventID uint64
	snapshot, err := LoadLatestSnapshot(filepath.Join(sceneDir, SnapshotsDir))
	if err != nil {
		return nil, 0, fmt.Errorf("load snapshot: %w", err)
	}
	if snapshot != nil {
		state = snapshot.State
		fromEventID = snapshot.LastEventID
		log.Printf("component=scene.store action=snapshot_loaded dir=%s last_event_id=%d", sceneDir, fromEventID)
	}

	var events []core.Event
	if _, err := os.Stat(eventsPath); err == nil {
		kept, err := RepairJsonl(eventsPath)
		if err != nil {
			return nil, 0, fmt.Errorf("repair jsonl: %w", err)
		}
		events, err = ReplayJsonl(eventsPath)
		if err != nil {
			return nil, 0, err
		}
		log.Printf("component=scene.store action=log_replayed dir=%s events=%d", sceneDir, kept)
	}

	tail := 0
	next := fromEventID + 1
	for i := range events {
		id := events[i].EventID
		if id <= fromEventID {
			continue
		}
		if id != next {
			return nil, 0, fmt.Errorf("%w: expected event %d, found %d", ErrEventGap, next, id)
		}
		state.Apply(&events[i])
		next++
		tail++
	}
	lastEventID := state.LastEventID

	index, err := OpenSqlite(filepath.Join(sceneDir, IndexFile))
	if err != nil {
		return nil, 0, fmt.Errorf("open sqlite index: %w", err)
	}
	defer func() { _ = index.Close() }()

	indexed, found, err := index.GetLastEventID()
	if err != nil {
		return nil, 0, fmt.Errorf("get sqlite last_event_id: %w", err)
	}
	if !found || indexed != lastEventID {
		log.Printf("component=scene.store action=index_rebuild dir=%s indexed=%d expected=%d", sceneDir, indexed, lastEventID)
		if err := index.RebuildFromEvents(events); err != nil {
			return nil, 0, fmt.Errorf("rebuild sqlite: %w", err)
		}
	}

	log.Printf("component=scene.store action=recovered dir=%s tail_events=%d last_event_id=%d", sceneDir, tail, lastEventID)
	return state, lastEventID, nil
}
