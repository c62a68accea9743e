// ABOUTME: Background persister that streams a scene actor's events to disk.
// ABOUTME: Appends to the JSONL log, updates the SQLite index, snapshots, and refreshes exports.
package server

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/2389-research/funcdeck/scene/core"
	"github.com/2389-research/funcdeck/scene/store"
)

const (
	// snapshotsKept is how many snapshots survive each prune.
	snapshotsKept = 3
	// maxBatch caps how many queued events share one log append.
	maxBatch = 256
	// exportInterval spaces out export rewrites during a burst.
	exportInterval = 250 * time.Millisecond
)

// EventPersister subscribes to one actor and writes every event it
// broadcasts. Stop drains whatever is still queued before returning.
type EventPersister struct {
	handle   *core.SceneActorHandle
	ch       chan core.Event
	sceneDir string
	log      *store.JsonlLog
	index    *store.SqliteIndex
	every    int
	since    int
	lastID   uint64
	done     chan struct{}
}

// SpawnEventPersister opens the scene's log and index and starts the
// persister goroutine. Subscribe before sending the first command so no
// event is missed.
func SpawnEventPersister(sceneDir string, handle *core.SceneActorHandle, snapshotEvery int) (*EventPersister, error) {
	jsonl, err := store.OpenJsonl(filepath.Join(sceneDir, store.EventsFile))
	if err != nil {
		return nil, err
	}
	index, err := store.OpenSqlite(filepath.Join(sceneDir, store.IndexFile))
	if err != nil {
		_ = jsonl.Close()
		return nil, fmt.Errorf("open index: %w", err)
	}
	if snapshotEvery <= 0 {
		snapshotEvery = DefaultSnapshotEvery
	}

	var lastID uint64
	handle.ReadState(func(s *core.SceneState) { lastID = s.LastEventID })

	p := &EventPersister{
		handle:   handle,
		ch:       handle.SubscribeQueued(),
		sceneDir: sceneDir,
		log:      jsonl,
		index:    index,
		every:    snapshotEvery,
		lastID:   lastID,
		done:     make(chan struct{}),
	}
	go p.run()
	return p, nil
}

func (p *EventPersister) run() {
	defer close(p.done)
	defer func() {
		_ = p.log.Close()
		_ = p.index.Close()
	}()

	ticker := time.NewTicker(exportInterval)
	defer ticker.Stop()
	dirty := false

	for {
		select {
		case event, ok := <-p.ch:
			if !ok {
				if dirty {
					p.writeExports()
				}
				return
			}
			p.persist(p.drain(&event))
			dirty = true
		case <-ticker.C:
			if dirty {
				p.writeExports()
				dirty = false
			}
		}
	}
}

// drain collects whatever is already queued behind first, up to maxBatch.
func (p *EventPersister) drain(first *core.Event) []*core.Event {
	batch := []*core.Event{first}
	for len(batch) < maxBatch {
		select {
		case next, ok := <-p.ch:
			if !ok {
				return batch
			}
			batch = append(batch, &next)
		default:
			return batch
		}
	}
	return batch
}

func (p *EventPersister) persist(batch []*core.Event) {
	sceneID := batch[0].SceneID
	first, last := batch[0].EventID, batch[len(batch)-1].EventID
	if err := p.log.Append(batch...); err != nil {
		log.Printf("component=scene.server action=persist_failed scene_id=%s first_event_id=%d last_event_id=%d err=%v", sceneID, first, last, err)
		return
	}

	gap := false
	for _, event := range batch {
		if event.EventID != p.lastID+1 {
			log.Printf("component=scene.server action=event_gap scene_id=%s expected=%d got=%d", sceneID, p.lastID+1, event.EventID)
			gap = true
		}
		p.lastID = event.EventID
		if err := p.index.ApplyEvent(event); err != nil {
			log.Printf("component=scene.server action=index_failed scene_id=%s event_id=%d err=%v", sceneID, event.EventID, err)
		}
	}

	p.since += len(batch)
	if p.since < p.every && !gap {
		return
	}
	p.since = 0
	p.snapshot(sceneID)
}

// snapshot saves the actor's current state. A gap in the log is covered by
// the snapshot since recovery only replays events newer than it.
func (p *EventPersister) snapshot(sceneID ulid.ULID) {
	snapDir := filepath.Join(p.sceneDir, store.SnapshotsDir)
	var err error
	p.handle.ReadState(func(s *core.SceneState) {
		err = store.SaveSnapshot(snapDir, store.NewSnapshot(s))
	})
	if err != nil {
		log.Printf("component=scene.server action=snapshot_failed scene_id=%s err=%v", sceneID, err)
		return
	}
	if _, err := store.PruneSnapshots(snapDir, snapshotsKept); err != nil {
		log.Printf("component=scene.server action=prune_failed scene_id=%s err=%v", sceneID, err)
	}
}

func (p *EventPersister) writeExports() {
	var err error
	p.handle.ReadState(func(s *core.SceneState) {
		if s.Core == nil {
			return
		}
		err = store.WriteExports(p.sceneDir, s)
	})
	if err != nil {
		log.Printf("component=scene.server action=export_failed scene_id=%s err=%v", p.handle.SceneID, err)
	}
}

// Stop unsubscribes, waits for queued events to be written, and closes
// the log and index.
func (p *EventPersister) Stop() {
	p.handle.Unsubscribe(p.ch)
	<-p.done
}
