// ABOUTME: Shared application state for the funcdeck HTTP server.
// ABOUTME: Owns the scene actors, their event persisters, and the on-disk storage layout.
package server

import (
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/2389-research/funcdeck/scene/core"
	"github.com/2389-research/funcdeck/scene/store"
)

// ErrSceneNotFound indicates no live actor exists for a scene ID.
var ErrSceneNotFound = errors.New("scene not found")

// AppState holds the shared state accessible by all HTTP handlers.
type AppState struct {
	mu            sync.RWMutex
	actors        map[ulid.ULID]*core.SceneActorHandle
	persisters    map[ulid.ULID]*EventPersister
	Storage       *store.StorageManager
	SnapshotEvery int
}

// NewAppState creates an AppState backed by storage.
func NewAppState(storage *store.StorageManager, snapshotEvery int) *AppState {
	return &AppState{
		actors:        make(map[ulid.ULID]*core.SceneActorHandle),
		persisters:    make(map[ulid.ULID]*EventPersister),
		Storage:       storage,
		SnapshotEvery: snapshotEvery,
	}
}

// GetActor returns the actor handle for a scene, or nil if not found.
func (s *AppState) GetActor(sceneID ulid.ULID) *core.SceneActorHandle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.actors[sceneID]
}

// ListActorIDs returns every live scene ID in ULID (creation) order.
func (s *AppState) ListActorIDs() []ulid.ULID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]ulid.ULID, 0, len(s.actors))
	for id := range s.actors {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b ulid.ULID) int { return a.Compare(b) })
	return ids
}

// CreateScene creates a scene directory, starts its actor and persister,
// and sends cmds. The first command must be a CreateSceneCommand. If any
// command is rejected the scene is torn down and the error returned.
func (s *AppState) CreateScene(cmds ...core.Command) (ulid.ULID, error) {
	if len(cmds) == 0 {
		return ulid.ULID{}, fmt.Errorf("%w: no commands", core.ErrSceneNotCreated)
	}
	if _, ok := cmds[0].(core.CreateSceneCommand); !ok {
		return ulid.ULID{}, fmt.Errorf("%w: first command is %s", core.ErrSceneNotCreated, cmds[0].CommandType())
	}

	sceneID := core.NewULID()
	dir, err := s.Storage.CreateSceneDir(sceneID)
	if err != nil {
		return ulid.ULID{}, err
	}

	handle := core.SpawnActor(sceneID, core.NewSceneState())
	persister, err := SpawnEventPersister(dir, handle, s.SnapshotEvery)
	if err != nil {
		_ = s.Storage.DeleteSceneDir(sceneID)
		return ulid.ULID{}, err
	}

	for _, cmd := range cmds {
		if _, err := handle.SendCommand(cmd); err != nil {
			persister.Stop()
			_ = s.Storage.DeleteSceneDir(sceneID)
			if add, ok := cmd.(core.AddFunctionCommand); ok {
				return ulid.ULID{}, fmt.Errorf("function %q: %w", add.Name, err)
			}
			return ulid.ULID{}, err
		}
	}

	s.register(sceneID, handle, persister)
	log.Printf("component=scene.server action=scene_created scene_id=%s commands=%d", sceneID, len(cmds))
	return sceneID, nil
}

func (s *AppState) register(sceneID ulid.ULID, handle *core.SceneActorHandle, persister *EventPersister) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actors[sceneID] = handle
	s.persisters[sceneID] = persister
}

// RestoreScenes recovers every scene under storage and starts its actor and
// persister. It returns the number of scenes restored.
func (s *AppState) RestoreScenes() (int, error) {
	recovered, err := s.Storage.RecoverAllScenes()
	if err != nil {
		return 0, err
	}
	restored := 0
	for _, rs := range recovered {
		handle := core.SpawnActor(rs.SceneID, rs.State)
		persister, err := SpawnEventPersister(s.Storage.SceneDir(rs.SceneID), handle, s.SnapshotEvery)
		if err != nil {
			log.Printf("component=scene.server action=restore_failed scene_id=%s err=%v", rs.SceneID, err)
			continue
		}
		s.register(rs.SceneID, handle, persister)
		restored++
	}
	log.Printf("component=scene.server action=scenes_restored count=%d", restored)
	return restored, nil
}

// DeleteScene stops a scene's persister and removes its directory.
func (s *AppState) DeleteScene(sceneID ulid.ULID) error {
	s.mu.Lock()
	persister, ok := s.persisters[sceneID]
	delete(s.actors, sceneID)
	delete(s.persisters, sceneID)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSceneNotFound, sceneID)
	}
	persister.Stop()
	log.Printf("component=scene.server action=scene_deleted scene_id=%s", sceneID)
	return s.Storage.DeleteSceneDir(sceneID)
}

// StopAllEventPersisters drains and closes every persister. Actors stay
// registered but their later events are no longer written.
func (s *AppState) StopAllEventPersisters() {
	s.mu.Lock()
	persisters := s.persisters
	s.persisters = make(map[ulid.ULID]*EventPersister)
	s.mu.Unlock()

	for _, p := range persisters {
		p.Stop()
	}
}
