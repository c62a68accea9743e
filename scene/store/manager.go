// ABOUTME: StorageManager owns the funcdeck home layout: scene discovery, creation, recovery, and exports.
// ABOUTME: Exports are the MBDyn deck and the YAML scene file, rewritten after each persisted change.
package store

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/2389-research/funcdeck/scene/core"
	"github.com/2389-research/funcdeck/scene/export"
	"github.com/oklog/ulid/v2"
)

// Export file names inside a scene's exports directory.
const (
	DeckExportFile = "deck.mbd"
	YAMLExportFile = "scene.yaml"
)

// StorageManager manages the home directory:
//
//	home/scenes/{ulid}/events.jsonl
//	home/scenes/{ulid}/index.db
//	home/scenes/{ulid}/snapshots/
//	home/scenes/{ulid}/exports/{deck.mbd,scene.yaml}
type StorageManager struct {
	home string
}

// SceneDir pairs a scene ID with its directory.
type SceneDir struct {
	SceneID ulid.ULID
	Path    string
}

// RecoveredScene pairs a recovered state with its scene ID.
type RecoveredScene struct {
	SceneID ulid.ULID
	State   *core.SceneState
}

// NewStorageManager roots a manager at home, creating home/scenes.
func NewStorageManager(home string) (*StorageManager, error) {
	if err := os.MkdirAll(filepath.Join(home, "scenes"), 0o755); err != nil {
		return nil, fmt.Errorf("create scenes dir: %w", err)
	}
	return &StorageManager{home: home}, nil
}

// Home returns the home directory.
func (m *StorageManager) Home() string {
	return m.home
}

func (m *StorageManager) scenesDir() string {
	return filepath.Join(m.home, "scenes")
}

// SceneDir returns the directory of a scene without creating it.
func (m *StorageManager) SceneDir(sceneID ulid.ULID) string {
	return filepath.Join(m.scenesDir(), sceneID.String())
}

// CreateSceneDir creates a scene directory with its snapshots and exports subdirectories.
func (m *StorageManager) CreateSceneDir(sceneID ulid.ULID) (string, error) {
	dir := m.SceneDir(sceneID)
	for _, sub := range []string{SnapshotsDir, ExportsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return "", fmt.Errorf("create %s dir: %w", sub, err)
		}
	}
	return dir, nil
}

// ListSceneDirs returns every scene directory whose name is a ULID.
func (m *StorageManager) ListSceneDirs() ([]SceneDir, error) {
	entries, err := os.ReadDir(m.scenesDir())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read scenes dir: %w", err)
	}

	var dirs []SceneDir
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := ulid.Parse(entry.Name())
		if err != nil {
			log.Printf("component=scene.store action=list_skip_non_ulid dir=%s", entry.Name())
			continue
		}
		dirs = append(dirs, SceneDir{SceneID: id, Path: filepath.Join(m.scenesDir(), entry.Name())})
	}
	return dirs, nil
}

// RecoverAllScenes recovers every scene directory. Scenes that fail to
// recover are logged and skipped.
func (m *StorageManager) RecoverAllScenes() ([]RecoveredScene, error) {
	dirs, err := m.ListSceneDirs()
	if err != nil {
		return nil, err
	}

	var recovered []RecoveredScene
	for _, d := range dirs {
		state, _, err := RecoverScene(d.Path)
		if err != nil {
			log.Printf("component=scene.store action=recover_failed scene_id=%s err=%v", d.SceneID, err)
			continue
		}
		recovered = append(recovered, RecoveredScene{SceneID: d.SceneID, State: state})
	}
	return recovered, nil
}

// DeleteSceneDir removes a scene directory and everything in it.
func (m *StorageManager) DeleteSceneDir(sceneID ulid.ULID) error {
	if err := os.RemoveAll(m.SceneDir(sceneID)); err != nil {
		return fmt.Errorf("remove scene dir: %w", err)
	}
	return nil
}

// WriteExports renders the deck and the YAML scene into sceneDir/exports.
// A scene that cannot be rendered leaves the previous exports untouched.
func WriteExports(sceneDir string, state *core.SceneState) error {
	deck, err := export.RenderDeck(state)
	if err != nil {
		return fmt.Errorf("render deck: %w", err)
	}
	yamlText, err := export.ExportSceneYAML(state)
	if err != nil {
		return fmt.Errorf("render yaml: %w", err)
	}

	dir := filepath.Join(sceneDir, ExportsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create exports dir: %w", err)
	}
	for name, content := range map[string]string{DeckExportFile: deck, YAMLExportFile: yamlText} {
		if err := writeFileAtomic(filepath.Join(dir, name), []byte(content)); err != nil {
			return err
		}
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}
