// ABOUTME: SQLite-backed index of scenes and their functions for queries without replaying events.
// ABOUTME: Stores operand names per combinator; user counts are computed from them at query time.
package store

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/2389-research/funcdeck/scene/core"
	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

const tsLayout = time.RFC3339

// SceneSummary is one row of the scene list.
type SceneSummary struct {
	SceneID       string `json:"scene_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	FunctionCount int    `json:"function_count"`
	UpdatedAt     string `json:"updated_at"`
}

// FunctionRow is one indexed function.
type FunctionRow struct {
	SceneID   string  `json:"scene_id"`
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
	Position  int     `json:"position"`
	F1        *string `json:"f1,omitempty"`
	F2        *string `json:"f2,omitempty"`
	Users     int     `json:"users"`
	UpdatedAt string  `json:"updated_at"`
}

// SqliteIndex mirrors scene and function metadata. It is a cache that can
// always be rebuilt from the event log.
type SqliteIndex struct {
	db *sql.DB
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
	QueryRow(query string, args ...any) *sql.Row
}

// OpenSqlite opens or creates the index database at path and migrates it.
func OpenSqlite(path string) (*SqliteIndex, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS scenes (
			scene_id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS functions (
			scene_id TEXT NOT NULL,
			name TEXT NOT NULL,
			kind TEXT NOT NULL,
			position INTEGER NOT NULL,
			f1 TEXT,
			f2 TEXT,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (scene_id, name),
			FOREIGN KEY (scene_id) REFERENCES scenes(scene_id)
		);

		CREATE INDEX IF NOT EXISTS functions_f1 ON functions(scene_id, f1);
		CREATE INDEX IF NOT EXISTS functions_f2 ON functions(scene_id, f2);

		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SqliteIndex{db: db}, nil
}

// Close closes the database.
func (idx *SqliteIndex) Close() error {
	return idx.db.Close()
}

// ListScenes returns all scenes, most recently updated first.
func (idx *SqliteIndex) ListScenes() ([]SceneSummary, error) {
	rows, err := idx.db.Query(`
		SELECT s.scene_id, s.title, s.description, s.updated_at,
			(SELECT COUNT(*) FROM functions f WHERE f.scene_id = s.scene_id)
		FROM scenes s ORDER BY s.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query scenes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var scenes []SceneSummary
	for rows.Next() {
		var s SceneSummary
		if err := rows.Scan(&s.SceneID, &s.Title, &s.Description, &s.UpdatedAt, &s.FunctionCount); err != nil {
			return nil, fmt.Errorf("scan scene row: %w", err)
		}
		scenes = append(scenes, s)
	}
	return scenes, rows.Err()
}

// ListFunctions returns the functions of a scene in collection order, with
// user counts derived from the operand columns.
func (idx *SqliteIndex) ListFunctions(sceneID ulid.ULID) ([]FunctionRow, error) {
	rows, err := idx.db.Query(`
		SELECT f.scene_id, f.name, f.kind, f.position, f.f1, f.f2, f.updated_at,
			(SELECT COUNT(*) FROM functions g WHERE g.scene_id = f.scene_id AND g.f1 = f.name) +
			(SELECT COUNT(*) FROM functions g WHERE g.scene_id = f.scene_id AND g.f2 = f.name)
		FROM functions f WHERE f.scene_id = ? ORDER BY f.position ASC`,
		sceneID.String())
	if err != nil {
		return nil, fmt.Errorf("query functions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var fns []FunctionRow
	for rows.Next() {
		var r FunctionRow
		if err := rows.Scan(&r.SceneID, &r.Name, &r.Kind, &r.Position, &r.F1, &r.F2, &r.UpdatedAt, &r.Users); err != nil {
			return nil, fmt.Errorf("scan function row: %w", err)
		}
		fns = append(fns, r)
	}
	return fns, rows.Err()
}

// GetLastEventID returns the last indexed event ID, if any.
func (idx *SqliteIndex) GetLastEventID() (uint64, bool, error) {
	var val string
	err := idx.db.QueryRow("SELECT value FROM meta WHERE key = 'last_event_id'").Scan(&val)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("query last_event_id: %w", err)
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse last_event_id: %w", err)
	}
	return id, true, nil
}

func setLastEventID(db execer, eventID uint64) error {
	_, err := db.Exec(
		`INSERT INTO meta (key, value) VALUES ('last_event_id', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.FormatUint(eventID, 10))
	if err != nil {
		return fmt.Errorf("set last_event_id: %w", err)
	}
	return nil
}

// RebuildFromEvents clears the index and applies events in order.
func (idx *SqliteIndex) RebuildFromEvents(events []core.Event) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("begin rebuild: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"functions", "scenes", "meta"} {
		if _, err := tx.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	for i := range events {
		if err := applyEvent(tx, &events[i]); err != nil {
			return fmt.Errorf("apply event %d during rebuild: %w", events[i].EventID, err)
		}
	}
	return tx.Commit()
}

// ApplyEvent applies one event to the index in a transaction.
func (idx *SqliteIndex) ApplyEvent(event *core.Event) error {
	tx, err := idx.db.Begin()
	if err != nil {
		return fmt.Errorf("begin apply: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := applyEvent(tx, event); err != nil {
		return err
	}
	return tx.Commit()
}

func applyEvent(db execer, event *core.Event) error {
	if err := applyPayload(db, event, event.Payload); err != nil {
		return err
	}
	return setLastEventID(db, event.EventID)
}

func applyPayload(db execer, event *core.Event, payload core.EventPayload) error {
	sceneID := event.SceneID.String()
	ts := event.Timestamp.Format(tsLayout)

	switch p := payload.(type) {
	case core.SceneCreatedPayload:
		_, err := db.Exec(
			`INSERT INTO scenes (scene_id, title, description, updated_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(scene_id) DO UPDATE SET
				title = excluded.title,
				description = excluded.description,
				updated_at = excluded.updated_at`,
			sceneID, p.Title, p.Description, ts)
		if err != nil {
			return fmt.Errorf("apply SceneCreated: %w", err)
		}

	case core.SceneUpdatedPayload:
		if p.Title != nil {
			if _, err := db.Exec("UPDATE scenes SET title = ? WHERE scene_id = ?", *p.Title, sceneID); err != nil {
				return fmt.Errorf("apply SceneUpdated title: %w", err)
			}
		}
		if p.Description != nil {
			if _, err := db.Exec("UPDATE scenes SET description = ? WHERE scene_id = ?", *p.Description, sceneID); err != nil {
				return fmt.Errorf("apply SceneUpdated description: %w", err)
			}
		}

	case core.FunctionAddedPayload:
		if err := insertFunction(db, sceneID, p.Function, p.Index, ts); err != nil {
			return fmt.Errorf("apply FunctionAdded: %w", err)
		}

	case core.FunctionEditedPayload:
		f1, f2 := operands(p.Params)
		if _, err := db.Exec("UPDATE functions SET f1 = ?, f2 = ?, updated_at = ? WHERE scene_id = ? AND name = ?",
			f1, f2, ts, sceneID, p.Name); err != nil {
			return fmt.Errorf("apply FunctionEdited: %w", err)
		}
		if p.NewName != "" {
			if err := renameFunction(db, sceneID, p.Name, p.NewName, ts); err != nil {
				return fmt.Errorf("apply FunctionEdited rename: %w", err)
			}
		}

	case core.FunctionRenamedPayload:
		if err := renameFunction(db, sceneID, p.From, p.To, ts); err != nil {
			return fmt.Errorf("apply FunctionRenamed: %w", err)
		}

	case core.FunctionRemovedPayload:
		if err := deleteFunction(db, sceneID, p.Function.Name); err != nil {
			return fmt.Errorf("apply FunctionRemoved: %w", err)
		}

	case core.UndoAppliedPayload:
		for _, inverse := range p.InverseEvents {
			if err := applyPayload(db, event, inverse); err != nil {
				return fmt.Errorf("apply UndoApplied inverse: %w", err)
			}
		}

	default:
		// Selection and snapshot markers are not indexed.
		return nil
	}

	if _, err := db.Exec("UPDATE scenes SET updated_at = ? WHERE scene_id = ?", ts, sceneID); err != nil {
		return fmt.Errorf("touch scene: %w", err)
	}
	return nil
}

// renameFunction renames a row and every f1/f2 link that names it.
func renameFunction(db execer, sceneID, from, to, ts string) error {
	for _, q := range []string{
		"UPDATE functions SET name = ?, updated_at = ? WHERE scene_id = ? AND name = ?",
		"UPDATE functions SET f1 = ?, updated_at = ? WHERE scene_id = ? AND f1 = ?",
		"UPDATE functions SET f2 = ?, updated_at = ? WHERE scene_id = ? AND f2 = ?",
	} {
		if _, err := db.Exec(q, to, ts, sceneID, from); err != nil {
			return err
		}
	}
	return nil
}

func operands(p core.Params) (f1, f2 *string) {
	bp, ok := p.(core.BinaryParams)
	if !ok {
		return nil, nil
	}
	return &bp.F1, &bp.F2
}

func insertFunction(db execer, sceneID string, fn core.Function, index int, ts string) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM functions WHERE scene_id = ?", sceneID).Scan(&count); err != nil {
		return err
	}
	if index < 0 || index > count {
		index = count
	}
	if _, err := db.Exec("UPDATE functions SET position = position + 1 WHERE scene_id = ? AND position >= ?", sceneID, index); err != nil {
		return err
	}

	var f1, f2 *string
	if fn.Kind.IsBinary() {
		f1, f2 = operands(fn.Params)
	}
	_, err := db.Exec(
		`INSERT INTO functions (scene_id, name, kind, position, f1, f2, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sceneID, fn.Name, fn.Kind.Keyword(), index, f1, f2, ts)
	return err
}

func deleteFunction(db execer, sceneID, name string) error {
	var position int
	err := db.QueryRow("SELECT position FROM functions WHERE scene_id = ? AND name = ?", sceneID, name).Scan(&position)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := db.Exec("DELETE FROM functions WHERE scene_id = ? AND name = ?", sceneID, name); err != nil {
		return err
	}
	_, err = db.Exec("UPDATE functions SET position = position - 1 WHERE scene_id = ? AND position > ?", sceneID, position)
	return err
}
