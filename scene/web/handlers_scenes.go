// ABOUTME: JSON handlers for scene listing, creation, metadata, deletion, and exports.
// ABOUTME: Scenes may be created empty from JSON or populated from a YAML scene file.
package web

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/2389-research/funcdeck/scene/core"
	"github.com/2389-research/funcdeck/scene/export"
	"github.com/2389-research/funcdeck/scene/render"
	"github.com/2389-research/funcdeck/scene/store"
)

func (s *Server) handleKinds(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, kindViews())
}

func (s *Server) handleListScenes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.summaries())
}

func (s *Server) summaries() []SceneSummaryView {
	scenes := []SceneSummaryView{}
	for _, id := range s.state.ListActorIDs() {
		handle := s.state.GetActor(id)
		if handle == nil {
			continue
		}
		handle.ReadState(func(st *core.SceneState) {
			if st.Core != nil {
				scenes = append(scenes, summarize(st))
			}
		})
	}
	return scenes
}

type createSceneRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// handleCreateScene accepts {"title", "description"} as JSON, or a whole
// scene file when the body is YAML.
func (s *Server) handleCreateScene(w http.ResponseWriter, r *http.Request) {
	cmds, err := s.createCommands(w, r)
	if err != nil {
		writeError(w, err)
		return
	}
	sceneID, err := s.state.CreateScene(cmds...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(s.state.GetActor(sceneID)))
}

func (s *Server) createCommands(w http.ResponseWriter, r *http.Request) ([]core.Command, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformed, err)
		}
		scene, err := export.ParseSceneYAML(bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformed, err)
		}
		return scene.Commands()
	}

	var req createSceneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return nil, err
	}
	return []core.Command{core.CreateSceneCommand{Title: req.Title, Description: req.Description}}, nil
}

func (s *Server) handleGetScene(w http.ResponseWriter, r *http.Request) {
	handle, err := s.actorFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(handle))
}

func (s *Server) handleUpdateScene(w http.ResponseWriter, r *http.Request) {
	var cmd core.UpdateSceneCommand
	if err := decodeJSON(w, r, &cmd); err != nil {
		writeError(w, err)
		return
	}
	s.sendAndRespond(w, r, cmd)
}

func (s *Server) handleDeleteScene(w http.ResponseWriter, r *http.Request) {
	handle, err := s.actorFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.state.DeleteScene(handle.SceneID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleIndexedFunctions lists the scene's functions from its SQLite index.
// The index is written by the persister and may trail the live scene by
// events still in flight.
func (s *Server) handleIndexedFunctions(w http.ResponseWriter, r *http.Request) {
	handle, err := s.actorFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	path := filepath.Join(s.state.Storage.SceneDir(handle.SceneID), store.IndexFile)
	idx, err := store.OpenSqlite(path)
	if err != nil {
		writeError(w, err)
		return
	}
	defer func() { _ = idx.Close() }()

	rows, err := idx.ListFunctions(handle.SceneID)
	if err != nil {
		writeError(w, err)
		return
	}
	if rows == nil {
		rows = []store.FunctionRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	s.sendAndRespond(w, r, core.UndoCommand{})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var cmd core.SelectFunctionCommand
	if err := decodeJSON(w, r, &cmd); err != nil {
		writeError(w, err)
		return
	}
	s.sendAndRespond(w, r, cmd)
}

func (s *Server) handleDeck(w http.ResponseWriter, r *http.Request) {
	handle, err := s.actorFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var deck string
	handle.ReadState(func(st *core.SceneState) {
		deck, err = export.RenderDeck(st)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, deck)
}

func (s *Server) handleExportYAML(w http.ResponseWriter, r *http.Request) {
	handle, err := s.actorFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var text string
	handle.ReadState(func(st *core.SceneState) {
		text, err = export.ExportSceneYAML(st)
	})
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="scene.yaml"`)
	_, _ = io.WriteString(w, text)
}

// handleGraph renders the link graph. ?format= is dot, svg (default) or png.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	handle, err := s.actorFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "svg"
	}
	var dotText string
	handle.ReadState(func(st *core.SceneState) {
		dotText = render.LinkGraphDOT(st)
	})
	out, err := s.graphs.Render(r.Context(), dotText, format)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", render.ContentType(format))
	_, _ = w.Write(out)
}

// sendAndRespond sends cmd to the scene named by the URL and replies with
// the updated scene.
func (s *Server) sendAndRespond(w http.ResponseWriter, r *http.Request, cmd core.Command) {
	handle, err := s.actorFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := handle.SendCommand(cmd); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(handle))
}

// viewOf snapshots the scene into a view under the read lock.
func viewOf(handle *core.SceneActorHandle) SceneView {
	var v SceneView
	handle.ReadState(func(st *core.SceneState) { v = sceneView(st) })
	return v
}
