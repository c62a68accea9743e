// ABOUTME: JSON handlers for edit sessions: open, inspect, set fields, execute, and cancel.
// ABOUTME: Field updates apply in request order so a table resize can precede its entries.
package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/2389-research/funcdeck/editor"
	"github.com/2389-research/funcdeck/scene/core"
	"github.com/2389-research/funcdeck/scene/server"
)

type openSessionRequest struct {
	Mode  editor.Mode `json:"mode"`
	Kind  string      `json:"kind,omitempty"`
	Name  string      `json:"name,omitempty"`
	Index *int        `json:"index,omitempty"`
}

type fieldUpdate struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type setFieldsRequest struct {
	Set []fieldUpdate `json:"set"`
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	handle, err := s.actorFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req openSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	var sess *editor.Session
	switch req.Mode {
	case editor.ModeAdd:
		k, kerr := core.ParseKind(req.Kind)
		if kerr != nil {
			writeError(w, kerr)
			return
		}
		sess, err = s.sessions.InvokeAdd(handle, k, req.Name)
	case editor.ModeEdit:
		if req.Index == nil {
			writeError(w, fmt.Errorf("%w: edit session needs an index", errMalformed))
			return
		}
		sess, err = s.sessions.InvokeEdit(handle, *req.Index)
	default:
		err = fmt.Errorf("%w: mode must be %q or %q", errMalformed, editor.ModeAdd, editor.ModeEdit)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sessionView(sess))
}

func (s *Server) sessionFor(r *http.Request) (*editor.Session, error) {
	id := chi.URLParam(r, "sid")
	sess, ok := s.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", editor.ErrSessionNotFound, id)
	}
	return sess, nil
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionView(sess))
}

// handleSetSessionFields applies updates in order and stops at the first
// rejected one. Updates before it stay applied.
func (s *Server) handleSetSessionFields(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req setFieldsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	for _, u := range req.Set {
		if err := sess.Set(u.Field, u.Value); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, sessionView(sess))
}

func (s *Server) handleCancelSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sid")
	if !s.sessions.Cancel(id) {
		writeError(w, fmt.Errorf("%w: %s", editor.ErrSessionNotFound, id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExecuteSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessionFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := s.sessions.Execute(sess.ID); err != nil {
		writeError(w, err)
		return
	}
	handle := s.state.GetActor(sess.SceneID)
	if handle == nil {
		writeError(w, fmt.Errorf("%w: %s", server.ErrSceneNotFound, sess.SceneID))
		return
	}
	writeJSON(w, http.StatusOK, viewOf(handle))
}
