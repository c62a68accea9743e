// ABOUTME: JSON handlers for adding, editing, renaming, and removing scene functions.
// ABOUTME: Params are decoded by kind; omitted params on add mean the kind defaults.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/2389-research/funcdeck/scene/core"
)

type addFunctionRequest struct {
	Name   string          `json:"name"`
	Kind   *core.Kind      `json:"kind"`
	Params json.RawMessage `json:"params,omitempty"`
}

type editFunctionRequest struct {
	Params json.RawMessage `json:"params"`
}

type renameFunctionRequest struct {
	To string `json:"to"`
}

func (s *Server) handleAddFunction(w http.ResponseWriter, r *http.Request) {
	var req addFunctionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Kind == nil {
		writeError(w, fmt.Errorf("%w: kind is required", errMalformed))
		return
	}
	cmd := core.AddFunctionCommand{Name: req.Name, Kind: *req.Kind}
	if len(req.Params) > 0 && string(req.Params) != "null" {
		params, err := core.UnmarshalParams(*req.Kind, req.Params)
		if err != nil {
			writeError(w, fmt.Errorf("%w: params: %v", errMalformed, err))
			return
		}
		cmd.Params = params
	}

	handle, err := s.actorFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if _, err := handle.SendCommand(cmd); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(handle))
}

func (s *Server) handleEditFunction(w http.ResponseWriter, r *http.Request) {
	handle, err := s.actorFor(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req editFunctionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	name := chi.URLParam(r, "name")
	var (
		kind  core.Kind
		found bool
	)
	handle.ReadState(func(st *core.SceneState) {
		var fn core.Function
		fn, found = st.Get(name)
		kind = fn.Kind
	})
	if !found {
		writeError(w, &core.FunctionNotFoundError{Name: name})
		return
	}
	params, err := core.UnmarshalParams(kind, req.Params)
	if err != nil {
		writeError(w, fmt.Errorf("%w: params: %v", errMalformed, err))
		return
	}
	s.sendAndRespond(w, r, core.EditFunctionCommand{Name: name, Params: params})
}

func (s *Server) handleRemoveFunction(w http.ResponseWriter, r *http.Request) {
	s.sendAndRespond(w, r, core.RemoveFunctionCommand{Name: chi.URLParam(r, "name")})
}

func (s *Server) handleRenameFunction(w http.ResponseWriter, r *http.Request) {
	var req renameFunctionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.sendAndRespond(w, r, core.RenameFunctionCommand{From: chi.URLParam(r, "name"), To: req.To})
}
