// ABOUTME: JSON response helpers and the mapping from domain errors to HTTP status codes.
// ABOUTME: Not found is 404, conflicts with existing links or names are 409, bad values are 422.
package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/2389-research/funcdeck/editor"
	"github.com/2389-research/funcdeck/scene/core"
	"github.com/2389-research/funcdeck/scene/render"
	"github.com/2389-research/funcdeck/scene/server"
)

// maxBodyBytes caps request bodies, YAML scene uploads included.
const maxBodyBytes = 4 << 20

// errMalformed marks request bodies that could not be decoded.
var errMalformed = errors.New("malformed request body")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("component=scene.web action=encode_failed err=%v", err)
	}
}

// writeError writes {"error": msg} with the status statusFor picks.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("component=scene.web action=internal_error err=%v", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		notFound  *core.FunctionNotFoundError
		duplicate *core.DuplicateNameError
		inUse     *core.FunctionInUseError
		link      *core.UnresolvedLinkError
		index     *core.FunctionIndexError
	)
	switch {
	case errors.Is(err, errMalformed),
		errors.Is(err, render.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.As(err, &notFound),
		errors.Is(err, server.ErrSceneNotFound),
		errors.Is(err, editor.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.As(err, &duplicate),
		errors.As(err, &inUse),
		errors.As(err, &link),
		errors.Is(err, core.ErrSelfLink),
		errors.Is(err, core.ErrLinkCycle),
		errors.Is(err, core.ErrNothingToUndo),
		errors.Is(err, editor.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, &core.InvalidParamsError{}),
		errors.As(err, &index),
		errors.Is(err, core.ErrPointCount),
		errors.Is(err, core.ErrInvalidName),
		errors.Is(err, core.ErrUnknownKind),
		errors.Is(err, core.ErrNoLinkTargets),
		errors.Is(err, core.ErrSceneNotCreated):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrActorBusy),
		errors.Is(err, render.ErrGraphvizMissing):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// decodeJSON reads a JSON body into v. Unknown fields are rejected. Errors
// that come from a domain type's own decoding, like an unknown kind name,
// keep their meaning.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, core.ErrUnknownKind) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errMalformed)
		}
		return fmt.Errorf("%w: %v", errMalformed, err)
	}
	return nil
}
