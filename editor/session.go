// ABOUTME: Edit session holding a function form bound to one scene actor
// ABOUTME: Field edits stay local to the form until Execute sends the add or edit command

package editor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/2389-research/funcdeck/scene/core"
)

var (
	// ErrSessionNotFound indicates an unknown or expired session ID.
	ErrSessionNotFound = errors.New("edit session not found")

	// ErrSessionClosed indicates the session was already executed.
	ErrSessionClosed = errors.New("edit session already executed")
)

// Mode says whether a session adds a new function or edits an existing one.
type Mode string

const (
	ModeAdd  Mode = "add"
	ModeEdit Mode = "edit"
)

// Session is one open add or edit form bound to a scene actor.
type Session struct {
	mu         sync.Mutex
	ID         string
	SceneID    ulid.ULID
	Mode       Mode
	Target     string // name of the edited function; empty when adding
	CreatedAt  time.Time
	form       *core.Form
	actor      *core.SceneActorHandle
	closed     bool
	accessedAt time.Time
}

func newSession(actor *core.SceneActorHandle, mode Mode, target string, form *core.Form) *Session {
	now := time.Now()
	return &Session{
		ID:         newSessionID(),
		SceneID:    actor.SceneID,
		Mode:       mode,
		Target:     target,
		CreatedAt:  now,
		form:       form,
		actor:      actor,
		accessedAt: now,
	}
}

func (sess *Session) touch() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.accessedAt = time.Now()
}

func (sess *Session) lastAccess() time.Time {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.accessedAt
}

// Kind returns the kind of the function being edited.
func (sess *Session) Kind() core.Kind {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.form.Kind
}

// Name returns the current name in the form.
func (sess *Session) Name() string {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.form.Name
}

// Set assigns one form field. See core.Form.Set for field names.
func (sess *Session) Set(field, value string) error {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return ErrSessionClosed
	}
	return sess.form.Set(field, value)
}

// Check reports whether the visible fields went stale since the last Draw.
func (sess *Session) Check() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.form.Check()
}

// Draw returns the visible fields and resets the redraw check.
func (sess *Session) Draw() []core.FieldView {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.form.Draw()
}

// Preview renders the deck text the form would produce, or the error
// Execute would fail with for invalid params.
func (sess *Session) Preview() (string, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	params, err := sess.form.Store()
	if err != nil {
		return "", err
	}
	fn, err := core.NewFunction(sess.form.Name, sess.form.Kind, params)
	if err != nil {
		return "", err
	}
	return core.Emit(fn)
}

// Execute stores the form and sends it to the scene. Adding sends one
// AddFunction. Editing sends one EditFunction under the original name,
// carrying the new name when it changed, so a single undo reverts both.
// Nothing reaches the scene if the form does not validate.
func (sess *Session) Execute() ([]core.Event, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return nil, ErrSessionClosed
	}

	params, err := sess.form.Store()
	if err != nil {
		return nil, err
	}
	name := sess.form.Name
	if err := core.ValidateName(name); err != nil {
		return nil, err
	}

	var events []core.Event
	switch sess.Mode {
	case ModeAdd:
		events, err = sess.actor.SendCommand(core.AddFunctionCommand{Name: name, Kind: sess.form.Kind, Params: params})
		if err != nil {
			return nil, err
		}
	case ModeEdit:
		cmd := core.EditFunctionCommand{Name: sess.Target, Params: params}
		if name != sess.Target {
			cmd.NewName = name
		}
		events, err = sess.actor.SendCommand(cmd)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown session mode %q", sess.Mode)
	}

	sess.closed = true
	return events, nil
}
