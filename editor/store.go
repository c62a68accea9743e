// ABOUTME: In-memory edit session store with TTL cleanup and capacity limits
// ABOUTME: Opens add/edit sessions against a scene actor and cancels or executes them

package editor

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389-research/funcdeck/scene/core"
)

// Store holds open edit sessions and expires idle ones.
type Store struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	maxSessions int
	ttl         time.Duration
}

// NewStore creates a new session store
func NewStore(maxSessions int, ttl time.Duration) *Store {
	return &Store{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		ttl:         ttl,
	}
}

// InvokeAdd opens a session that will add a function of kind k named name.
// The form starts from the kind defaults; combinators link the first two
// functions of the scene and fail with ErrNoLinkTargets on an empty one.
func (s *Store) InvokeAdd(actor *core.SceneActorHandle, k core.Kind, name string) (*Session, error) {
	if err := core.ValidateName(name); err != nil {
		return nil, err
	}
	form := core.NewForm(k)
	form.Name = name

	var err error
	actor.ReadState(func(state *core.SceneState) {
		if state.Core == nil {
			err = core.ErrSceneNotCreated
			return
		}
		if _, exists := state.Get(name); exists {
			err = &core.DuplicateNameError{Name: name}
			return
		}
		err = form.Defaults(state)
	})
	if err != nil {
		return nil, err
	}
	return s.add(newSession(actor, ModeAdd, "", form)), nil
}

// InvokeEdit opens a session on the function at list position index.
func (s *Store) InvokeEdit(actor *core.SceneActorHandle, index int) (*Session, error) {
	form := &core.Form{}
	var target string
	var err error
	actor.ReadState(func(state *core.SceneState) {
		var fn core.Function
		fn, err = state.At(index)
		if err != nil {
			return
		}
		target = fn.Name
		err = form.Load(fn.Clone())
	})
	if err != nil {
		return nil, err
	}
	return s.add(newSession(actor, ModeEdit, target, form)), nil
}

func (s *Store) add(sess *Session) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.maxSessions {
		var oldestID string
		var oldestTime time.Time
		for id, other := range s.sessions {
			if last := other.lastAccess(); oldestTime.IsZero() || last.Before(oldestTime) {
				oldestID = id
				oldestTime = last
			}
		}
		delete(s.sessions, oldestID)
	}

	s.sessions[sess.ID] = sess
	return sess
}

// Get retrieves a session by ID and updates its LastAccess time
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	sess.touch()
	return sess, true
}

// Cancel drops a session without touching the scene. It reports whether
// the session existed.
func (s *Store) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	return ok
}

// Execute runs a session and removes it once the scene accepted the
// change. A rejected session stays open so the form can be corrected.
func (s *Store) Execute(id string) ([]core.Event, error) {
	sess, ok := s.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	events, err := sess.Execute()
	if err != nil {
		return nil, err
	}
	s.Cancel(id)
	return events, nil
}

// Len returns the number of open sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Cleanup removes sessions idle for longer than the TTL
func (s *Store) Cleanup() {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		if sess.lastAccess().Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}

// StartCleanup starts a background cleanup goroutine and returns a stop function
func (s *Store) StartCleanup(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-ticker.C:
				s.Cleanup()
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		close(done)
	}
}

func newSessionID() string {
	return uuid.New().String()
}
