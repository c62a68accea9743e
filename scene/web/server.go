// ABOUTME: HTTP server for funcdeck: chi router, middleware, and route table.
// ABOUTME: Serves the JSON scene API, edit sessions, and the HTML scene index.
package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"

	"github.com/2389-research/funcdeck/editor"
	"github.com/2389-research/funcdeck/scene/core"
	"github.com/2389-research/funcdeck/scene/render"
	"github.com/2389-research/funcdeck/scene/server"
)

// graphCacheTTL bounds how long a rendered link graph is reused.
const graphCacheTTL = 10 * time.Minute

// Server wires the shared app state and the edit session store to HTTP.
type Server struct {
	router   chi.Router
	state    *server.AppState
	sessions *editor.Store
	graphs   *render.Cache
}

// ServerOption configures optional Server behavior.
type ServerOption func(*serverOptions)

type serverOptions struct {
	authToken string
}

// WithAuthToken requires a bearer token or login cookie on every route
// except /health and /login.
func WithAuthToken(token string) ServerOption {
	return func(o *serverOptions) {
		o.authToken = token
	}
}

// NewServer creates a Server with all routes configured.
func NewServer(state *server.AppState, sessions *editor.Store, opts ...ServerOption) *Server {
	var o serverOptions
	for _, opt := range opts {
		opt(&o)
	}
	s := &Server{
		state:    state,
		sessions: sessions,
		graphs:   render.NewCache(render.RenderDOT, graphCacheTTL),
	}

	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if o.authToken != "" {
		r.Use(server.AuthMiddleware(o.authToken))
		r.Get("/login", server.LoginHandler(o.authToken))
	}

	r.Get("/", s.handleIndex)
	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/kinds", s.handleKinds)

		r.Get("/scenes", s.handleListScenes)
		r.Post("/scenes", s.handleCreateScene)
		r.Route("/scenes/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetScene)
			r.Patch("/", s.handleUpdateScene)
			r.Delete("/", s.handleDeleteScene)

			r.Get("/functions", s.handleIndexedFunctions)
			r.Post("/functions", s.handleAddFunction)
			r.Put("/functions/{name}", s.handleEditFunction)
			r.Delete("/functions/{name}", s.handleRemoveFunction)
			r.Post("/functions/{name}/rename", s.handleRenameFunction)
			r.Post("/select", s.handleSelect)
			r.Post("/undo", s.handleUndo)

			r.Get("/deck", s.handleDeck)
			r.Get("/export.yaml", s.handleExportYAML)
			r.Get("/graph", s.handleGraph)

			r.Post("/sessions", s.handleOpenSession)
		})

		r.Route("/sessions/{sid}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Patch("/", s.handleSetSessionFields)
			r.Delete("/", s.handleCancelSession)
			r.Post("/execute", s.handleExecuteSession)
		})
	})

	s.router = r
	return s
}

// ServeHTTP implements the http.Handler interface, delegating to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// actorFor resolves the {id} URL parameter to a live scene actor.
func (s *Server) actorFor(r *http.Request) (*core.SceneActorHandle, error) {
	id, err := ulid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return nil, server.ErrSceneNotFound
	}
	handle := s.state.GetActor(id)
	if handle == nil {
		return nil, server.ErrSceneNotFound
	}
	return handle, nil
}
