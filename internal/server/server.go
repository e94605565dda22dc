package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/foxseedlab/gijirokun/internal/repository"
	"github.com/foxseedlab/gijirokun/internal/session"
)

// Server is the HTTP and WebSocket surface: meeting CRUD against the store
// and the live subscriber channel against the session registry.
type Server struct {
	registry *session.Registry
	repo     repository.Repository
}

func NewServer(registry *session.Registry, repo repository.Repository) *Server {
	return &Server{registry: registry, repo: repo}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/meetings", func(r chi.Router) {
		r.Get("/", s.handleListMeetings)
		r.Post("/", s.handleCreateMeeting)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetMeeting)
			r.Put("/", s.handleUpdateMeeting)
			r.Delete("/", s.handleDeleteMeeting)
			r.Post("/agenda", s.handleAddAgendaItem)
			r.Post("/agenda/{itemID}/status", s.handleSetAgendaStatus)
		})
	})

	r.Get("/ws/meetings/{id}", s.handleWebSocket)
	return r
}
