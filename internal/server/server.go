package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/claude/setlog/internal/engine"
	"github.com/claude/setlog/internal/stats"
	"github.com/claude/setlog/internal/storage"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	db         *storage.DB
	workouts   *engine.Manager
	weekPolicy stats.WeekPolicy
	apiKey     string
	log        *slog.Logger
	router     chi.Router
}

// New creates a new Server with all routes configured.
func New(db *storage.DB, workouts *engine.Manager, weekPolicy stats.WeekPolicy, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:         db,
		workouts:   workouts,
		weekPolicy: weekPolicy,
		apiKey:     apiKey,
		log:        log,
		router:     chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	// Backup import (API key required)
	s.router.Route("/api/v1/import", func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/", s.handleImport)
	})

	// Templates
	s.router.Get("/api/v1/templates", s.handleListTemplates)
	s.router.Post("/api/v1/templates", s.handleCreateTemplate)
	s.router.Get("/api/v1/templates/{id}", s.handleGetTemplate)
	s.router.Patch("/api/v1/templates/{id}", s.handleUpdateTemplate)
	s.router.Delete("/api/v1/templates/{id}", s.handleDeleteTemplate)
	s.router.Get("/api/v1/templates/{id}/last-session", s.handleLastSession)

	// Sessions
	s.router.Post("/api/v1/sessions", s.handleCreateSession)
	s.router.Get("/api/v1/sessions", s.handleListSessions)
	s.router.Get("/api/v1/sessions/{id}", s.handleGetSession)
	s.router.Delete("/api/v1/sessions/{id}", s.handleDeleteSession)

	// Active workout
	s.router.Post("/api/v1/workout/{id}/start", s.handleWorkoutStart)
	s.router.Get("/api/v1/workout/{id}", s.handleWorkoutStatus)
	s.router.Post("/api/v1/workout/{id}/record", s.handleWorkoutRecord)
	s.router.Post("/api/v1/workout/{id}/undo", s.handleWorkoutUndo)
	s.router.Post("/api/v1/workout/{id}/skip-rest", s.handleWorkoutSkipRest)
	s.router.Post("/api/v1/workout/{id}/adjust-rest", s.handleWorkoutAdjustRest)
	s.router.Post("/api/v1/workout/{id}/finish", s.handleWorkoutFinish)
	s.router.Get("/api/v1/workout/{id}/events", s.handleWorkoutEvents)

	// Stats
	s.router.Get("/api/v1/stats/weekly", s.handleWeeklyStats)
	s.router.Get("/api/v1/stats/progress", s.handleProgressStats)

	// Settings (meta store)
	s.router.Get("/api/v1/settings/{key}", s.handleGetSetting)
	s.router.Put("/api/v1/settings/{key}", s.handlePutSetting)
}
