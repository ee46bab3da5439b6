package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/doc-toc/pkg/entity"
	"github.com/Sriram-PR/doc-toc/pkg/generate"
)

// StoreProvider yields the documents store a request should read from
type StoreProvider interface {
	Store() *entity.Store
}

type staticStore struct{ store *entity.Store }

func (s staticStore) Store() *entity.Store { return s.store }

// Static wraps a fixed store as a StoreProvider
func Static(store *entity.Store) StoreProvider {
	return staticStore{store: store}
}

// Server is the HTTP API over table of contents generation.
// Every request generates with a fresh Generator against the current store.
type Server struct {
	router   chi.Router
	stores   StoreProvider
	settings generate.Settings
	log      *logrus.Entry
}

// NewServer creates and configures the HTTP server
func NewServer(stores StoreProvider, settings generate.Settings, log *logrus.Entry) *Server {
	s := &Server{
		stores:   stores,
		settings: settings,
		log:      log.WithField("component", "api"),
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api/documents", func(r chi.Router) {
		r.Get("/", s.handleListDocuments)
		r.Get("/{id}", s.handleRenderDocument)
		r.Get("/{id}/toc", s.handleGenerateToC)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
