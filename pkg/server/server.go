// Package server wraps a gasdb Database in a small HTTP front end for
// operational and manual testing. The library surface in pkg/gasdb
// remains the primary contract; this is additive tooling.
package server

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/adfharrison1/gasdb-go/pkg/api"
	"github.com/adfharrison1/gasdb-go/pkg/gasdb"
)

// Server holds references to the database, router, etc.
type Server struct {
	router *mux.Router
	db     *gasdb.Database
}

// NewServer creates a new instance of Server over db.
func NewServer(db *gasdb.Database) *Server {
	s := &Server{
		router: mux.NewRouter(),
		db:     db,
	}

	// Define HTTP routes
	handler := api.NewHandler(db)
	handler.RegisterRoutes(s.router)
	s.router.HandleFunc("/health", handler.HandleHealth).Methods("GET")

	// Use the logging middleware for all routes
	s.router.Use(requestLoggerMiddleware)

	// Customize NotFoundHandler to log 404s
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("WARN: No route found for %s %s", r.Method, r.URL.Path)
		http.NotFound(w, r)
	})

	return s
}

// requestLoggerMiddleware logs the method, URL path, and duration for each request.
func requestLoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		elapsed := time.Since(start)
		log.Printf("INFO: Request %s %s took %s", r.Method, r.URL.Path, elapsed)
	})
}

// Router exposes the internal mux.Router.
func (s *Server) Router() http.Handler {
	return s.router
}
