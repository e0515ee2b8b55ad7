package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures the admin API routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/jobs", s.handleJobsCollection)
	mux.HandleFunc("/api/jobs/", s.handleJobRoutes)
	mux.HandleFunc("/api/changes", s.handleChangesCollection)
	mux.HandleFunc("/api/changes/", s.handleChangeRoutes)

	return mux
}

// handleJobsCollection dispatches /api/jobs by method
func (s *Server) handleJobsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.JobHandler.ListJobsHandler(w, r)
	case http.MethodPost:
		s.app.JobHandler.EnqueueJobHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobRoutes dispatches /api/jobs/{id} and /api/jobs/dispatch
func (s *Server) handleJobRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// POST /api/jobs/dispatch
	if r.Method == http.MethodPost && path == "/api/jobs/dispatch" {
		s.app.JobHandler.DispatchNowHandler(w, r)
		return
	}

	// GET /api/jobs/{id}
	if r.Method == http.MethodGet {
		s.app.JobHandler.GetJobHandler(w, r)
		return
	}

	http.Error(w, "Not found", http.StatusNotFound)
}

// handleChangesCollection dispatches /api/changes by method
func (s *Server) handleChangesCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.app.ChangeHandler.ListChangesHandler(w, r)
}

// handleChangeRoutes dispatches /api/changes/{id} and /api/changes/{id}/review
func (s *Server) handleChangeRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	// POST /api/changes/{id}/review
	if r.Method == http.MethodPost && strings.HasSuffix(path, "/review") {
		s.app.ChangeHandler.ReviewChangeHandler(w, r)
		return
	}

	// GET /api/changes/{id}
	if r.Method == http.MethodGet {
		s.app.ChangeHandler.GetChangeHandler(w, r)
		return
	}

	http.Error(w, "Not found", http.StatusNotFound)
}
