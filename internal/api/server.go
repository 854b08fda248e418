package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crazyharmony/traf-exercize/internal/report"
)

// ReportSource provides the latest report snapshot to serve.
type ReportSource func() *report.Report

// Server exposes the latest report over HTTP.
type Server struct {
	srv    *http.Server
	source ReportSource
}

// NewServer builds the HTTP server. The Prometheus /metrics endpoint is
// mounted alongside the report API.
func NewServer(listenAddr string, source ReportSource) *Server {
	s := &Server{source: source}

	r := mux.NewRouter()
	r.HandleFunc("/api/v1/report", s.reportHandler).Methods("GET")
	r.HandleFunc("/healthz", s.healthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	s.srv = &http.Server{
		Addr:         listenAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start launches the server in its own goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("API server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("API server error: %v", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) reportHandler(w http.ResponseWriter, r *http.Request) {
	rep := s.source()
	if rep == nil {
		http.Error(w, "no report available yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rep); err != nil {
		log.Printf("Error encoding report response: %v", err)
	}
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}
