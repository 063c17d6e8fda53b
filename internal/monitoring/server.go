// internal/monitoring/server.go
package monitoring

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jungyu/DataScout-sub003/internal/utils"
)

// ServerConfig configures the monitoring HTTP server.
type ServerConfig struct {
	ListenAddress string `yaml:"listen_address" json:"listen_address"`
	MetricsPath   string `yaml:"metrics_path" json:"metrics_path"`
}

// Status is the live run snapshot served at /status.
type Status struct {
	Job            string    `json:"job"`
	Strategy       string    `json:"strategy,omitempty"`
	Running        bool      `json:"running"`
	PagesVisited   int       `json:"pages_visited"`
	ItemsExtracted int       `json:"items_extracted"`
	FailedPages    int       `json:"failed_pages"`
	StartedAt      time.Time `json:"started_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty"`
}

// Server exposes health, status, and Prometheus metrics endpoints while a
// run is executing.
type Server struct {
	config ServerConfig
	log    utils.Logger
	srv    *http.Server

	mu     sync.RWMutex
	status Status
}

// NewServer creates the monitoring server.
func NewServer(config ServerConfig, log utils.Logger) *Server {
	if config.ListenAddress == "" {
		config.ListenAddress = ":9090"
	}
	if config.MetricsPath == "" {
		config.MetricsPath = "/metrics"
	}
	if log == nil {
		log = utils.NewComponentLogger("monitoring")
	}

	s := &Server{config: config, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.Handle(config.MetricsPath, promhttp.Handler()).Methods(http.MethodGet)

	s.srv = &http.Server{
		Addr:         config.ListenAddress,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start serves in a background goroutine until Stop is called.
func (s *Server) Start() {
	go func() {
		s.log.Infof("monitoring server listening on %s", s.config.ListenAddress)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Errorf("monitoring server: %v", err)
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// UpdateStatus publishes a fresh status snapshot.
func (s *Server) UpdateStatus(status Status) {
	status.UpdatedAt = time.Now()
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
