// Package server exposes a running topology's scheduler over http: kill and
// restart requests from clients, plus the usual admin endpoints.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/u20024804/heron/common/endpoints"
	"github.com/u20024804/heron/common/stats"
	"github.com/u20024804/heron/spi/scheduler"
	"github.com/u20024804/heron/spi/statemgr"
)

type Server struct {
	addr         string
	topologyName string
	scheduler    scheduler.Scheduler
	admin        *endpoints.AdminServer
	stat         stats.StatsReceiver

	// OnKilled, if set, runs after a kill request succeeds (the main uses it
	// to exit the scheduler process).
	OnKilled func()
}

// NewServer wires the kill/restart handlers for topologyName onto the admin
// mux and serves everything on addr.
func NewServer(addr, topologyName string, sched scheduler.Scheduler, stat stats.StatsReceiver) *Server {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	s := &Server{
		addr:         addr,
		topologyName: topologyName,
		scheduler:    sched,
		admin:        endpoints.NewAdminServer(addr, stat),
		stat:         stat.Scope("server"),
	}
	s.admin.Mux.HandleFunc("/kill", s.killHandler)
	s.admin.Mux.HandleFunc("/restart", s.restartHandler)
	return s
}

// Mux exposes the handler for tests.
func (s *Server) Mux() *http.ServeMux {
	return s.admin.Mux
}

// RegisterLocation records where this scheduler serves http so clients can
// find it.
func (s *Server) RegisterLocation(sm statemgr.StateManager) error {
	return sm.SetSchedulerLocation(&statemgr.SchedulerLocation{
		TopologyName: s.topologyName,
		HTTPEndpoint: s.addr,
	})
}

func (s *Server) Serve() error {
	log.Infof("Scheduler for %s serving http on %s", s.topologyName, s.addr)
	return s.admin.Serve()
}

func (s *Server) killHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "kill requires POST", http.StatusMethodNotAllowed)
		return
	}
	var req scheduler.KillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("malformed kill request: %v", err), http.StatusBadRequest)
		return
	}
	if req.TopologyName != s.topologyName {
		http.Error(w, fmt.Sprintf("this scheduler runs %q, not %q", s.topologyName, req.TopologyName),
			http.StatusBadRequest)
		return
	}

	if err := s.scheduler.OnKill(req); err != nil {
		log.Errorf("Kill of %s failed: %v", req.TopologyName, err)
		s.stat.Counter("killFailures").Inc(1)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.stat.Counter("kills").Inc(1)
	writeOK(w)
	if s.OnKilled != nil {
		go s.OnKilled()
	}
}

func (s *Server) restartHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "restart requires POST", http.StatusMethodNotAllowed)
		return
	}
	var req scheduler.RestartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("malformed restart request: %v", err), http.StatusBadRequest)
		return
	}
	if req.TopologyName != s.topologyName {
		http.Error(w, fmt.Sprintf("this scheduler runs %q, not %q", s.topologyName, req.TopologyName),
			http.StatusBadRequest)
		return
	}

	if err := s.scheduler.OnRestart(req); err != nil {
		log.Errorf("Restart of %s container %d failed: %v", req.TopologyName, req.ContainerID, err)
		s.stat.Counter("restartFailures").Inc(1)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.stat.Counter("restarts").Inc(1)
	writeOK(w)
}

func writeOK(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
