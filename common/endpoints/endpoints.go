// Package endpoints provides the admin http surface shared by heron server
// binaries: a health check and a JSON rendering of a StatsReceiver.
package endpoints

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	log "github.com/sirupsen/logrus"

	"github.com/u20024804/heron/common/stats"
)

// NewAdminServer returns a server that will serve health and stats on addr.
// Handlers are registered on a private mux so multiple servers can coexist
// in one process (and in tests).
func NewAdminServer(addr string, stat stats.StatsReceiver) *AdminServer {
	s := &AdminServer{
		Addr:  addr,
		Stats: stat,
		Mux:   http.NewServeMux(),
	}
	s.Mux.HandleFunc("/", helpHandler)
	s.Mux.HandleFunc("/health", healthHandler)
	s.Mux.HandleFunc("/admin/metrics.json", s.statsHandler)
	return s
}

type AdminServer struct {
	Addr  string
	Stats stats.StatsReceiver
	Mux   *http.ServeMux
}

func (s *AdminServer) Serve() error {
	log.Info("Serving http & stats on ", s.Addr)
	return http.ListenAndServe(s.Addr, s.Mux)
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Common paths: '/health', '/admin/metrics.json'", 501)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "ok")
}

func (s *AdminServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	const contentTypeHdr = "Content-Type"
	const contentTypeVal = "application/json; charset=utf-8"
	w.Header().Set(contentTypeHdr, contentTypeVal)

	pretty := r.URL.Query().Get("pretty") == "true"
	str := s.Stats.Render(pretty)
	if _, err := io.Copy(w, bytes.NewBuffer(str)); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
}
