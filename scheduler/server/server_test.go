package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/u20024804/heron/common/stats"
	"github.com/u20024804/heron/config"
	"github.com/u20024804/heron/spi/packing"
	"github.com/u20024804/heron/spi/scheduler"
	"github.com/u20024804/heron/statemgr/localfs"
)

// fakeScheduler records the requests the server routes to it.
type fakeScheduler struct {
	mu       sync.Mutex
	killed   []scheduler.KillRequest
	restarts []scheduler.RestartRequest
	err      error
}

func (f *fakeScheduler) Initialize(cfg, runtime *config.Config) error { return nil }
func (f *fakeScheduler) OnSchedule(plan *packing.PackingPlan) error   { return nil }
func (f *fakeScheduler) Close() error                                 { return nil }

func (f *fakeScheduler) OnKill(req scheduler.KillRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.killed = append(f.killed, req)
	return nil
}

func (f *fakeScheduler) OnRestart(req scheduler.RestartRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.restarts = append(f.restarts, req)
	return nil
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestKillEndpoint(t *testing.T) {
	sched := &fakeScheduler{}
	s := NewServer("localhost:0", "wc", sched, stats.NilStatsReceiver())
	ts := httptest.NewServer(s.Mux())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/kill", scheduler.KillRequest{TopologyName: "wc"})
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("kill returned %d", resp.StatusCode)
	}
	if len(sched.killed) != 1 || sched.killed[0].TopologyName != "wc" {
		t.Fatalf("unexpected kill requests %+v", sched.killed)
	}
}

func TestKillWrongTopology(t *testing.T) {
	sched := &fakeScheduler{}
	s := NewServer("localhost:0", "wc", sched, stats.NilStatsReceiver())
	ts := httptest.NewServer(s.Mux())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/kill", scheduler.KillRequest{TopologyName: "other"})
	defer resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for topology mismatch, got %d", resp.StatusCode)
	}
	if len(sched.killed) != 0 {
		t.Fatal("mismatched kill must not reach the scheduler")
	}
}

func TestKillMalformedBody(t *testing.T) {
	s := NewServer("localhost:0", "wc", &fakeScheduler{}, stats.NilStatsReceiver())
	ts := httptest.NewServer(s.Mux())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/kill", "application/json", bytes.NewReader([]byte("{nope")))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestKillRequiresPost(t *testing.T) {
	s := NewServer("localhost:0", "wc", &fakeScheduler{}, stats.NilStatsReceiver())
	ts := httptest.NewServer(s.Mux())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/kill")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", resp.StatusCode)
	}
}

func TestKillSchedulerError(t *testing.T) {
	sched := &fakeScheduler{err: errors.New("injected kill failure")}
	s := NewServer("localhost:0", "wc", sched, stats.NilStatsReceiver())
	ts := httptest.NewServer(s.Mux())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/kill", scheduler.KillRequest{TopologyName: "wc"})
	defer resp.Body.Close()
	if resp.StatusCode != 500 {
		t.Fatalf("expected 500 when the scheduler fails, got %d", resp.StatusCode)
	}
}

func TestRestartEndpoint(t *testing.T) {
	sched := &fakeScheduler{}
	s := NewServer("localhost:0", "wc", sched, stats.NilStatsReceiver())
	ts := httptest.NewServer(s.Mux())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/restart", scheduler.RestartRequest{TopologyName: "wc", ContainerID: 2})
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("restart returned %d", resp.StatusCode)
	}
	if len(sched.restarts) != 1 || sched.restarts[0].ContainerID != 2 {
		t.Fatalf("unexpected restart requests %+v", sched.restarts)
	}
}

func TestHealthServed(t *testing.T) {
	s := NewServer("localhost:0", "wc", &fakeScheduler{}, stats.NilStatsReceiver())
	ts := httptest.NewServer(s.Mux())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Fatalf("health returned %d", resp.StatusCode)
	}
}

func TestRegisterLocation(t *testing.T) {
	sm, err := localfs.NewStateManager(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer("localhost:7777", "wc", &fakeScheduler{}, stats.NilStatsReceiver())
	if err := s.RegisterLocation(sm); err != nil {
		t.Fatal(err)
	}
	loc, err := sm.GetSchedulerLocation("wc")
	if err != nil {
		t.Fatal(err)
	}
	if loc.HTTPEndpoint != "localhost:7777" {
		t.Fatalf("unexpected endpoint %q", loc.HTTPEndpoint)
	}
	if loc.TopologyName != "wc" {
		t.Fatalf("unexpected topology %q", loc.TopologyName)
	}
}
