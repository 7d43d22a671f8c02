package packages

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sethgrid/pester"
)

func fastPesterClient() *pester.Client {
	client := MakePesterClient()
	client.Backoff = func(retry int) time.Duration { return 0 }
	return client
}

func TestHTTPFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("core-package-bytes"))
	}))
	defer ts.Close()

	target := filepath.Join(t.TempDir(), "work", "heron-core.tar.gz")
	f := NewCustomHTTPFetcher(fastPesterClient())
	if err := f.Fetch(ts.URL+"/heron-core.tar.gz", target); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "core-package-bytes" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestHTTPFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			http.Error(w, "not yet", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("eventually"))
	}))
	defer ts.Close()

	target := filepath.Join(t.TempDir(), "pkg.tar.gz")
	f := NewCustomHTTPFetcher(fastPesterClient())
	if err := f.Fetch(ts.URL, target); err != nil {
		t.Fatalf("expected fetch to succeed after retries: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n < 3 {
		t.Fatalf("expected at least 3 attempts, got %d", n)
	}
}

func TestHTTPFetchNotFound(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	defer ts.Close()

	target := filepath.Join(t.TempDir(), "pkg.tar.gz")
	f := NewCustomHTTPFetcher(fastPesterClient())
	if err := f.Fetch(ts.URL, target); err == nil {
		t.Fatal("expected 404 to fail the fetch")
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) {
		t.Fatal("failed fetch must not leave a target file behind")
	}
}

func TestFileFetchOverwrites(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "topology.tar.gz")
	if err := os.WriteFile(src, []byte("v2"), 0644); err != nil {
		t.Fatal(err)
	}
	target := filepath.Join(dir, "work", "topology.tar.gz")
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(target, []byte("v1-old"), 0644); err != nil {
		t.Fatal(err)
	}

	f := &FileFetcher{}
	if err := f.Fetch("file://"+src, target); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "v2" {
		t.Fatalf("expected old package to be overwritten, got %q", data)
	}
}

func TestForURI(t *testing.T) {
	if f, err := ForURI("http://repo/heron-core.tar.gz"); err != nil {
		t.Fatal(err)
	} else if _, ok := f.(*HTTPFetcher); !ok {
		t.Fatalf("expected http fetcher, got %T", f)
	}
	if f, err := ForURI("file:///releases/heron-core.tar.gz"); err != nil {
		t.Fatal(err)
	} else if _, ok := f.(*FileFetcher); !ok {
		t.Fatalf("expected file fetcher, got %T", f)
	}
	if f, err := ForURI("/releases/heron-core.tar.gz"); err != nil {
		t.Fatal(err)
	} else if _, ok := f.(*FileFetcher); !ok {
		t.Fatalf("expected file fetcher for bare path, got %T", f)
	}
	if _, err := ForURI("ftp://repo/pkg"); err == nil {
		t.Fatal("expected unsupported scheme to fail")
	}
}
