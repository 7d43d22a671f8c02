// Package packages stages release and topology packages into a working
// directory: fetching them from http or local sources and extracting the
// tar.gz archives.
package packages

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sethgrid/pester"
	log "github.com/sirupsen/logrus"
)

// Fetcher copies the package at uri to targetPath, overwriting any previous
// file at that path.
type Fetcher interface {
	Fetch(uri, targetPath string) error
}

const defaultHTTPTries = 7 // ~2min total of trying with exponential backoff

// MakePesterClient returns the retrying http client package fetches use.
func MakePesterClient() *pester.Client {
	client := pester.New()
	client.Backoff = pester.ExponentialBackoff
	client.MaxRetries = defaultHTTPTries
	client.LogHook = func(e pester.ErrEntry) {
		log.Errorf("Retrying after failed attempt: %+v", e)
	}
	return client
}

// Client is the http surface HTTPFetcher needs, for injecting fakes.
type Client interface {
	Get(url string) (*http.Response, error)
}

// NewHTTPFetcher fetches over http(s) with retries.
func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: MakePesterClient()}
}

func NewCustomHTTPFetcher(client Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

type HTTPFetcher struct {
	client Client
}

func (f *HTTPFetcher) Fetch(uri, targetPath string) error {
	log.Infof("Fetching %s to %s", uri, targetPath)
	resp, err := f.client.Get(uri)
	if err != nil {
		return errors.Wrapf(err, "fetching %s", uri)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetching %s: unexpected status %s", uri, resp.Status)
	}
	return writeAtomically(targetPath, resp.Body)
}

// FileFetcher copies packages from the local filesystem (plain paths or
// file:// uris).
type FileFetcher struct{}

func (f *FileFetcher) Fetch(uri, targetPath string) error {
	src := strings.TrimPrefix(uri, "file://")
	log.Infof("Copying %s to %s", src, targetPath)
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrapf(err, "opening package %s", src)
	}
	defer in.Close()
	return writeAtomically(targetPath, in)
}

// ForURI picks a fetcher by uri scheme.
func ForURI(uri string) (Fetcher, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing package uri %s", uri)
	}
	switch u.Scheme {
	case "http", "https":
		return NewHTTPFetcher(), nil
	case "file", "":
		return &FileFetcher{}, nil
	default:
		return nil, fmt.Errorf("no fetcher for uri scheme %q", u.Scheme)
	}
}

// writeAtomically stages into a temp file and renames over the target so a
// failed fetch never leaves a truncated package behind.
func writeAtomically(targetPath string, r io.Reader) error {
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "creating target dir %s", dir)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(targetPath)+".tmp")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing %s", targetPath)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "closing %s", tmp.Name())
	}
	return errors.Wrapf(os.Rename(tmp.Name(), targetPath), "renaming into %s", targetPath)
}
