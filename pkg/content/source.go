package content

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gabrielmiguelok/cardgrid/pkg/retry"
)

// ErrStatus is returned when the server answers with a non-2xx status.
var ErrStatus = errors.New("unexpected response status")

// Source fetches a fresh content document. Implementations do not cache:
// every call decodes the document again.
type Source interface {
	Fetch(ctx context.Context) (*Document, error)

	// Location describes where the document comes from, for logs.
	Location() string
}

// FileSource reads the document from the local filesystem.
type FileSource struct {
	Path string
}

// Fetch implements Source.
func (s FileSource) Fetch(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", s.Path, err)
	}
	defer f.Close()
	return Decode(f)
}

// Location implements Source.
func (s FileSource) Location() string {
	return s.Path
}

// HTTPSource fetches the document with a GET request.
type HTTPSource struct {
	URL    string
	Client *http.Client

	// Retry, when set, repeats fetches that failed on the network or with
	// a 5xx or 429 status. Other failures are returned at once.
	Retry *retry.Config
}

// Fetch implements Source.
func (s HTTPSource) Fetch(ctx context.Context) (*Document, error) {
	if s.Retry == nil {
		return s.fetchOnce(ctx)
	}
	return retry.Do(ctx, s.Retry, s.fetchOnce)
}

func (s HTTPSource) fetchOnce(ctx context.Context) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("building request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := fmt.Errorf("%w: %s", ErrStatus, resp.Status)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, err
		}
		return nil, retry.Permanent(err)
	}

	doc, err := Decode(resp.Body)
	if err != nil {
		return nil, retry.Permanent(err)
	}
	return doc, nil
}

// Location implements Source.
func (s HTTPSource) Location() string {
	return s.URL
}

// SourceOption configures a Source built by NewSource.
type SourceOption func(*HTTPSource)

// WithRetry enables retries for HTTP sources.
func WithRetry(cfg *retry.Config) SourceOption {
	return func(s *HTTPSource) {
		s.Retry = cfg
	}
}

// NewSource picks an HTTPSource for http(s) locations and a FileSource
// otherwise. timeout applies to HTTP sources only; zero means none.
func NewSource(location string, timeout time.Duration, opts ...SourceOption) Source {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		s := HTTPSource{URL: location, Client: &http.Client{Timeout: timeout}}
		for _, opt := range opts {
			opt(&s)
		}
		return s
	}
	return FileSource{Path: location}
}
