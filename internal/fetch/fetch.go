// Package fetch provides the Fetcher implementations that copy the
// remote archive into local staging: HTTP(S), S3, and plain file copy.
// The pipeline consumes them only through ingest.Fetcher.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"
)

// DefaultTimeout bounds a single archive download.
const DefaultTimeout = 5 * time.Minute

// Options selects and configures a fetcher for an archive URL.
type Options struct {
	Timeout  time.Duration
	S3Region string
}

// ForURL returns the fetcher matching rawURL's scheme: http/https, s3,
// or file/none (local copy, useful in development).
func ForURL(ctx context.Context, rawURL string, opts Options) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse archive URL %q: %w", rawURL, err)
	}

	switch u.Scheme {
	case "http", "https":
		return NewHTTP(opts.Timeout), nil
	case "s3":
		return NewS3(ctx, opts.S3Region)
	case "file", "":
		return &File{}, nil
	default:
		return nil, fmt.Errorf("unsupported archive URL scheme %q", u.Scheme)
	}
}

// Fetcher matches ingest.Fetcher; redeclared here so this package does
// not import the core.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) error
}

// HTTP downloads the archive over HTTP(S).
type HTTP struct {
	Client *http.Client
}

// NewHTTP returns an HTTP fetcher with the given total-request timeout.
// Zero means DefaultTimeout.
func NewHTTP(timeout time.Duration) *HTTP {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTP{Client: &http.Client{Timeout: timeout}}
}

// Fetch streams the response body to dest. On failure the partial file
// is removed best-effort.
func (f *HTTP) Fetch(ctx context.Context, rawURL, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	return writeTo(dest, resp.Body)
}

// File copies a local archive into staging. Used in development and
// tests where the "remote" archive is a fixture on disk.
type File struct{}

func (f *File) Fetch(ctx context.Context, rawURL, dest string) error {
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Scheme == "file" {
		path = u.Path
	}

	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := ctx.Err(); err != nil {
		return err
	}
	return writeTo(dest, src)
}

// writeTo copies r into dest, removing the partial file on failure.
func writeTo(dest string, r io.Reader) error {
	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(dest)
		return fmt.Errorf("write %s: %w", dest, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return fmt.Errorf("close %s: %w", dest, err)
	}
	return nil
}
