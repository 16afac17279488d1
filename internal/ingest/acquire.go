package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/daap14/stencil/internal/store"
)

// Source describes where the archive bytes for one ingestion come from.
// Exactly one of the three acquisition strategies must apply: a fetchable
// URL, a chunked-transfer stream, or a buffered request body.
type Source struct {
	// ArchiveURL, when non-empty, is fetched over HTTP(S).
	ArchiveURL string

	// Body is the inbound request body. Nil when no body was supplied.
	Body io.Reader

	// HasBody reports whether the request carried body bytes. Chunked
	// streams set Chunked instead, since their length is unknown up front.
	HasBody bool

	// Chunked reports whether the body arrives with chunked
	// transfer encoding and must be consumed incrementally.
	Chunked bool
}

// Acquirer obtains archive bytes from a Source and spools them to a private
// temporary file. The temp file is created inside the store root, not the OS
// temp directory, so the later promotion to permanent storage is a
// same-filesystem rename.
type Acquirer struct {
	layout  *store.Layout
	client  *http.Client
	maxSize int64
}

// NewAcquirer creates an Acquirer. fetchTimeout bounds a URL fetch end to
// end; maxSize bounds the archive size on every acquisition path.
func NewAcquirer(layout *store.Layout, fetchTimeout time.Duration, maxSize int64) *Acquirer {
	return &Acquirer{
		layout:  layout,
		client:  &http.Client{Timeout: fetchTimeout},
		maxSize: maxSize,
	}
}

// Acquire writes the source's archive bytes to a fresh temp file under the
// store root and returns its path. The ambiguity check runs before any I/O;
// on any failure the temp file is removed before the error is returned.
func (a *Acquirer) Acquire(ctx context.Context, src Source) (string, error) {
	if src.ArchiveURL != "" && (src.HasBody || src.Chunked) {
		return "", fmt.Errorf("%w: pass either an archive URL or archive data in the request body, not both", ErrInvalidParameter)
	}

	tmp, err := os.CreateTemp(a.layout.Root, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp archive file: %w", err)
	}

	if err := a.fill(ctx, tmp, src); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("closing temp archive file: %w", err)
	}

	return tmp.Name(), nil
}

func (a *Acquirer) fill(ctx context.Context, tmp *os.File, src Source) error {
	switch {
	case src.ArchiveURL != "":
		return a.fetchURL(ctx, tmp, src.ArchiveURL)
	case src.Chunked:
		return a.copyBounded(tmp, src.Body)
	case src.HasBody:
		return a.copyBounded(tmp, src.Body)
	default:
		return fmt.Errorf("%w: no archive in request body and no archive URL in query parameters", ErrMissingInput)
	}
}

// fetchURL streams the remote archive into tmp.
func (a *Acquirer) fetchURL(ctx context.Context, tmp *os.File, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: archive URL %q is malformed", ErrInvalidParameter, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("%w: archive URL %q is malformed", ErrInvalidParameter, rawURL)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: fetching %q: %v", ErrRemoteFetch, rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %q answered with status %d", ErrRemoteFetch, rawURL, resp.StatusCode)
	}

	return a.copyBounded(tmp, resp.Body)
}

// copyBounded copies r into tmp, rejecting streams larger than maxSize.
func (a *Acquirer) copyBounded(tmp *os.File, r io.Reader) error {
	n, err := io.Copy(tmp, io.LimitReader(r, a.maxSize+1))
	if err != nil {
		return fmt.Errorf("writing archive bytes: %w", err)
	}
	if n > a.maxSize {
		return fmt.Errorf("%w: archive exceeds the %d byte size limit", ErrInvalidParameter, a.maxSize)
	}
	return nil
}
