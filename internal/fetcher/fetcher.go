package fetcher

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
)

// DefaultMaxBytes is the default size limit of fetched files.
const DefaultMaxBytes = 20 << 20

// Fetcher builds http requests and fetches listing images via http.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewFetcher returns new Fetcher. Request timeout is the client's timeout.
func NewFetcher(client *http.Client, userAgent string, maxBytes int64) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}

	return &Fetcher{
		client:    client,
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// FetchFile returns ReadCloser with image fetched from provided url or error.
// The caller is responsible for closing returned ReadCloser.
func (f *Fetcher) FetchFile(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("can't build http request: %w", err)
	}

	req.Header.Add("Accept", "image/*")
	req.Header.Add("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("can't get http response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %d", ErrStatusNotOK, resp.StatusCode)
	}

	if !isImage(resp.Header.Get("Content-Type")) {
		_ = resp.Body.Close()
		return nil, ErrContentTypeNotSupported
	}

	if resp.ContentLength > f.maxBytes {
		_ = resp.Body.Close()
		return nil, ErrTooLarge
	}

	return &limitedReadCloser{body: resp.Body, remaining: f.maxBytes}, nil
}

// isImage reports whether contentType can hold an image. Missing type is accepted.
func isImage(contentType string) bool {
	if contentType == "" {
		return true
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return strings.HasPrefix(mediaType, "image/") ||
		mediaType == "application/octet-stream" ||
		mediaType == "binary/octet-stream"
}

// limitedReadCloser reads at most remaining bytes from body and fails with ErrTooLarge past the limit.
type limitedReadCloser struct {
	body      io.ReadCloser
	remaining int64
}

// Read reads from underlying body into p.
func (r *limitedReadCloser) Read(p []byte) (int, error) {
	if r.remaining < 0 {
		return 0, ErrTooLarge
	}

	// read one byte past the limit to tell an exact-size body from an oversized one.
	if int64(len(p)) > r.remaining+1 {
		p = p[:r.remaining+1]
	}

	n, err := r.body.Read(p)
	r.remaining -= int64(n)
	if r.remaining < 0 {
		return n + int(r.remaining), ErrTooLarge
	}

	return n, err
}

// Close closes underlying body.
func (r *limitedReadCloser) Close() error {
	return r.body.Close()
}
