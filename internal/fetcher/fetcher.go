// Package fetcher performs the primary page fetch of an analysis. It is
// the only part of the pipeline whose failure is fatal: no page content
// means nothing to analyse.
package fetcher

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultTimeout bounds the whole fetch, redirects included.
	DefaultTimeout = 10 * time.Second

	// MaxBodySize caps how much of a response body is read (10 MB).
	MaxBodySize = 10 << 20

	defaultUserAgent = "PageScope/1.0 (+https://github.com/pagescope/pagescope)"
)

// Result holds everything the analysis pipeline needs from the fetched
// page. It is immutable once produced and owned by the invocation that
// created it.
type Result struct {
	BodyText     string
	RawBytes     []byte
	Headers      http.Header
	ProtoMajor   int
	ProtoMinor   int
	StatusCode   int
	ReasonPhrase string
	RequestedURL string
	FinalURL     string
}

// FetchError is the fatal failure of the primary page fetch: timeout,
// DNS failure, TLS failure, or a refused connection.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher performs HTTP GETs with a pooled transport, TLS verification
// enabled, and automatic redirect following.
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// New creates a Fetcher with the default timeout and transport settings.
func New() *Fetcher {
	// Compression is disabled on the transport and negotiated explicitly
	// per request, so Content-Encoding and Content-Length survive for the
	// compression-ratio calculation.
	transport := &http.Transport{
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true,
		ForceAttemptHTTP2:   true,
	}

	return &Fetcher{
		client: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: transport,
		},
		userAgent: defaultUserAgent,
	}
}

// Fetch performs the GET of targetURL and returns the transport-level
// facts the report needs. The returned error is always a *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, targetURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, &FetchError{URL: targetURL, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept-Encoding", "gzip")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("url", targetURL).Msg("Page fetch failed")
		return nil, &FetchError{URL: targetURL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := readBody(resp)
	if err != nil {
		log.Error().Err(err).Str("url", targetURL).Msg("Reading page body failed")
		return nil, &FetchError{URL: targetURL, Err: err}
	}

	res := &Result{
		BodyText:     string(raw),
		RawBytes:     raw,
		Headers:      resp.Header.Clone(),
		ProtoMajor:   resp.ProtoMajor,
		ProtoMinor:   resp.ProtoMinor,
		StatusCode:   resp.StatusCode,
		ReasonPhrase: reasonPhrase(resp),
		RequestedURL: targetURL,
		FinalURL:     resp.Request.URL.String(),
	}

	log.Debug().
		Str("url", targetURL).
		Str("final_url", res.FinalURL).
		Int("status", res.StatusCode).
		Int("body_bytes", len(raw)).
		Dur("duration", time.Since(start)).
		Msg("Page fetched")

	return res, nil
}

// readBody reads the response body, decoding gzip when the server
// applied it. The decoded bytes are what "original size" means in the
// report; the Content-Length header keeps the on-wire size.
func readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body

	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}

	return io.ReadAll(io.LimitReader(reader, MaxBodySize))
}

// reasonPhrase extracts the reason phrase from the status line.
func reasonPhrase(resp *http.Response) string {
	parts := strings.SplitN(resp.Status, " ", 2)
	if len(parts) == 2 {
		return parts[1]
	}
	return http.StatusText(resp.StatusCode)
}
