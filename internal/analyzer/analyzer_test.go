package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagescope/pagescope/internal/fetcher"
)

type stubFetcher struct {
	result *fetcher.Result
	err    error
}

func (s *stubFetcher) Fetch(ctx context.Context, targetURL string) (*fetcher.Result, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubWhois struct {
	created *time.Time
	expires *time.Time
	calls   int
}

func (s *stubWhois) Resolve(ctx context.Context, host string) (*time.Time, *time.Time) {
	s.calls++
	return s.created, s.expires
}

type stubLookups struct {
	ip         string
	rank       string
	subdomains []string
}

func (s *stubLookups) Subdomains(ctx context.Context, domain string) []string {
	return s.subdomains
}

func (s *stubLookups) TrafficRank(ctx context.Context, domain string) string {
	return s.rank
}

func (s *stubLookups) ResolveIP(ctx context.Context, host string) string {
	return s.ip
}

// pageResult builds a fetch result whose decoded body is exactly size
// bytes of filler HTML.
func pageResult(requested, final string, size int) *fetcher.Result {
	prefix := `<html><head><title>Test Page</title><meta name="description" content="desc"></head><body><h1>words words words</h1>`
	suffix := `</body></html>`
	filler := size - len(prefix) - len(suffix)
	body := prefix + strings.Repeat("a", filler) + suffix

	headers := http.Header{}
	headers.Set("Content-Type", "text/html; charset=utf-8")
	headers.Set("Server", "nginx")
	headers.Set("Content-Length", strconv.Itoa(size))

	return &fetcher.Result{
		BodyText:     body,
		RawBytes:     []byte(body),
		Headers:      headers,
		ProtoMajor:   1,
		ProtoMinor:   1,
		StatusCode:   200,
		ReasonPhrase: "OK",
		RequestedURL: requested,
		FinalURL:     final,
	}
}

func newTestAnalyzer(f PageFetcher, w WhoisResolver, l DomainLookups) *Analyzer {
	return New(f, w, l, nil)
}

func TestAnalyzeUncompressedPage(t *testing.T) {
	created := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	a := newTestAnalyzer(
		&stubFetcher{result: pageResult("http://example.com", "http://example.com", 1000)},
		&stubWhois{created: &created, expires: &expires},
		&stubLookups{ip: "93.184.216.34", rank: "#1,234", subdomains: []string{"www.example.com"}},
	)

	report := a.Analyze(context.Background(), "http://example.com")
	require.Empty(t, report.Error)

	// 1000-byte body, Content-Length 1000, no Content-Encoding.
	assert.Equal(t, "no", report.Server.Compressed)
	assert.Equal(t, "1,000", report.Server.OriginalSize)
	assert.Equal(t, "1,000", report.Server.CompressedSize)
	assert.Equal(t, "0.00%", report.Server.CompressionRatio)
	assert.Equal(t, "HTTP/1.1 200 OK", report.Server.Protocol)
	assert.Equal(t, "text/html; charset=utf-8", report.Server.PageType)
	assert.Equal(t, "nginx", report.Server.Server)

	assert.Equal(t, "93.184.216.34", report.Info.IP)
	assert.Equal(t, "#1,234", report.Info.TrafficRank)
	assert.False(t, report.Info.HTTPS)
	assert.False(t, report.Info.Redirected)
	assert.Contains(t, report.Info.DomainAge, "days (Created on 2000-01-01)")
	assert.Equal(t, "2030-01-01", report.Info.Expire)

	assert.Equal(t, "Test Page", report.Meta.Title)
	assert.Equal(t, 100, report.SEOScore)
	assert.Equal(t, []string{"www.example.com"}, report.Subdomains)

	require.NotEmpty(t, report.Keywords)
	assert.Equal(t, "words", report.Keywords[0].Word)
	assert.Contains(t, report.Summary, "words")
	assert.Contains(t, report.Summary, "IP: 93.184.216.34")
	assert.Contains(t, report.Summary, "Hosted on nginx.")
}

func TestAnalyzeFetchFailure(t *testing.T) {
	a := newTestAnalyzer(
		&stubFetcher{err: &fetcher.FetchError{URL: "http://down.example", Err: errors.New("context deadline exceeded")}},
		&stubWhois{},
		&stubLookups{},
	)

	report := a.Analyze(context.Background(), "http://down.example")

	assert.Contains(t, report.Error, "Fetch error")
	assert.Equal(t, 0, report.SEOScore)
	assert.Empty(t, report.Keywords)
	assert.Empty(t, report.ExternalLinks)
	assert.Empty(t, report.Subdomains)
	assert.Equal(t, MetaInfo{}, report.Meta)
	assert.Equal(t, ServerInfo{}, report.Server)
	assert.Equal(t, DomainInfo{}, report.Info)
}

func TestAnalyzeErrorReportShape(t *testing.T) {
	a := newTestAnalyzer(
		&stubFetcher{err: &fetcher.FetchError{URL: "http://down.example", Err: errors.New("refused")}},
		&stubWhois{},
		&stubLookups{},
	)

	report := a.Analyze(context.Background(), "http://down.example")

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &decoded))

	for _, key := range []string{"error", "keywords", "meta", "seo_score", "server", "info", "external_links", "subdomains"} {
		assert.Contains(t, decoded, key)
	}
	assert.Equal(t, "[]", string(decoded["keywords"]))
	assert.Equal(t, "[]", string(decoded["external_links"]))
	assert.Equal(t, "[]", string(decoded["subdomains"]))
	assert.Equal(t, "0", string(decoded["seo_score"]))
}

func TestAnalyzeSkipsWhoisForIPLiteral(t *testing.T) {
	w := &stubWhois{}
	a := newTestAnalyzer(
		&stubFetcher{result: pageResult("http://93.184.216.34/", "http://93.184.216.34/", 500)},
		w,
		&stubLookups{ip: "93.184.216.34", rank: "Unknown"},
	)

	report := a.Analyze(context.Background(), "http://93.184.216.34/")
	require.Empty(t, report.Error)

	assert.Equal(t, 0, w.calls, "WHOIS must not be queried for literal IP hosts")
	assert.Equal(t, "Unknown", report.Info.DomainAge)
	assert.Equal(t, "Unknown", report.Info.Expire)
}

func TestAnalyzeHTTPSAndRedirectFlags(t *testing.T) {
	a := newTestAnalyzer(
		&stubFetcher{result: pageResult("http://example.com", "https://www.example.com/", 500)},
		&stubWhois{},
		&stubLookups{ip: "Unavailable", rank: "Unknown"},
	)

	report := a.Analyze(context.Background(), "http://example.com")
	require.Empty(t, report.Error)

	assert.True(t, report.Info.HTTPS)
	assert.True(t, report.Info.Redirected)
}

func TestAnalyzeDegradedLookups(t *testing.T) {
	a := newTestAnalyzer(
		&stubFetcher{result: pageResult("http://example.com", "http://example.com", 500)},
		&stubWhois{},
		&stubLookups{ip: "Unavailable", rank: "Unknown", subdomains: []string{}},
	)

	report := a.Analyze(context.Background(), "http://example.com")
	require.Empty(t, report.Error)

	assert.Equal(t, "Unavailable", report.Info.IP)
	assert.Equal(t, "Unknown", report.Info.TrafficRank)
	assert.Equal(t, "Unknown", report.Info.DomainAge)
	assert.Equal(t, "Unknown", report.Info.Expire)
	assert.Empty(t, report.Subdomains)
}

func TestKeywordCountMarshalsAsPair(t *testing.T) {
	data, err := json.Marshal([]KeywordCount{{Word: "cats", Count: 2}, {Word: "doggy", Count: 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `[["cats",2],["doggy",1]]`, string(data))

	var decoded []KeywordCount
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "cats", decoded[0].Word)
	assert.Equal(t, 2, decoded[0].Count)
}
