// Package analyzer runs the page-analysis pipeline: one page fetch,
// HTML content analysis, a concurrent fan-out of domain lookups, and
// assembly of the final report. Sub-lookup failures degrade to
// placeholder values; only the primary fetch can fail the pipeline.
package analyzer

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dustin/go-humanize"
	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/pagescope/pagescope/internal/fetcher"
	"github.com/pagescope/pagescope/internal/observability"
	"github.com/pagescope/pagescope/internal/util"
)

// compressedEncodings are the Content-Encoding values treated as
// transport compression.
var compressedEncodings = map[string]bool{
	"gzip":    true,
	"br":      true,
	"deflate": true,
}

// PageFetcher performs the primary page fetch.
type PageFetcher interface {
	Fetch(ctx context.Context, targetURL string) (*fetcher.Result, error)
}

// WhoisResolver looks up domain registration dates.
type WhoisResolver interface {
	Resolve(ctx context.Context, host string) (created, expires *time.Time)
}

// DomainLookups provides the best-effort enrichments for a domain.
type DomainLookups interface {
	Subdomains(ctx context.Context, domain string) []string
	TrafficRank(ctx context.Context, domain string) string
	ResolveIP(ctx context.Context, host string) string
}

// TechDetector fingerprints technologies from response headers and body.
type TechDetector interface {
	Detect(headers http.Header, body []byte) map[string][]string
}

// Analyzer assembles the analysis report for a URL.
type Analyzer struct {
	fetcher  PageFetcher
	whois    WhoisResolver
	lookups  DomainLookups
	detector TechDetector
}

// New creates an Analyzer. detector may be nil, in which case the
// technologies field is omitted from reports.
func New(pageFetcher PageFetcher, whoisResolver WhoisResolver, lookups DomainLookups, detector TechDetector) *Analyzer {
	return &Analyzer{
		fetcher:  pageFetcher,
		whois:    whoisResolver,
		lookups:  lookups,
		detector: detector,
	}
}

// Analyze runs the full pipeline for targetURL and always returns a
// well-formed report. A fatal fetch failure, or any panic escaping the
// pipeline, is converted into the error-shaped report here; nothing is
// raised to the HTTP layer.
func (a *Analyzer) Analyze(ctx context.Context, targetURL string) (report *Report) {
	start := time.Now()
	ctx, span := observability.StartAnalysisSpan(ctx, targetURL)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("analysis panic: %v", r)
			sentry.CaptureException(err)
			log.Error().Err(err).Str("url", targetURL).Msg("Analysis pipeline panicked")
			report = errorReport(err.Error())
		}

		status := "ok"
		if report.Error != "" {
			status = "error"
		}
		observability.RecordAnalysis(ctx, status, time.Since(start))
		span.End()
	}()

	page, err := a.fetcher.Fetch(ctx, targetURL)
	if err != nil {
		log.Warn().Err(err).Str("url", targetURL).Msg("Analysis aborted: page fetch failed")
		return errorReport(fmt.Sprintf("Fetch error: %v", err))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.BodyText))
	if err != nil {
		return errorReport(fmt.Sprintf("Parse error: %v", err))
	}

	host := hostOf(page)
	content := analyzeContent(doc, host)

	// The four remaining lookups are independent of each other and of
	// the content analysis; dispatch them together so total latency is
	// bounded by the slowest one. They degrade internally and never
	// return an error.
	var (
		ip, rank         string
		subdomains       []string
		created, expires *time.Time
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ip = a.lookups.ResolveIP(gctx, host)
		return nil
	})
	g.Go(func() error {
		rank = a.lookups.TrafficRank(gctx, host)
		return nil
	})
	g.Go(func() error {
		subdomains = a.lookups.Subdomains(gctx, host)
		return nil
	})
	if a.whois != nil && !util.IsIPLiteral(host) {
		// WHOIS is meaningless for literal IP hosts, so those skip it.
		g.Go(func() error {
			created, expires = a.whois.Resolve(gctx, host)
			return nil
		})
	}
	g.Wait()

	serverSoftware := headerOrUnknown(page.Headers, "Server")

	report = &Report{
		Keywords:      content.keywords,
		Meta:          content.meta,
		SEOScore:      content.seoScore,
		Server:        buildServerInfo(page),
		Info:          buildDomainInfo(page, ip, rank, created, expires),
		Summary:       buildSummary(content.keywords, ip, serverSoftware),
		ExternalLinks: content.externalLinks,
		Subdomains:    subdomains,
	}

	if a.detector != nil {
		report.Technologies = a.detector.Detect(page.Headers, page.RawBytes)
	}

	log.Info().
		Str("url", targetURL).
		Str("host", host).
		Int("seo_score", report.SEOScore).
		Int("keywords", len(report.Keywords)).
		Int("subdomains", len(report.Subdomains)).
		Dur("duration", time.Since(start)).
		Msg("Analysis completed")

	return report
}

// hostOf returns the hostname the domain lookups should key off,
// preferring the originally requested URL over the redirect target.
func hostOf(page *fetcher.Result) string {
	if host := util.HostOf(page.RequestedURL); host != "" {
		return host
	}
	return util.HostOf(page.FinalURL)
}

// buildServerInfo derives the transport facts from the fetch result.
// Original size is the decoded body; compressed size comes from the
// Content-Length header when present.
func buildServerInfo(page *fetcher.Result) ServerInfo {
	encoding := strings.ToLower(page.Headers.Get("Content-Encoding"))
	compressed := "no"
	if compressedEncodings[encoding] {
		compressed = "yes"
	}

	originalSize := len(page.RawBytes)
	compressedSize := originalSize
	if cl := page.Headers.Get("Content-Length"); cl != "" {
		if n, err := strconv.Atoi(cl); err == nil {
			compressedSize = n
		}
	}

	ratio := "0%"
	if originalSize > 0 {
		ratio = fmt.Sprintf("%.2f%%", 100*(1-float64(compressedSize)/float64(originalSize)))
	}

	return ServerInfo{
		Protocol:         fmt.Sprintf("HTTP/%d.%d %d %s", page.ProtoMajor, page.ProtoMinor, page.StatusCode, page.ReasonPhrase),
		PageType:         headerOrUnknown(page.Headers, "Content-Type"),
		Server:           headerOrUnknown(page.Headers, "Server"),
		Compressed:       compressed,
		OriginalSize:     humanize.Comma(int64(originalSize)),
		CompressedSize:   humanize.Comma(int64(compressedSize)),
		CompressionRatio: ratio,
	}
}

// buildDomainInfo combines the lookup results into the domain facts of
// the report.
func buildDomainInfo(page *fetcher.Result, ip, rank string, created, expires *time.Time) DomainInfo {
	domainAge := "Unknown"
	if created != nil {
		days := int(time.Now().UTC().Sub(*created).Hours() / 24)
		domainAge = fmt.Sprintf("%d days (Created on %s)", days, created.Format("2006-01-02"))
	}

	expire := "Unknown"
	if expires != nil {
		expire = expires.Format("2006-01-02")
	}

	return DomainInfo{
		IP:          ip,
		DomainAge:   domainAge,
		Expire:      expire,
		TrafficRank: rank,
		HTTPS:       strings.HasPrefix(page.FinalURL, "https://"),
		Redirected:  page.FinalURL != page.RequestedURL,
	}
}

// buildSummary renders the fixed-template summary sentence from the top
// keywords, the resolved IP and the server software.
func buildSummary(keywords []KeywordCount, ip, serverSoftware string) string {
	top := make([]string, 0, 5)
	for _, k := range keywords {
		top = append(top, k.Word)
		if len(top) == 5 {
			break
		}
	}

	return fmt.Sprintf("This website contains keywords such as: %s. IP: %s. Hosted on %s.",
		strings.Join(top, ", "), ip, serverSoftware)
}

func headerOrUnknown(headers http.Header, name string) string {
	if v := headers.Get(name); v != "" {
		return v
	}
	return "Unknown"
}
