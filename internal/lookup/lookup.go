// Package lookup provides the best-effort domain enrichments that run
// alongside content analysis: subdomain enumeration through a
// certificate-transparency aggregator, a traffic-rank scrape, and DNS
// resolution. Every lookup degrades to a placeholder on failure; none
// of them can fail the analysis.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
)

const (
	// MaxSubdomains caps the subdomain list in the report.
	MaxSubdomains = 30

	defaultTimeout = 10 * time.Second

	defaultCertLogURL     = "https://crt.sh"
	defaultTrafficRankURL = "https://www.similarweb.com/website"
)

// rankPattern matches the JSON-embedded global rank on the ranking page.
var rankPattern = regexp.MustCompile(`"globalRank":\s*{"rank":\s*(\d+)`)

// certEntry is a single certificate log record from the crt.sh API.
type certEntry struct {
	NameValue string `json:"name_value"`
}

// Client performs the auxiliary lookups over a shared HTTP client so the
// sub-fetches of one analysis reuse connections.
type Client struct {
	httpClient     *http.Client
	certLogURL     string
	trafficRankURL string
	resolver       *net.Resolver
}

// NewClient creates a lookup client with pooled transport settings and
// the fixed per-lookup timeout.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		certLogURL:     defaultCertLogURL,
		trafficRankURL: defaultTrafficRankURL,
		resolver:       net.DefaultResolver,
	}
}

// NewClientWithEndpoints creates a lookup client pointed at alternate
// certificate-log and ranking endpoints. Used by tests.
func NewClientWithEndpoints(httpClient *http.Client, certLogURL, trafficRankURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		httpClient:     httpClient,
		certLogURL:     certLogURL,
		trafficRankURL: trafficRankURL,
		resolver:       net.DefaultResolver,
	}
}

// Subdomains enumerates names that ever had a certificate issued under
// domain, via a certificate-transparency query. Entries are split on
// newlines, deduplicated, stripped of the bare domain, sorted for
// determinism and capped at MaxSubdomains. Any failure returns an empty
// slice.
func (c *Client) Subdomains(ctx context.Context, domain string) []string {
	url := fmt.Sprintf("%s/?q=%%25.%s&output=json", c.certLogURL, domain)

	body, err := c.get(ctx, url)
	if err != nil {
		log.Warn().Err(err).Str("domain", domain).Msg("Subdomain enumeration failed")
		return []string{}
	}

	var entries []certEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		log.Warn().Err(err).Str("domain", domain).Msg("Malformed certificate log response")
		return []string{}
	}

	seen := make(map[string]struct{})
	for _, entry := range entries {
		for _, name := range strings.Split(entry.NameValue, "\n") {
			name = strings.TrimSpace(name)
			if name == "" || name == domain || !strings.Contains(name, domain) {
				continue
			}
			seen[name] = struct{}{}
		}
	}

	subdomains := make([]string, 0, len(seen))
	for name := range seen {
		subdomains = append(subdomains, name)
	}
	sort.Strings(subdomains)

	if len(subdomains) > MaxSubdomains {
		subdomains = subdomains[:MaxSubdomains]
	}
	return subdomains
}

// TrafficRank scrapes the third-party ranking page for domain and
// extracts the global rank, formatted with thousands separators and a
// leading "#". Fetch or parse failure yields "Unknown".
func (c *Client) TrafficRank(ctx context.Context, domain string) string {
	url := fmt.Sprintf("%s/%s/", c.trafficRankURL, domain)

	body, err := c.get(ctx, url)
	if err != nil {
		log.Warn().Err(err).Str("domain", domain).Msg("Traffic rank fetch failed")
		return "Unknown"
	}

	match := rankPattern.FindSubmatch(body)
	if match == nil {
		return "Unknown"
	}

	rank, err := strconv.ParseInt(string(match[1]), 10, 64)
	if err != nil {
		return "Unknown"
	}
	return "#" + humanize.Comma(rank)
}

// ResolveIP resolves host to its primary IP address, preferring IPv4.
// Resolution failure yields "Unavailable".
func (c *Client) ResolveIP(ctx context.Context, host string) string {
	addrs, err := c.resolver.LookupIPAddr(ctx, host)
	if err != nil || len(addrs) == 0 {
		log.Warn().Err(err).Str("host", host).Msg("IP resolution failed")
		return "Unavailable"
	}

	for _, addr := range addrs {
		if v4 := addr.IP.To4(); v4 != nil {
			return v4.String()
		}
	}
	return addrs[0].IP.String()
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("non-success status code: %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}
