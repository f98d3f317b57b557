// Package whois looks up domain registration facts for a hostname,
// memoizing raw registry responses so repeated analyses of the same
// domain issue at most one network query.
package whois

import (
	"context"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/rs/zerolog/log"

	"github.com/pagescope/pagescope/internal/cache"
)

// DefaultCacheCapacity bounds the number of memoized WHOIS records.
const DefaultCacheCapacity = 128

// DefaultTimeout is the per-query network timeout.
const DefaultTimeout = 10 * time.Second

// Record holds the registration dates extracted for a hostname.
// Either field may be nil when the registry did not report it.
type Record struct {
	Created *time.Time
	Expires *time.Time
}

// QueryFunc performs a raw WHOIS query and returns the registry response.
type QueryFunc func(ctx context.Context, host string) (string, error)

// Resolver answers registration-date lookups with a bounded LRU memo.
// Only successful queries are cached, so a transient registry failure
// does not poison subsequent requests for the same host.
type Resolver struct {
	query QueryFunc
	memo  *cache.Bounded[string, Record]
}

// NewResolver creates a Resolver backed by a real WHOIS client.
func NewResolver() *Resolver {
	client := whois.NewClient()
	client.SetTimeout(DefaultTimeout)

	return &Resolver{
		query: func(ctx context.Context, host string) (string, error) {
			return client.Whois(host)
		},
		memo: cache.NewBounded[string, Record](DefaultCacheCapacity),
	}
}

// NewResolverWithQuery creates a Resolver with a custom query function.
// Used by tests to count or stub network calls.
func NewResolverWithQuery(query QueryFunc) *Resolver {
	return &Resolver{
		query: query,
		memo:  cache.NewBounded[string, Record](DefaultCacheCapacity),
	}
}

// Resolve returns the creation and expiration timestamps for host.
// Any failure (network, protocol, parse) is logged at warning level and
// reported as (nil, nil); it never propagates to the caller. Callers are
// expected to skip literal IP hosts, for which WHOIS is meaningless.
func (r *Resolver) Resolve(ctx context.Context, host string) (*time.Time, *time.Time) {
	if rec, found := r.memo.Get(host); found {
		return rec.Created, rec.Expires
	}

	raw, err := r.query(ctx, host)
	if err != nil {
		log.Warn().Err(err).Str("host", host).Msg("WHOIS lookup failed")
		return nil, nil
	}

	rec := Record{}
	parsed, err := whoisparser.Parse(raw)
	if err != nil {
		// The query itself succeeded, so the unparseable response is
		// deterministic for this host; memoize the empty record to avoid
		// re-querying the registry on every analysis.
		log.Warn().Err(err).Str("host", host).Msg("WHOIS response parse failed")
		r.memo.Set(host, rec)
		return nil, nil
	}

	if parsed.Domain != nil {
		if t, ok := NormalizeTimestamp(parsed.Domain.CreatedDate); ok {
			rec.Created = &t
		}
		if t, ok := NormalizeTimestamp(parsed.Domain.ExpirationDate); ok {
			rec.Expires = &t
		}
	}

	r.memo.Set(host, rec)
	return rec.Created, rec.Expires
}
