package whois

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawRecord is a minimal registry response that whois-parser accepts.
const rawRecord = `Domain Name: EXAMPLE.COM
Registrar: Example Registrar, LLC
Creation Date: 1995-08-14T04:00:00Z
Registry Expiry Date: 2030-08-13T04:00:00Z
Name Server: A.IANA-SERVERS.NET
Status: clientTransferProhibited
`

func TestResolveParsesDates(t *testing.T) {
	r := NewResolverWithQuery(func(ctx context.Context, host string) (string, error) {
		return rawRecord, nil
	})

	created, expires := r.Resolve(context.Background(), "example.com")
	require.NotNil(t, created)
	require.NotNil(t, expires)
	assert.Equal(t, "1995-08-14", created.Format("2006-01-02"))
	assert.Equal(t, "2030-08-13", expires.Format("2006-01-02"))
}

func TestResolveMemoizesByHost(t *testing.T) {
	calls := 0
	r := NewResolverWithQuery(func(ctx context.Context, host string) (string, error) {
		calls++
		return rawRecord, nil
	})

	r.Resolve(context.Background(), "example.com")
	r.Resolve(context.Background(), "example.com")
	r.Resolve(context.Background(), "example.com")
	assert.Equal(t, 1, calls, "repeated lookups for the same host should hit the memo")

	r.Resolve(context.Background(), "example.org")
	assert.Equal(t, 2, calls)
}

func TestResolveFailureReturnsNilAndIsNotCached(t *testing.T) {
	calls := 0
	r := NewResolverWithQuery(func(ctx context.Context, host string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("connection refused")
		}
		return rawRecord, nil
	})

	created, expires := r.Resolve(context.Background(), "example.com")
	assert.Nil(t, created)
	assert.Nil(t, expires)

	// A later attempt should query again rather than memoize the failure.
	created, _ = r.Resolve(context.Background(), "example.com")
	assert.NotNil(t, created)
	assert.Equal(t, 2, calls)
}

func TestResolveUnparseableResponse(t *testing.T) {
	calls := 0
	r := NewResolverWithQuery(func(ctx context.Context, host string) (string, error) {
		calls++
		return "no match for domain", nil
	})

	created, expires := r.Resolve(context.Background(), "example.com")
	assert.Nil(t, created)
	assert.Nil(t, expires)

	// The query succeeded and the response is deterministic, so the
	// empty record is memoized like any other.
	created, expires = r.Resolve(context.Background(), "example.com")
	assert.Nil(t, created)
	assert.Nil(t, expires)
	assert.Equal(t, 1, calls, "unparseable registry responses should still be memoized")
}
