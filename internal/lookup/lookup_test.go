package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestClient(certLog, trafficRank string) *Client {
	return NewClientWithEndpoints(nil, certLog, trafficRank)
}

func TestSubdomains(t *testing.T) {
	entries := []map[string]string{
		{"name_value": "www.example.com\napi.example.com"},
		{"name_value": "api.example.com"},
		{"name_value": "example.com"},
		{"name_value": "mail.example.com"},
		{"name_value": "unrelated.org"},
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "%.example.com", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("output"))
		json.NewEncoder(w).Encode(entries)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	subs := c.Subdomains(context.Background(), "example.com")

	// Deduplicated, bare domain and foreign names stripped, sorted.
	assert.Equal(t, []string{"api.example.com", "mail.example.com", "www.example.com"}, subs)
}

func TestSubdomainsCapped(t *testing.T) {
	var entries []map[string]string
	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("sub%03d.example.com", i)
		// Duplicate every entry to exercise deduplication as well.
		entries = append(entries,
			map[string]string{"name_value": name},
			map[string]string{"name_value": name},
		)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(entries)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, "")
	subs := c.Subdomains(context.Background(), "example.com")

	assert.Len(t, subs, MaxSubdomains)
	assert.Equal(t, "sub000.example.com", subs[0])
	assert.Equal(t, "sub029.example.com", subs[MaxSubdomains-1])
}

func TestSubdomainsErrorsReturnEmpty(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "server_error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
		},
		{
			name: "malformed_json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "<html>rate limited</html>")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := newTestClient(srv.URL, "")
			subs := c.Subdomains(context.Background(), "example.com")
			assert.Empty(t, subs)
			assert.NotNil(t, subs)
		})
	}
}

func TestTrafficRank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<script>{"globalRank": {"rank": 1234567}}</script>`)
	}))
	defer srv.Close()

	c := newTestClient("", srv.URL)
	assert.Equal(t, "#1,234,567", c.TrafficRank(context.Background(), "example.com"))
}

func TestTrafficRankUnknown(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "no_rank_in_page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "<html>nothing here</html>")
			},
		},
		{
			name: "server_error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			c := newTestClient("", srv.URL)
			assert.Equal(t, "Unknown", c.TrafficRank(context.Background(), "example.com"))
		})
	}
}

func TestResolveIPLocalhost(t *testing.T) {
	c := NewClient()
	ip := c.ResolveIP(context.Background(), "localhost")
	assert.Contains(t, []string{"127.0.0.1", "::1"}, ip)
}

func TestResolveIPFailure(t *testing.T) {
	c := NewClient()
	ip := c.ResolveIP(context.Background(), "host.invalid")
	assert.Equal(t, "Unavailable", ip)
}
