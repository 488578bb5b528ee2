// Package fetcher holds the shared HTTP session used for registry, search and
// website calls: one client, one User-Agent, bounded retries.
package fetcher

import (
	"context"
	"net/url"
)

// DefaultUserAgent identifies every outbound request.
const DefaultUserAgent = "ESN-Discovery/1.0 (+https://example.com)"

// Fetcher defines the interface for remote JSON and HTML retrieval.
type Fetcher interface {
	// GetJSON performs a GET with retry on 429/503 and network failures and
	// decodes a 200 body into into. Any other status yields a *StatusError.
	GetJSON(ctx context.Context, rawURL string, params url.Values, headers map[string]string, into any) error

	// Do performs a single request described by req and decodes a 200 body.
	Do(ctx context.Context, req Request, into any) error

	// GetHTML fetches a page and returns its body decoded to UTF-8. Only a
	// 200 response whose Content-Type contains "text/html" counts.
	GetHTML(ctx context.Context, rawURL string) (string, error)
}

// Request describes one JSON call.
type Request struct {
	Method  string
	URL     string
	Params  url.Values
	Headers map[string]string
	// Body is JSON-encoded when non-nil.
	Body any
	// Retry applies the GetJSON retry policy instead of a single attempt.
	Retry bool
}
