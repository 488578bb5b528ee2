package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esn-finder/internal/resilience"
)

// MaxPageBytes caps how much of a website page is read; the rest is dropped.
const MaxPageBytes = 2 << 20

// StatusError reports a non-200 response. Callers treat it as "no data".
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d from %s", e.Code, e.URL)
}

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	// Timeout bounds registry and search calls.
	Timeout time.Duration
	// PageTimeout bounds website fetches.
	PageTimeout time.Duration
	// MaxAttempts bounds GetJSON retries.
	MaxAttempts int
	// RateLimitBackoff is the base wait after a 429/503; attempt i waits
	// (i+1)*RateLimitBackoff.
	RateLimitBackoff time.Duration
	// NetworkBackoff is the base wait after a transport failure; attempt i
	// waits (i+1)*NetworkBackoff.
	NetworkBackoff time.Duration
	// Client overrides the underlying client (tests).
	Client *http.Client
}

// HTTPFetcher implements Fetcher using a single shared net/http client.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 25 * time.Second
	}
	if opts.PageTimeout == 0 {
		opts.PageTimeout = 15 * time.Second
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.RateLimitBackoff == 0 {
		opts.RateLimitBackoff = 2 * time.Second
	}
	if opts.NetworkBackoff == 0 {
		opts.NetworkBackoff = time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			// Callers that bypass Do/GetHTML (search SDKs, token exchange)
			// still get a bound.
			Timeout: max(opts.Timeout, opts.PageTimeout),
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &HTTPFetcher{client: client, opts: opts}
}

// Client exposes the shared client so OAuth token exchanges reuse it.
func (f *HTTPFetcher) Client() *http.Client {
	return f.client
}

// GetJSON performs a GET with bounded retry and decodes a 200 body.
func (f *HTTPFetcher) GetJSON(ctx context.Context, rawURL string, params url.Values, headers map[string]string, into any) error {
	return f.Do(ctx, Request{
		Method:  http.MethodGet,
		URL:     rawURL,
		Params:  params,
		Headers: headers,
		Retry:   true,
	}, into)
}

// Do executes req, retrying 429/503 and transport failures when req.Retry
// is set. Other statuses are returned immediately as *StatusError.
func (f *HTTPFetcher) Do(ctx context.Context, req Request, into any) error {
	if !req.Retry {
		return f.once(ctx, req, into)
	}

	cfg := resilience.RetryConfig{
		MaxAttempts: f.opts.MaxAttempts,
		BackoffFor:  f.backoffFor,
		OnRetry:     resilience.RetryLogger("http", req.URL),
	}
	return resilience.Do(ctx, cfg, func(ctx context.Context) error {
		return f.once(ctx, req, into)
	})
}

// backoffFor waits longer after a rate-limit status than after a network
// failure; both grow linearly with the attempt index.
func (f *HTTPFetcher) backoffFor(attempt int, err error) time.Duration {
	if resilience.StatusCode(err) != 0 {
		return time.Duration(attempt+1) * f.opts.RateLimitBackoff
	}
	return time.Duration(attempt+1) * f.opts.NetworkBackoff
}

func (f *HTTPFetcher) once(ctx context.Context, req Request, into any) error {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	target := req.URL
	if len(req.Params) > 0 {
		sep := "?"
		if strings.Contains(target, "?") {
			sep = "&"
		}
		target += sep + req.Params.Encode()
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		buf, err := json.Marshal(req.Body)
		if err != nil {
			return eris.Wrap(err, "fetcher: marshal body")
		}
		body = bytes.NewReader(buf)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return eris.Wrap(err, "fetcher: create request")
	}
	httpReq.Header.Set("User-Agent", f.opts.UserAgent)
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := f.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil && ctx.Err() != context.DeadlineExceeded {
			return eris.Wrap(err, "fetcher: request cancelled")
		}
		return resilience.NewTransientError(eris.Wrapf(err, "fetcher: %s %s", method, req.URL), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		serr := &StatusError{Code: resp.StatusCode, URL: req.URL}
		if resilience.IsRateLimitStatus(resp.StatusCode) {
			zap.L().Debug("rate limited, backing off",
				zap.String("url", req.URL),
				zap.Int("status", resp.StatusCode),
			)
			return resilience.NewTransientError(serr, resp.StatusCode)
		}
		return serr
	}

	return decodeInto(resp.Body, into)
}

// GetHTML fetches rawURL following redirects. Non-HTML or non-200 responses
// return a *StatusError or an error mentioning the content type.
func (f *HTTPFetcher) GetHTML(ctx context.Context, rawURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.PageTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "fetcher: create page request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: get page %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", &StatusError{Code: resp.StatusCode, URL: rawURL}
	}
	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "text/html") {
		return "", eris.Errorf("fetcher: %s is not html (%q)", rawURL, contentType)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxPageBytes))
	if err != nil {
		return "", eris.Wrapf(err, "fetcher: read page %s", rawURL)
	}
	return DecodeHTML(raw, contentType), nil
}

var _ Fetcher = (*HTTPFetcher)(nil)
