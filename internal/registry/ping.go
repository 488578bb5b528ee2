package registry

import (
	"context"
	"net/http"

	"github.com/rotisserie/eris"

	"github.com/sells-group/esn-finder/internal/fetcher"
)

// ErrNoCredentials is returned by Ping when no INSEE auth is configured.
var ErrNoCredentials = eris.New("registry: no INSEE credentials configured")

// PingResult reports a connectivity check.
type PingResult struct {
	Source string
	OK     bool
}

// Ping fetches a single record for nafCode from INSEE, preferring the API
// key over OAuth. OK is false when the call returned nothing.
func Ping(ctx context.Context, f fetcher.Fetcher, client *http.Client, c ChainConfig, nafCode string) (PingResult, error) {
	src := c.apiKeySource(f)
	if src == nil {
		src = c.oauthSource(f, client)
	}
	if src == nil {
		return PingResult{}, ErrNoCredentials
	}
	recs, err := src.Fetch(ctx, nafCode, 1, 1)
	if err != nil {
		return PingResult{Source: src.Name()}, err
	}
	return PingResult{Source: src.Name(), OK: len(recs) > 0}, nil
}
