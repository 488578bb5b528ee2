// Package registry fetches French business-registry records for a NAF code
// from a prioritized list of interchangeable strategies.
package registry

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esn-finder/internal/fetcher"
	"github.com/sells-group/esn-finder/internal/model"
)

// Source is one registry fetch strategy.
type Source interface {
	Name() string
	// Fetch returns the records for nafCode. "No data" (bad status, malformed
	// payload, missing credentials) is reported as an empty slice and a nil
	// error; only cancellation surfaces as an error.
	Fetch(ctx context.Context, nafCode string, pageSize, maxPages int) ([]model.RawEstablishment, error)
}

// Option configures a strategy.
type Option func(*settings)

type settings struct {
	baseURL     string
	sleep       time.Duration
	excludeOver int
}

// WithBaseURL overrides the endpoint base (tests, mirrors).
func WithBaseURL(u string) Option {
	return func(s *settings) { s.baseURL = u }
}

// WithSleep sets the pause between pages.
func WithSleep(d time.Duration) Option {
	return func(s *settings) { s.sleep = d }
}

// WithExcludeOver restricts server-side size bands to those whose upper bound
// does not exceed n. A negative n disables the filter.
func WithExcludeOver(n int) Option {
	return func(s *settings) { s.excludeOver = n }
}

func newSettings(base string, opts []Option) settings {
	s := settings{baseURL: base, excludeOver: -1}
	for _, o := range opts {
		o(&s)
	}
	return s
}

// Chain tries sources in order and keeps the first non-empty result.
type Chain struct {
	sources []Source
}

// NewChain creates a Chain. Nil sources are ignored.
func NewChain(sources ...Source) *Chain {
	c := &Chain{}
	for _, s := range sources {
		if s != nil {
			c.sources = append(c.sources, s)
		}
	}
	return c
}

// Names returns the source names in priority order.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.sources))
	for _, s := range c.sources {
		names = append(names, s.Name())
	}
	return names
}

// Len reports how many sources are enabled.
func (c *Chain) Len() int {
	return len(c.sources)
}

// Fetch returns the first non-empty result and the name of the source that
// produced it. Earlier sources are never re-invoked for the same code.
// An empty result with a nil error means every source came back empty.
func (c *Chain) Fetch(ctx context.Context, nafCode string, pageSize, maxPages int) ([]model.RawEstablishment, string, error) {
	for _, s := range c.sources {
		recs, err := s.Fetch(ctx, nafCode, pageSize, maxPages)
		if err != nil {
			return nil, "", eris.Wrapf(err, "registry: fetch %s from %s", nafCode, s.Name())
		}
		if len(recs) > 0 {
			zap.L().Info("registry: fetched records",
				zap.String("naf", nafCode),
				zap.String("source", s.Name()),
				zap.Int("count", len(recs)),
			)
			return recs, s.Name(), nil
		}
		zap.L().Info("registry: source returned nothing, trying next",
			zap.String("naf", nafCode),
			zap.String("source", s.Name()),
		)
	}
	return nil, "", nil
}

// waitPage throttles every page after the first.
func waitPage(ctx context.Context, th *fetcher.Throttle, page int) error {
	if page == 1 {
		return nil
	}
	return th.Wait(ctx)
}

// noData logs a call that produced nothing. Cancellation is the caller's
// concern and is checked separately.
func noData(source, nafCode string, page int, err error) {
	zap.L().Debug("registry: no data",
		zap.String("source", source),
		zap.String("naf", nafCode),
		zap.Int("page", page),
		zap.Error(err),
	)
}
