// Package resolve finds a company's official website: a declared site
// first, then web-search providers, then domains guessed from the name.
package resolve

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esn-finder/internal/fetcher"
	"github.com/sells-group/esn-finder/internal/model"
	"github.com/sells-group/esn-finder/pkg/serpapi"
	"github.com/sells-group/esn-finder/pkg/serper"
)

// PageFetcher retrieves HTML pages.
type PageFetcher interface {
	GetHTML(ctx context.Context, rawURL string) (string, error)
}

// Cache remembers resolved domains between runs.
type Cache interface {
	GetCachedDomain(ctx context.Context, siren string) (*model.CachedDomain, error)
	SetCachedDomain(ctx context.Context, siren, domain string, source model.DomainSource, ttl time.Duration) error
}

// Query identifies the company to resolve.
type Query struct {
	SIREN string
	// Name is the name searched on the web (directory name when known).
	Name            string
	NAF             string
	DeclaredWebsite string
}

// Resolution is a confirmed website with its homepage.
type Resolution struct {
	Domain string
	HTML   string
	Source model.DomainSource
}

// SerpAPIOptions tunes provider A queries.
type SerpAPIOptions struct {
	Engine string
	Num    int
	HL     string
	GL     string
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSerpAPI enables the SerpAPI provider.
func WithSerpAPI(c serpapi.Client, o SerpAPIOptions) Option {
	return func(r *Resolver) {
		r.serpapi = c
		r.serpOpts = o
	}
}

// WithSerper enables the serper.dev provider. num is the result count
// requested; one result is enough since only the first acceptable host is
// used.
func WithSerper(c serper.Client, num int) Option {
	return func(r *Resolver) {
		r.serper = c
		r.serperNum = num
	}
}

// WithCache enables the resolution cache.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(r *Resolver) {
		r.cache = c
		r.cacheTTL = ttl
	}
}

// WithGuessDelay sets the pause between candidate homepage fetches.
func WithGuessDelay(d time.Duration) Option {
	return func(r *Resolver) { r.guessDelay = d }
}

// Resolver implements the ordered resolution attempts.
type Resolver struct {
	pages      PageFetcher
	serpapi    serpapi.Client
	serpOpts   SerpAPIOptions
	serper     serper.Client
	serperNum  int
	cache      Cache
	cacheTTL   time.Duration
	guessDelay time.Duration
}

// New creates a Resolver.
func New(pages PageFetcher, opts ...Option) *Resolver {
	r := &Resolver{
		pages:      pages,
		serpOpts:   SerpAPIOptions{Engine: "google", Num: 5, HL: "fr", GL: "fr"},
		serperNum:  1,
		guessDelay: 300 * time.Millisecond,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

type candidate struct {
	host   string
	source model.DomainSource
}

// Resolve returns the first confirmed website for q, or nil when none of
// the attempts yields a fetchable HTML homepage. Provider failures are
// logged and skipped; only cancellation is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, q Query) (*Resolution, error) {
	if res := r.fromCache(ctx, q.SIREN); res != nil {
		return res, nil
	}

	if q.DeclaredWebsite != "" {
		site := EnsureHTTP(q.DeclaredWebsite)
		if html, err := r.pages.GetHTML(ctx, site); err == nil {
			return r.remember(ctx, q.SIREN, &Resolution{Domain: HostOf(site), HTML: html, Source: model.DomainSourceDeclared}), nil
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "resolve: declared website")
		}
	}

	cands := r.candidates(ctx, q)
	th := fetcher.NewThrottle(r.guessDelay)
	for i, c := range cands {
		if i > 0 {
			if err := th.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "resolve: throttle")
			}
		}
		site := EnsureHTTP(c.host)
		html, err := r.pages.GetHTML(ctx, site)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "resolve: fetch candidate")
			}
			continue
		}
		return r.remember(ctx, q.SIREN, &Resolution{Domain: HostOf(site), HTML: html, Source: c.source}), nil
	}
	return nil, nil
}

// candidates lists the hosts to try: provider A, provider B, then name
// guesses. A host keeps the tag of its first occurrence.
func (r *Resolver) candidates(ctx context.Context, q Query) []candidate {
	query := SearchQuery(q.Name, q.NAF)

	var out []candidate
	if r.serpapi != nil {
		if host := r.searchSerpAPI(ctx, query); host != "" {
			out = append(out, candidate{host: host, source: model.DomainSourceSerpAPI})
		}
	}
	if r.serper != nil {
		if host := r.searchSerper(ctx, query); host != "" {
			out = append(out, candidate{host: host, source: model.DomainSourceSerper})
		}
	}
	for _, g := range GuessDomains(q.Name) {
		out = append(out, candidate{host: g, source: model.DomainSourceGuess})
	}

	seen := make(map[string]struct{}, len(out))
	uniq := out[:0]
	for _, c := range out {
		if _, ok := seen[c.host]; ok {
			continue
		}
		seen[c.host] = struct{}{}
		uniq = append(uniq, c)
	}
	return uniq
}

func (r *Resolver) searchSerpAPI(ctx context.Context, query string) string {
	resp, err := r.serpapi.Search(ctx, serpapi.SearchParams{
		Engine: r.serpOpts.Engine,
		Q:      query,
		Num:    r.serpOpts.Num,
		HL:     r.serpOpts.HL,
		GL:     r.serpOpts.GL,
	})
	if err != nil {
		zap.L().Debug("resolve: serpapi search failed", zap.String("query", query), zap.Error(err))
		return ""
	}
	return rankSerpAPI(query, resp.OrganicResults)
}

func (r *Resolver) searchSerper(ctx context.Context, query string) string {
	resp, err := r.serper.Search(ctx, serper.SearchRequest{
		Q:   query,
		Num: r.serperNum,
		HL:  r.serpOpts.HL,
		GL:  r.serpOpts.GL,
	})
	if err != nil {
		zap.L().Debug("resolve: serper search failed", zap.String("query", query), zap.Error(err))
		return ""
	}
	return firstSerper(resp.Organic)
}

// fromCache re-validates a cached domain by fetching its homepage.
func (r *Resolver) fromCache(ctx context.Context, siren string) *Resolution {
	if r.cache == nil || siren == "" {
		return nil
	}
	cd, err := r.cache.GetCachedDomain(ctx, siren)
	if err != nil {
		zap.L().Warn("resolve: cache lookup failed", zap.String("siren", siren), zap.Error(err))
		return nil
	}
	if cd == nil || cd.Domain == "" {
		return nil
	}
	html, err := r.pages.GetHTML(ctx, EnsureHTTP(cd.Domain))
	if err != nil {
		zap.L().Debug("resolve: cached domain no longer answers",
			zap.String("siren", siren),
			zap.String("domain", cd.Domain),
			zap.Error(err),
		)
		return nil
	}
	return &Resolution{Domain: cd.Domain, HTML: html, Source: cd.Source}
}

func (r *Resolver) remember(ctx context.Context, siren string, res *Resolution) *Resolution {
	if r.cache == nil || siren == "" {
		return res
	}
	if err := r.cache.SetCachedDomain(ctx, siren, res.Domain, res.Source, r.cacheTTL); err != nil {
		zap.L().Warn("resolve: cache write failed", zap.String("siren", siren), zap.Error(err))
	}
	return res
}
