// Package scan fetches a handful of company website pages likely to
// carry services and recruiting signals.
package scan

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esn-finder/internal/fetcher"
)

// DefaultPaths are fetched in order after the homepage.
var DefaultPaths = []string{
	"/services", "/service", "/recrutement", "/carriere", "/carrieres",
	"/careers", "/jobs", "/offres", "/offres-demploi", "/offre", "/join-us",
}

const (
	defaultMaxPages  = 5
	defaultMinLength = 1000
	defaultPageDelay = 200 * time.Millisecond
)

// PageFetcher retrieves HTML pages.
type PageFetcher interface {
	GetHTML(ctx context.Context, rawURL string) (string, error)
}

// Page is one collected page.
type Page struct {
	URL  string
	HTML string
	// Text is the visible text extracted from HTML.
	Text string
}

// Analysis returns the raw HTML followed by the visible text, so keyword
// matching sees both markup attributes and entity-decoded content.
func (p Page) Analysis() string {
	if p.Text == "" {
		return p.HTML
	}
	return p.HTML + "\n" + p.Text
}

// Result is the outcome of a scan.
type Result struct {
	Pages []Page
	// Text is every page's analysis text joined by blank lines.
	Text string
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithPaths overrides the paths fetched after the homepage.
func WithPaths(paths []string) Option {
	return func(s *Scanner) { s.paths = paths }
}

// WithMaxPages caps the pages collected, homepage included.
func WithMaxPages(n int) Option {
	return func(s *Scanner) { s.maxPages = n }
}

// WithPageDelay sets the pause between page fetches.
func WithPageDelay(d time.Duration) Option {
	return func(s *Scanner) { s.pageDelay = d }
}

// Scanner collects pages from a resolved site.
type Scanner struct {
	pages     PageFetcher
	paths     []string
	maxPages  int
	minLength int
	pageDelay time.Duration
}

// New creates a Scanner.
func New(pages PageFetcher, opts ...Option) *Scanner {
	s := &Scanner{
		pages:     pages,
		paths:     DefaultPaths,
		maxPages:  defaultMaxPages,
		minLength: defaultMinLength,
		pageDelay: defaultPageDelay,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Scan starts from the homepage HTML and fetches paths on http://<domain>
// until the page cap is reached. Fetch failures and pages shorter than the
// minimum length are skipped. An empty homepage yields an empty result.
func (s *Scanner) Scan(ctx context.Context, domain, homepageHTML string) (Result, error) {
	if homepageHTML == "" {
		return Result{}, nil
	}

	base := "http://" + domain
	pages := []Page{newPage(base, homepageHTML)}

	if domain != "" {
		th := fetcher.NewThrottle(s.pageDelay)
		for _, p := range s.paths {
			if len(pages) >= s.maxPages {
				break
			}
			if err := th.Wait(ctx); err != nil {
				return s.result(pages), eris.Wrap(err, "scan: throttle")
			}
			target := base + p
			html, err := s.pages.GetHTML(ctx, target)
			if err != nil {
				if ctx.Err() != nil {
					return s.result(pages), eris.Wrap(ctx.Err(), "scan: fetch page")
				}
				zap.L().Debug("scan: page fetch failed", zap.String("url", target), zap.Error(err))
				continue
			}
			if len(html) <= s.minLength {
				continue
			}
			pages = append(pages, newPage(target, html))
		}
	}
	return s.result(pages), nil
}

func (s *Scanner) result(pages []Page) Result {
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Analysis()
	}
	return Result{Pages: pages, Text: strings.Join(texts, "\n\n")}
}

func newPage(url, html string) Page {
	return Page{URL: url, HTML: html, Text: VisibleText(html)}
}
