// Package notion keeps a Notion lead database in sync with qualifying
// candidates: one page per SIREN, updated in place on later runs.
package notion

import (
	"context"
	"net/http"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Client reads and writes lead pages.
type Client interface {
	// FindLeadPage returns the page whose SIREN column equals siren, or nil.
	FindLeadPage(ctx context.Context, dbID, siren string) (*notionapi.Page, error)
	CreateLead(ctx context.Context, dbID string, props notionapi.Properties) (*notionapi.Page, error)
	UpdateLead(ctx context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error)
}

// ClientOption configures the lead client.
type ClientOption func(*leadClient)

// WithRateLimit caps calls per second. Zero or less removes the cap.
func WithRateLimit(rps float64) ClientOption {
	return func(c *leadClient) {
		c.limiter = nil
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithHTTPClient routes API calls through hc.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *leadClient) {
		if hc != nil {
			c.apiOpts = append(c.apiOpts, notionapi.WithHTTPClient(hc))
		}
	}
}

type leadClient struct {
	api     *notionapi.Client
	apiOpts []notionapi.ClientOption
	limiter *rate.Limiter
}

// NewClient creates a lead client for an integration token, limited to
// 3 calls per second unless overridden.
func NewClient(token string, opts ...ClientOption) Client {
	c := &leadClient{limiter: rate.NewLimiter(3, 1)}
	for _, opt := range opts {
		opt(c)
	}
	c.api = notionapi.NewClient(notionapi.Token(token), c.apiOpts...)
	return c
}

func (c *leadClient) throttle(ctx context.Context, op string) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrapf(err, "notion: %s: wait for rate limit", op)
	}
	return nil
}

func (c *leadClient) FindLeadPage(ctx context.Context, dbID, siren string) (*notionapi.Page, error) {
	if err := c.throttle(ctx, "find lead"); err != nil {
		return nil, err
	}
	resp, err := c.api.Database.Query(ctx, notionapi.DatabaseID(dbID), &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: PropSIREN,
			RichText: &notionapi.TextFilterCondition{Equals: siren},
		},
		PageSize: 1,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: look up lead %s in %s", siren, dbID)
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	return &resp.Results[0], nil
}

func (c *leadClient) CreateLead(ctx context.Context, dbID string, props notionapi.Properties) (*notionapi.Page, error) {
	if err := c.throttle(ctx, "create lead"); err != nil {
		return nil, err
	}
	page, err := c.api.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(dbID),
		},
		Properties: props,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: add lead page to %s", dbID)
	}
	return page, nil
}

func (c *leadClient) UpdateLead(ctx context.Context, pageID string, props notionapi.Properties) (*notionapi.Page, error) {
	if err := c.throttle(ctx, "update lead"); err != nil {
		return nil, err
	}
	page, err := c.api.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{Properties: props})
	if err != nil {
		return nil, eris.Wrapf(err, "notion: refresh lead page %s", pageID)
	}
	return page, nil
}
