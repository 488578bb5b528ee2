package registry

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/sells-group/esn-finder/internal/fetcher"
	"github.com/sells-group/esn-finder/internal/model"
	"github.com/sells-group/esn-finder/internal/naf"
)

const (
	// DefaultInseeBaseURL is the SIRENE 3.11 API root.
	DefaultInseeBaseURL = "https://api.insee.fr/api-sirene/3.11"
	// DefaultInseeTokenURL is the OAuth client-credentials endpoint.
	DefaultInseeTokenURL = "https://api.insee.fr/token"

	inseeAPIKeyHeader = "X-INSEE-Api-Key-Integration"
)

// inseeFields are the activity fields tried, in order, for each page.
var inseeFields = []string{"activitePrincipaleUniteLegale", "activitePrincipaleEtablissement"}

// Credentials produces the auth headers for one SIRENE call.
type Credentials interface {
	Headers(ctx context.Context) (map[string]string, error)
	Kind() string
}

// APIKey authenticates with the public integration key header.
type APIKey string

// Headers implements Credentials.
func (k APIKey) Headers(context.Context) (map[string]string, error) {
	return map[string]string{inseeAPIKeyHeader: string(k)}, nil
}

// Kind implements Credentials.
func (APIKey) Kind() string { return "apikey" }

// OAuthCredentials exchanges a client id/secret for a bearer token. The
// token is cached until it expires; each exchange runs under the caller's
// context.
type OAuthCredentials struct {
	cfg    clientcredentials.Config
	client *http.Client

	mu  sync.Mutex
	tok *oauth2.Token
}

// NewOAuthCredentials builds a client-credentials config sending the
// id/secret pair as HTTP basic auth. client is reused for the exchange.
func NewOAuthCredentials(client *http.Client, clientID, clientSecret, tokenURL string) *OAuthCredentials {
	if tokenURL == "" {
		tokenURL = DefaultInseeTokenURL
	}
	return &OAuthCredentials{
		cfg: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		client: client,
	}
}

// Headers implements Credentials.
func (c *OAuthCredentials) Headers(ctx context.Context) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.tok.Valid() {
		if c.client != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
		}
		tok, err := c.cfg.Token(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "insee: token exchange")
		}
		c.tok = tok
	}
	return map[string]string{"Authorization": "Bearer " + c.tok.AccessToken}, nil
}

// Kind implements Credentials.
func (*OAuthCredentials) Kind() string { return "oauth" }

// InseeSource queries the official SIRENE /siret endpoint.
type InseeSource struct {
	f     fetcher.Fetcher
	creds Credentials
	settings
}

// NewInseeSource creates an InseeSource.
func NewInseeSource(f fetcher.Fetcher, creds Credentials, opts ...Option) *InseeSource {
	return &InseeSource{f: f, creds: creds, settings: newSettings(DefaultInseeBaseURL, opts)}
}

// Name implements Source.
func (s *InseeSource) Name() string { return "insee_" + s.creds.Kind() }

// Fetch implements Source. For each page the first field/term pair that
// answers 200 wins. A 200 with no rows ends pagination after that page; a
// page where nothing answers 200 stops pagination.
func (s *InseeSource) Fetch(ctx context.Context, nafCode string, pageSize, maxPages int) ([]model.RawEstablishment, error) {
	headers, err := s.creds.Headers(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "insee: credentials")
		}
		zap.L().Warn("insee: credentials unavailable, skipping source",
			zap.String("source", s.Name()),
			zap.Error(err),
		)
		return nil, nil
	}

	size := clampPageSize(pageSize, 1000)
	th := fetcher.NewThrottle(s.sleep)
	endpoint := strings.TrimRight(s.baseURL, "/") + "/siret"

	var out []model.RawEstablishment
	for page := 1; page <= maxPages; page++ {
		if err := waitPage(ctx, th, page); err != nil {
			return out, eris.Wrap(err, "insee: throttle")
		}

		rows, ok, err := s.fetchPage(ctx, endpoint, headers, nafCode, size, page)
		if err != nil {
			return out, err
		}
		if !ok {
			zap.L().Warn("insee: no query field worked for this page",
				zap.String("source", s.Name()),
				zap.String("naf", nafCode),
				zap.Int("page", page),
			)
			break
		}
		if len(rows) == 0 {
			break
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (s *InseeSource) fetchPage(ctx context.Context, endpoint string, headers map[string]string, nafCode string, size, page int) ([]model.RawEstablishment, bool, error) {
	for _, field := range inseeFields {
		for _, term := range naf.Terms(nafCode) {
			params := url.Values{
				"q":      {field + ":" + term},
				"nombre": {strconv.Itoa(size)},
				"debut":  {strconv.Itoa((page - 1) * size)},
			}
			var resp inseeResponse
			err := s.f.Do(ctx, fetcher.Request{
				Method:  http.MethodGet,
				URL:     endpoint,
				Params:  params,
				Headers: headers,
				Retry:   true,
			}, &resp)
			if err != nil {
				if ctx.Err() != nil {
					return nil, false, eris.Wrap(ctx.Err(), "insee: fetch page")
				}
				noData(s.Name(), nafCode, page, err)
				continue
			}

			rows := make([]model.RawEstablishment, 0, len(resp.Etablissements))
			for _, e := range resp.Etablissements {
				if e.SIREN == "" {
					continue
				}
				rows = append(rows, e.toRaw(s.Name()))
			}
			return rows, true, nil
		}
	}
	return nil, false, nil
}
