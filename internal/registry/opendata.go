package registry

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/esn-finder/internal/fetcher"
	"github.com/sells-group/esn-finder/internal/model"
	"github.com/sells-group/esn-finder/internal/naf"
)

// DefaultOpenDataURL is the open-data SIRENE v3 root.
const DefaultOpenDataURL = "https://entreprise.data.gouv.fr/api/sirene/v3"

// OpenDataSource queries the open-data establishments search.
type OpenDataSource struct {
	f fetcher.Fetcher
	settings
}

// NewOpenDataSource creates an OpenDataSource.
func NewOpenDataSource(f fetcher.Fetcher, opts ...Option) *OpenDataSource {
	return &OpenDataSource{f: f, settings: newSettings(DefaultOpenDataURL, opts)}
}

// Name implements Source.
func (s *OpenDataSource) Name() string { return "opendata" }

// Fetch implements Source. Per page, the first term with a non-empty batch
// wins; pagination continues only while some term succeeds.
func (s *OpenDataSource) Fetch(ctx context.Context, nafCode string, pageSize, maxPages int) ([]model.RawEstablishment, error) {
	th := fetcher.NewThrottle(s.sleep)
	endpoint := strings.TrimRight(s.baseURL, "/") + "/etablissements"
	terms := naf.Terms(nafCode)

	var out []model.RawEstablishment
	for page := 1; page <= maxPages; page++ {
		if err := waitPage(ctx, th, page); err != nil {
			return out, eris.Wrap(err, "opendata: throttle")
		}

		gotAny := false
		for _, term := range terms {
			params := url.Values{
				"q":        {"activite_principale:" + term},
				"per_page": {strconv.Itoa(pageSize)},
				"page":     {strconv.Itoa(page)},
			}
			var resp openDataResponse
			if err := s.f.GetJSON(ctx, endpoint, params, nil, &resp); err != nil {
				if ctx.Err() != nil {
					return out, eris.Wrap(ctx.Err(), "opendata: fetch page")
				}
				noData(s.Name(), nafCode, page, err)
				continue
			}
			if len(resp.Etablissements) == 0 {
				continue
			}
			for _, e := range resp.Etablissements {
				if e.SIREN == "" {
					continue
				}
				out = append(out, e.toRaw(s.Name()))
			}
			gotAny = true
			break
		}
		if !gotAny {
			break
		}
	}
	return out, nil
}

// WebsiteLookup resolves an enterprise's declared website by SIREN.
type WebsiteLookup interface {
	EnterpriseWebsite(ctx context.Context, siren string) (string, error)
}

// EnterpriseWebsite returns the site_web (or website) declared for siren on
// the open-data enterprise record, or "" when none is published.
func (s *OpenDataSource) EnterpriseWebsite(ctx context.Context, siren string) (string, error) {
	if siren == "" {
		return "", nil
	}
	endpoint := strings.TrimRight(s.baseURL, "/") + "/entreprises/" + url.PathEscape(siren)

	var resp enterpriseResponse
	if err := s.f.GetJSON(ctx, endpoint, nil, nil, &resp); err != nil {
		if ctx.Err() != nil {
			return "", eris.Wrap(ctx.Err(), "opendata: enterprise lookup")
		}
		noData(s.Name(), "", 0, err)
		return "", nil
	}
	return firstNonEmpty(resp.Entreprise.SiteWeb, resp.Entreprise.Website), nil
}
