package registry

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/esn-finder/internal/fetcher"
	"github.com/sells-group/esn-finder/internal/model"
	"github.com/sells-group/esn-finder/internal/sizeband"
)

const (
	// DefaultRechercheURL is the public enterprise search endpoint.
	DefaultRechercheURL = "https://recherche-entreprises.api.gouv.fr/search"

	// recherchePageCap is the largest per_page the search API accepts.
	recherchePageCap = 25

	// localFilterQuery is a neutral query the search API accepts without
	// filters; results are narrowed by NAF prefix client-side.
	localFilterQuery = "informatique"
)

// RechercheSource queries the enterprise search API filtered by activity.
type RechercheSource struct {
	f fetcher.Fetcher
	settings
}

// NewRechercheSource creates a RechercheSource.
func NewRechercheSource(f fetcher.Fetcher, opts ...Option) *RechercheSource {
	return &RechercheSource{f: f, settings: newSettings(DefaultRechercheURL, opts)}
}

// Name implements Source.
func (s *RechercheSource) Name() string { return "recherche" }

// Fetch implements Source.
func (s *RechercheSource) Fetch(ctx context.Context, nafCode string, pageSize, maxPages int) ([]model.RawEstablishment, error) {
	size := clampPageSize(pageSize, recherchePageCap)
	th := fetcher.NewThrottle(s.sleep)

	var bands string
	if s.excludeOver >= 0 {
		bands = strings.Join(sizeband.AllowedBands(s.excludeOver), ",")
	}

	var out []model.RawEstablishment
	for page := 1; page <= maxPages; page++ {
		if err := waitPage(ctx, th, page); err != nil {
			return out, eris.Wrap(err, "recherche: throttle")
		}

		params := url.Values{
			"activite_principale": {nafCode},
			"etat_administratif":  {"A"},
			"page":                {strconv.Itoa(page)},
			"per_page":            {strconv.Itoa(size)},
			"minimal":             {"true"},
			"include":             {"siege"},
		}
		if bands != "" {
			params.Set("tranche_effectif_salarie", bands)
		}

		var resp rechercheResponse
		if err := s.f.GetJSON(ctx, s.baseURL, params, nil, &resp); err != nil {
			if ctx.Err() != nil {
				return out, eris.Wrap(ctx.Err(), "recherche: fetch page")
			}
			noData(s.Name(), nafCode, page, err)
			break
		}
		if len(resp.Results) == 0 {
			break
		}
		for _, r := range resp.Results {
			if r.SIREN == "" {
				continue
			}
			out = append(out, r.toRaw(s.Name()))
		}
		if total := resp.total(); total > 0 && page*size >= total {
			break
		}
	}
	return out, nil
}

// LocalFilterSource runs a neutral query on the search API and keeps rows
// whose activity code starts with the requested code. Last-resort strategy.
type LocalFilterSource struct {
	f fetcher.Fetcher
	settings
}

// NewLocalFilterSource creates a LocalFilterSource.
func NewLocalFilterSource(f fetcher.Fetcher, opts ...Option) *LocalFilterSource {
	return &LocalFilterSource{f: f, settings: newSettings(DefaultRechercheURL, opts)}
}

// Name implements Source.
func (s *LocalFilterSource) Name() string { return "recherche_local_filter" }

// Fetch implements Source.
func (s *LocalFilterSource) Fetch(ctx context.Context, nafCode string, pageSize, maxPages int) ([]model.RawEstablishment, error) {
	size := clampPageSize(pageSize, recherchePageCap)
	th := fetcher.NewThrottle(s.sleep)

	var out []model.RawEstablishment
	for page := 1; page <= maxPages; page++ {
		if err := waitPage(ctx, th, page); err != nil {
			return out, eris.Wrap(err, "recherche: throttle")
		}

		params := url.Values{
			"q":        {localFilterQuery},
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(size)},
		}
		var resp rechercheResponse
		if err := s.f.GetJSON(ctx, s.baseURL, params, nil, &resp); err != nil {
			if ctx.Err() != nil {
				return out, eris.Wrap(ctx.Err(), "recherche: fetch page")
			}
			noData(s.Name(), nafCode, page, err)
			break
		}
		if len(resp.Results) == 0 {
			break
		}
		for _, r := range resp.Results {
			if r.SIREN == "" || !strings.HasPrefix(r.ActivitePrincipale, nafCode) {
				continue
			}
			raw := r.toRaw(s.Name())
			raw.NAF = r.ActivitePrincipale
			raw.SizeBand = string(r.TrancheEffectif)
			raw.Headquarters = bool(r.EstSiege)
			out = append(out, raw)
		}
		if total := resp.total(); total > 0 && page*size >= total {
			break
		}
	}
	return out, nil
}

func clampPageSize(n, upper int) int {
	if n < 1 {
		return 1
	}
	if n > upper {
		return upper
	}
	return n
}
