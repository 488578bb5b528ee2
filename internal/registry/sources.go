package registry

import (
	"net/http"
	"time"

	"github.com/sells-group/esn-finder/internal/fetcher"
)

// ChainConfig selects and configures the strategies of a Chain.
type ChainConfig struct {
	UseRecherche bool
	UseInsee     bool
	// InseeOnly disables the public fallbacks.
	InseeOnly bool

	InseeAPIKey       string
	InseeClientID     string
	InseeClientSecret string
	InseeTokenURL     string
	InseeBaseURL      string

	Sleep       time.Duration
	ExcludeOver int
}

// HasInseeCredentials reports whether any INSEE auth method is configured.
func (c ChainConfig) HasInseeCredentials() bool {
	return c.InseeAPIKey != "" || (c.InseeClientID != "" && c.InseeClientSecret != "")
}

func (c ChainConfig) inseeOpts() []Option {
	opts := []Option{WithSleep(c.Sleep)}
	if c.InseeBaseURL != "" {
		opts = append(opts, WithBaseURL(c.InseeBaseURL))
	}
	return opts
}

func (c ChainConfig) apiKeySource(f fetcher.Fetcher) Source {
	if c.InseeAPIKey == "" {
		return nil
	}
	return NewInseeSource(f, APIKey(c.InseeAPIKey), c.inseeOpts()...)
}

func (c ChainConfig) oauthSource(f fetcher.Fetcher, client *http.Client) Source {
	if c.InseeClientID == "" || c.InseeClientSecret == "" {
		return nil
	}
	creds := NewOAuthCredentials(client, c.InseeClientID, c.InseeClientSecret, c.InseeTokenURL)
	return NewInseeSource(f, creds, c.inseeOpts()...)
}

// NewChainFromConfig builds the strategy chain in priority order: search
// API, INSEE API key, INSEE OAuth, open data, local filter. Strategies whose
// switches or credentials are missing are left out.
func NewChainFromConfig(f fetcher.Fetcher, client *http.Client, c ChainConfig) *Chain {
	var sources []Source
	if c.UseRecherche {
		sources = append(sources, NewRechercheSource(f, WithSleep(c.Sleep), WithExcludeOver(c.ExcludeOver)))
	}
	if c.UseInsee {
		sources = append(sources, c.apiKeySource(f), c.oauthSource(f, client))
	}
	if !c.InseeOnly {
		sources = append(sources,
			NewOpenDataSource(f, WithSleep(c.Sleep)),
			NewLocalFilterSource(f, WithSleep(c.Sleep)),
		)
	}
	return NewChain(sources...)
}
