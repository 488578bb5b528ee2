package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Sources SourcesConfig `yaml:"sources" mapstructure:"sources"`
	Insee   InseeConfig   `yaml:"insee" mapstructure:"insee"`
	SerpAPI SerpAPIConfig `yaml:"serpapi" mapstructure:"serpapi"`
	Serper  SerperConfig  `yaml:"serper" mapstructure:"serper"`
	HTTP    HTTPConfig    `yaml:"http" mapstructure:"http"`
	Output  OutputConfig  `yaml:"output" mapstructure:"output"`
	Notion  NotionConfig  `yaml:"notion" mapstructure:"notion"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
}

// SearchConfig holds the registry query and filtering parameters.
type SearchConfig struct {
	NAFCodes     []string `yaml:"naf_codes" mapstructure:"naf_codes"`
	MinEmployees int      `yaml:"min_emp" mapstructure:"min_emp"`
	MaxEmployees int      `yaml:"max_emp" mapstructure:"max_emp"`
	PerPage      int      `yaml:"per_page" mapstructure:"per_page"`
	MaxPages     int      `yaml:"max_pages" mapstructure:"max_pages"`
	SleepMs      int      `yaml:"sleep_ms" mapstructure:"sleep_ms"`
	// ExcludeOver drops bands above this headcount; negative disables.
	ExcludeOver int  `yaml:"exclude_over_emp" mapstructure:"exclude_over_emp"`
	IncludeZero bool `yaml:"include_zero_employees" mapstructure:"include_zero_employees"`
	NoWebScan   bool `yaml:"no_web_scan" mapstructure:"no_web_scan"`
}

// Sleep returns the inter-call pause.
func (s SearchConfig) Sleep() time.Duration {
	return time.Duration(s.SleepMs) * time.Millisecond
}

// SourcesConfig selects the registry strategies.
type SourcesConfig struct {
	UseRecherche bool `yaml:"use_recherche" mapstructure:"use_recherche"`
	UseInsee     bool `yaml:"use_insee" mapstructure:"use_insee"`
	InseeOnly    bool `yaml:"insee_only" mapstructure:"insee_only"`
}

// InseeConfig holds the SIRENE API credentials.
type InseeConfig struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret"`
	TokenURL     string `yaml:"token_url" mapstructure:"token_url"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	APIKey       string `yaml:"api_key" mapstructure:"api_key"`
}

// SerpAPIConfig holds SerpAPI settings.
type SerpAPIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Num     int    `yaml:"num" mapstructure:"num"`
	Engine  string `yaml:"engine" mapstructure:"engine"`
	HL      string `yaml:"hl" mapstructure:"hl"`
	GL      string `yaml:"gl" mapstructure:"gl"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// SerperConfig holds Serper.dev settings.
type SerperConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Num     int    `yaml:"num" mapstructure:"num"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// HTTPConfig tunes the shared HTTP client.
type HTTPConfig struct {
	UserAgent       string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	PageTimeoutSecs int    `yaml:"page_timeout_secs" mapstructure:"page_timeout_secs"`
	MaxAttempts     int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// OutputConfig configures the sinks.
type OutputConfig struct {
	Path         string `yaml:"path" mapstructure:"path"`
	RelevantName string `yaml:"relevant_name" mapstructure:"relevant_name"`
	XLSXPath     string `yaml:"xlsx_path" mapstructure:"xlsx_path"`
}

// NotionConfig holds the Notion token and lead database ID.
type NotionConfig struct {
	Token  string `yaml:"token" mapstructure:"token"`
	LeadDB string `yaml:"lead_db" mapstructure:"lead_db"`
	// RPS caps Notion API calls per second; zero or less disables the cap.
	RPS float64 `yaml:"rps" mapstructure:"rps"`
}

// Enabled reports whether leads should be pushed to Notion.
func (n NotionConfig) Enabled() bool {
	return n.Token != "" && n.LeadDB != ""
}

// StoreConfig configures the optional run ledger.
type StoreConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL   string `yaml:"database_url" mapstructure:"database_url"`
	CacheTTLHours int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
}

// ScoringConfig points at an optional rules file.
type ScoringConfig struct {
	RulesPath string `yaml:"rules_path" mapstructure:"rules_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// legacyEnv maps config keys to the unprefixed variables older setups use.
var legacyEnv = map[string]string{
	"insee.client_id":     "SIRENE_CLIENT_ID",
	"insee.client_secret": "SIRENE_CLIENT_SECRET",
	"insee.token_url":     "SIRENE_TOKEN_URL",
	"insee.base_url":      "SIRENE_API_BASE",
	"insee.api_key":       "SIRENE_API_KEY",
	"serpapi.key":         "SERPAPI_KEY",
	"serper.key":          "SERPER_API_KEY",
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ESN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "ESN_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", env)
		}
	}

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("search.naf_codes", []string{"62.02A", "71.12B"})
	v.SetDefault("search.min_emp", 10)
	v.SetDefault("search.max_emp", 500)
	v.SetDefault("search.per_page", 100)
	v.SetDefault("search.max_pages", 5)
	v.SetDefault("search.sleep_ms", 600)
	v.SetDefault("search.exclude_over_emp", 2000)
	v.SetDefault("insee.token_url", "https://api.insee.fr/token")
	v.SetDefault("insee.base_url", "https://api.insee.fr/api-sirene/3.11")
	v.SetDefault("serpapi.num", 5)
	v.SetDefault("serpapi.engine", "google")
	v.SetDefault("serpapi.hl", "fr")
	v.SetDefault("serpapi.gl", "fr")
	v.SetDefault("serpapi.base_url", "https://serpapi.com")
	v.SetDefault("serper.num", 1)
	v.SetDefault("serper.base_url", "https://google.serper.dev")
	v.SetDefault("http.user_agent", "ESN-Discovery/1.0 (+https://example.com)")
	v.SetDefault("http.timeout_secs", 25)
	v.SetDefault("http.page_timeout_secs", 15)
	v.SetDefault("http.max_attempts", 3)
	v.SetDefault("notion.rps", 3)
	v.SetDefault("output.path", "esn_candidates.csv")
	v.SetDefault("output.relevant_name", "esn_relevant_for_clustor.csv")
	v.SetDefault("store.cache_ttl_hours", 720)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a build run depends on and reports every
// problem at once.
func (c *Config) Validate() error {
	var problems []string
	if len(c.Search.NAFCodes) == 0 {
		problems = append(problems, "search.naf_codes must not be empty")
	}
	if c.Search.MinEmployees < 0 || c.Search.MaxEmployees < c.Search.MinEmployees {
		problems = append(problems, "search.min_emp/max_emp must form a non-negative range")
	}
	if c.Search.PerPage <= 0 {
		problems = append(problems, "search.per_page must be positive")
	}
	if c.Search.MaxPages <= 0 {
		problems = append(problems, "search.max_pages must be positive")
	}
	if c.Search.SleepMs < 0 {
		problems = append(problems, "search.sleep_ms must not be negative")
	}
	if c.SerpAPI.Enabled && c.SerpAPI.Key == "" {
		problems = append(problems, "serpapi.key is required when serpapi is enabled")
	}
	if c.Serper.Enabled && c.Serper.Key == "" {
		problems = append(problems, "serper.key is required when serper is enabled")
	}
	switch c.Store.Driver {
	case "":
	case "sqlite", "postgres":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required when store.driver is set")
		}
	default:
		problems = append(problems, "store.driver must be sqlite, postgres or empty")
	}
	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
