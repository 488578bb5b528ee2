package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/esn-finder/internal/config"
	"github.com/sells-group/esn-finder/internal/export"
	"github.com/sells-group/esn-finder/internal/fetcher"
	"github.com/sells-group/esn-finder/internal/naf"
	"github.com/sells-group/esn-finder/internal/pipeline"
	"github.com/sells-group/esn-finder/internal/registry"
	"github.com/sells-group/esn-finder/internal/resolve"
	"github.com/sells-group/esn-finder/internal/scan"
	"github.com/sells-group/esn-finder/internal/scoring"
	"github.com/sells-group/esn-finder/internal/store"
	"github.com/sells-group/esn-finder/pkg/notion"
	"github.com/sells-group/esn-finder/pkg/serpapi"
	"github.com/sells-group/esn-finder/pkg/serper"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the ranked ESN/SSII candidate list",
	Long: "Fetches establishments for each NAF code, deduplicates them by SIREN, " +
		"scans company websites and writes the ranked CSV plus the relevant subset.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := applyBuildFlags(cmd, cfg); err != nil {
			return err
		}
		if ping, _ := cmd.Flags().GetBool("ping-insee"); ping {
			return runPing(ctx, cfg)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runBuild(ctx, cfg)
	},
}

func runBuild(ctx context.Context, c *config.Config) error {
	log := zap.L()
	log.Info("collecting from SIRENE", zap.Strings("naf_codes", c.Search.NAFCodes))

	f := newFetcher(c)

	st, err := store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL)
	if err != nil {
		return eris.Wrap(err, "build: open store")
	}
	if st != nil {
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "build: migrate store")
		}
	}

	deps, err := buildDeps(c, f, st)
	if err != nil {
		return err
	}

	p := pipeline.New(deps, pipeline.Options{
		NAFCodes:       c.Search.NAFCodes,
		MinEmployees:   c.Search.MinEmployees,
		MaxEmployees:   c.Search.MaxEmployees,
		PageSize:       c.Search.PerPage,
		MaxPages:       c.Search.MaxPages,
		Sleep:          c.Search.Sleep(),
		ExcludeOver:    c.Search.ExcludeOver,
		IncludeZero:    c.Search.IncludeZero,
		NoWebScan:      c.Search.NoWebScan,
		StrictInsee:    c.Sources.InseeOnly,
		OutputPath:     c.Output.Path,
		RelevantOutput: export.NewCSVSink(c.Output.Path, c.Output.RelevantName).RelevantPath(),
	})

	res, err := p.Run(ctx)
	if err != nil {
		if !export.IsPartial(err) {
			return err
		}
		log.Warn("build: saved main CSV but failed to write relevant subset", zap.Error(err))
	}

	printSummary(c, res)
	return nil
}

// buildDeps wires the pipeline collaborators from configuration. st may be
// nil when no ledger is configured.
func buildDeps(c *config.Config, f *fetcher.HTTPFetcher, st store.Store) (pipeline.Deps, error) {
	rules := scoring.DefaultRules()
	if c.Scoring.RulesPath != "" {
		r, err := scoring.LoadRules(c.Scoring.RulesPath)
		if err != nil {
			return pipeline.Deps{}, eris.Wrap(err, "build: load scoring rules")
		}
		rules = r
	}

	chain := registry.NewChainFromConfig(f, f.Client(), chainConfig(c))
	if chain.Len() == 0 {
		zap.L().Warn("build: no registry source enabled, nothing will be collected")
	} else {
		zap.L().Info("build: registry sources", zap.Strings("sources", chain.Names()))
	}

	scorer := scoring.New(rules, c.Search.NAFCodes, c.Search.MinEmployees, c.Search.MaxEmployees)
	zap.L().Info("build: scoring rules loaded",
		zap.Int("max_pertinence", scorer.Rules().MaxPertinence()),
		zap.Int("threshold", scorer.Rules().Threshold),
	)

	deps := pipeline.Deps{
		Registry: chain,
		Resolver: resolve.New(f, resolverOptions(c, f, st)...),
		Scanner:  scan.New(f),
		Scorer:   scorer,
		Sink:     newSink(c, f),
	}
	if !c.Sources.InseeOnly {
		deps.Lookup = registry.NewOpenDataSource(f)
	}
	if st != nil {
		deps.Store = st
	}
	return deps, nil
}

func newFetcher(c *config.Config) *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:   c.HTTP.UserAgent,
		Timeout:     time.Duration(c.HTTP.TimeoutSecs) * time.Second,
		PageTimeout: time.Duration(c.HTTP.PageTimeoutSecs) * time.Second,
		MaxAttempts: c.HTTP.MaxAttempts,
	})
}

func chainConfig(c *config.Config) registry.ChainConfig {
	return registry.ChainConfig{
		UseRecherche:      c.Sources.UseRecherche,
		UseInsee:          c.Sources.UseInsee,
		InseeOnly:         c.Sources.InseeOnly,
		InseeAPIKey:       c.Insee.APIKey,
		InseeClientID:     c.Insee.ClientID,
		InseeClientSecret: c.Insee.ClientSecret,
		InseeTokenURL:     c.Insee.TokenURL,
		InseeBaseURL:      c.Insee.BaseURL,
		Sleep:             c.Search.Sleep(),
		ExcludeOver:       c.Search.ExcludeOver,
	}
}

func resolverOptions(c *config.Config, f *fetcher.HTTPFetcher, st store.Store) []resolve.Option {
	var opts []resolve.Option
	if c.SerpAPI.Enabled && c.SerpAPI.Key != "" {
		client := serpapi.NewClient(c.SerpAPI.Key,
			serpapi.WithBaseURL(c.SerpAPI.BaseURL),
			serpapi.WithHTTPClient(f.Client()),
		)
		opts = append(opts, resolve.WithSerpAPI(client, resolve.SerpAPIOptions{
			Engine: c.SerpAPI.Engine,
			Num:    c.SerpAPI.Num,
			HL:     c.SerpAPI.HL,
			GL:     c.SerpAPI.GL,
		}))
	}
	if c.Serper.Enabled && c.Serper.Key != "" {
		client := serper.NewClient(c.Serper.Key,
			serper.WithBaseURL(c.Serper.BaseURL),
			serper.WithHTTPClient(f.Client()),
		)
		opts = append(opts, resolve.WithSerper(client, c.Serper.Num))
	}
	if st != nil && c.Store.CacheTTLHours > 0 {
		opts = append(opts, resolve.WithCache(st, time.Duration(c.Store.CacheTTLHours)*time.Hour))
	}
	return opts
}

// newSink returns the CSV sink, fanned out to the XLSX workbook and the
// Notion lead database when those are configured.
func newSink(c *config.Config, f *fetcher.HTTPFetcher) pipeline.Sink {
	primary := export.NewCSVSink(c.Output.Path, c.Output.RelevantName)

	var extras []export.Sink
	if c.Output.XLSXPath != "" {
		extras = append(extras, export.NewXLSXSink(c.Output.XLSXPath))
	}
	if c.Notion.Enabled() {
		extras = append(extras, export.NewNotionSink(newNotionClient(c, f), c.Notion.LeadDB))
	}
	if len(extras) == 0 {
		return primary
	}
	return export.NewMulti(primary, extras...)
}

func newNotionClient(c *config.Config, f *fetcher.HTTPFetcher) notion.Client {
	return notion.NewClient(c.Notion.Token,
		notion.WithRateLimit(c.Notion.RPS),
		notion.WithHTTPClient(f.Client()),
	)
}

func printSummary(c *config.Config, res *pipeline.Result) {
	if res == nil {
		return
	}
	csvSink := export.NewCSVSink(c.Output.Path, c.Output.RelevantName)
	fmt.Fprintf(os.Stdout, "Saved %d rows to %s\n", len(res.Candidates), csvSink.Path())
	fmt.Fprintf(os.Stdout, "Saved %d relevant rows to %s\n", len(res.Relevant), csvSink.RelevantPath())
	if res.RunID != "" {
		fmt.Fprintf(os.Stdout, "Run ID: %s\n", res.RunID)
	}
}

// applyBuildFlags overlays explicitly set flags on the loaded configuration.
func applyBuildFlags(cmd *cobra.Command, c *config.Config) error {
	fs := cmd.Flags()
	set := func(name string, apply func() error) error {
		if !fs.Changed(name) {
			return nil
		}
		return apply()
	}
	str := func(name string, dst *string) error {
		return set(name, func() error {
			v, err := fs.GetString(name)
			*dst = v
			return err
		})
	}
	num := func(name string, dst *int) error {
		return set(name, func() error {
			v, err := fs.GetInt(name)
			*dst = v
			return err
		})
	}
	flag := func(name string, dst *bool) error {
		return set(name, func() error {
			v, err := fs.GetBool(name)
			*dst = v
			return err
		})
	}

	steps := []error{
		set("naf-codes", func() error {
			v, err := fs.GetString("naf-codes")
			c.Search.NAFCodes = naf.ParseList(v)
			return err
		}),
		set("sleep", func() error {
			v, err := fs.GetFloat64("sleep")
			c.Search.SleepMs = int(v * 1000)
			return err
		}),
		num("min-emp", &c.Search.MinEmployees),
		num("max-emp", &c.Search.MaxEmployees),
		num("per-page", &c.Search.PerPage),
		num("max-pages", &c.Search.MaxPages),
		num("exclude-over-emp", &c.Search.ExcludeOver),
		flag("include-zero-employees", &c.Search.IncludeZero),
		flag("no-web-scan", &c.Search.NoWebScan),
		str("outfile", &c.Output.Path),
		str("xlsx", &c.Output.XLSXPath),
		str("rules", &c.Scoring.RulesPath),
		flag("use-recherche", &c.Sources.UseRecherche),
		flag("use-insee", &c.Sources.UseInsee),
		flag("insee-only", &c.Sources.InseeOnly),
		str("insee-client-id", &c.Insee.ClientID),
		str("insee-client-secret", &c.Insee.ClientSecret),
		str("insee-token-url", &c.Insee.TokenURL),
		str("insee-base", &c.Insee.BaseURL),
		str("insee-api-key", &c.Insee.APIKey),
		flag("use-serpapi", &c.SerpAPI.Enabled),
		str("serpapi-key", &c.SerpAPI.Key),
		num("serpapi-num", &c.SerpAPI.Num),
		str("serpapi-engine", &c.SerpAPI.Engine),
		str("serpapi-hl", &c.SerpAPI.HL),
		str("serpapi-gl", &c.SerpAPI.GL),
		flag("use-serper", &c.Serper.Enabled),
		str("serper-key", &c.Serper.Key),
	}
	for _, err := range steps {
		if err != nil {
			return eris.Wrap(err, "build: read flags")
		}
	}
	return nil
}

func init() {
	addBuildFlags(buildCmd)
	rootCmd.AddCommand(buildCmd)
}

// addBuildFlags registers the build options. Defaults mirror config.Load;
// only flags set explicitly override the configuration.
func addBuildFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("naf-codes", strings.Join(naf.DefaultCodes, ","), "comma-separated NAF codes or prefixes (e.g. 62.02A,71.12B or 62,71)")
	f.Int("min-emp", 10, "minimum employees (heuristic)")
	f.Int("max-emp", 500, "maximum employees (heuristic)")
	f.Int("per-page", 100, "results per API page")
	f.Int("max-pages", 5, "max pages per NAF code")
	f.Float64("sleep", 0.6, "sleep between network calls (seconds)")
	f.String("outfile", "esn_candidates.csv", "output CSV path")
	f.String("xlsx", "", "also write an XLSX workbook to this path")
	f.String("rules", "", "YAML scoring rules file")
	f.Int("exclude-over-emp", 2000, "exclude companies whose band suggests more than N employees; -1 disables")
	f.Bool("include-zero-employees", false, "include companies with a 0-employee band")
	f.Bool("no-web-scan", false, "skip website resolution and scanning")

	f.Bool("use-recherche", false, "use the Recherche d'entreprises API as primary source")
	f.Bool("use-insee", false, "use the INSEE SIRENE API when credentials are available")
	f.Bool("insee-only", false, "disable public fallbacks; exit 2 if INSEE returns nothing")
	f.Bool("ping-insee", false, "perform a minimal INSEE call and exit")
	f.String("insee-client-id", "", "INSEE client id (env SIRENE_CLIENT_ID)")
	f.String("insee-client-secret", "", "INSEE client secret (env SIRENE_CLIENT_SECRET)")
	f.String("insee-token-url", "", "INSEE OAuth token URL (env SIRENE_TOKEN_URL)")
	f.String("insee-base", "", "INSEE SIRENE API base URL (env SIRENE_API_BASE)")
	f.String("insee-api-key", "", "INSEE API key (env SIRENE_API_KEY)")

	f.Bool("use-serpapi", false, "use SerpAPI to find company homepages")
	f.String("serpapi-key", "", "SerpAPI key (env SERPAPI_KEY)")
	f.Int("serpapi-num", 5, "number of SerpAPI results to inspect")
	f.String("serpapi-engine", "google", "SerpAPI engine")
	f.String("serpapi-hl", "fr", "SerpAPI language")
	f.String("serpapi-gl", "fr", "SerpAPI country")
	f.Bool("use-serper", false, "use serper.dev to find company homepages")
	f.String("serper-key", "", "serper.dev API key (env SERPER_API_KEY)")
}
