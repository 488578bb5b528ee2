package main

import (
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esn-finder/internal/config"
	"github.com/sells-group/esn-finder/internal/export"
	"github.com/sells-group/esn-finder/internal/registry"
	"github.com/sells-group/esn-finder/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Search: config.SearchConfig{
			NAFCodes:     []string{"62.02A", "71.12B"},
			MinEmployees: 10,
			MaxEmployees: 500,
			PerPage:      100,
			MaxPages:     5,
			SleepMs:      600,
			ExcludeOver:  2000,
		},
		SerpAPI: config.SerpAPIConfig{Num: 5, Engine: "google", HL: "fr", GL: "fr"},
		Serper:  config.SerperConfig{Num: 1},
		HTTP:    config.HTTPConfig{TimeoutSecs: 25, PageTimeoutSecs: 15, MaxAttempts: 3},
		Output: config.OutputConfig{
			Path:         "esn_candidates.csv",
			RelevantName: export.DefaultRelevantName,
		},
		Store: config.StoreConfig{CacheTTLHours: 720},
	}
}

func newBuildTestCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "build"}
	addBuildFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return cmd
}

func TestBuildCommand_Flags(t *testing.T) {
	for _, name := range []string{
		"naf-codes", "min-emp", "max-emp", "per-page", "max-pages", "sleep", "outfile",
		"use-recherche", "exclude-over-emp", "use-insee", "insee-only", "no-web-scan",
		"ping-insee", "include-zero-employees", "use-serpapi", "serpapi-key", "use-serper",
		"serper-key", "xlsx", "rules",
	} {
		assert.NotNil(t, buildCmd.Flags().Lookup(name), "build should have --%s flag", name)
	}
	assert.Equal(t, "62.02A,71.12B", buildCmd.Flags().Lookup("naf-codes").DefValue)
	assert.Equal(t, "2000", buildCmd.Flags().Lookup("exclude-over-emp").DefValue)
}

func TestApplyBuildFlags_OnlyChangedFlagsOverride(t *testing.T) {
	c := testConfig()
	c.Search.MinEmployees = 42
	cmd := newBuildTestCmd(t,
		"--naf-codes", "62, 70.22Z",
		"--sleep", "1.5",
		"--exclude-over-emp", "-1",
		"--use-recherche",
		"--insee-only",
		"--serper-key", "k",
		"--use-serper",
		"--outfile", "out/list.csv",
	)

	require.NoError(t, applyBuildFlags(cmd, c))

	assert.Equal(t, []string{"62", "70.22Z"}, c.Search.NAFCodes)
	assert.Equal(t, 1500, c.Search.SleepMs)
	assert.Equal(t, -1, c.Search.ExcludeOver)
	assert.True(t, c.Sources.UseRecherche)
	assert.True(t, c.Sources.InseeOnly)
	assert.True(t, c.Serper.Enabled)
	assert.Equal(t, "k", c.Serper.Key)
	assert.Equal(t, "out/list.csv", c.Output.Path)
	// Untouched flags keep the configured value.
	assert.Equal(t, 42, c.Search.MinEmployees)
	assert.False(t, c.SerpAPI.Enabled)
}

func TestChainConfig(t *testing.T) {
	c := testConfig()
	c.Sources.UseInsee = true
	c.Insee.APIKey = "key"

	cc := chainConfig(c)
	assert.True(t, cc.UseInsee)
	assert.True(t, cc.HasInseeCredentials())
	assert.Equal(t, c.Search.Sleep(), cc.Sleep)
	assert.Equal(t, 2000, cc.ExcludeOver)
}

func TestResolverOptions(t *testing.T) {
	c := testConfig()
	f := newFetcher(c)
	assert.Empty(t, resolverOptions(c, f, nil))

	c.SerpAPI.Enabled = true
	c.SerpAPI.Key = "serp"
	c.Serper.Enabled = true
	assert.Len(t, resolverOptions(c, f, nil), 1, "serper without a key stays disabled")

	c.Serper.Key = "serper"
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "esn.db"))
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck
	assert.Len(t, resolverOptions(c, f, st), 3)
}

func TestNewSink(t *testing.T) {
	c := testConfig()
	f := newFetcher(c)
	_, isCSV := newSink(c, f).(*export.CSVSink)
	assert.True(t, isCSV)

	c.Output.XLSXPath = "out.xlsx"
	_, isMulti := newSink(c, f).(*export.Multi)
	assert.True(t, isMulti)

	c.Output.XLSXPath = ""
	c.Notion = config.NotionConfig{Token: "ntn_x", LeadDB: "db-1", RPS: 2}
	_, isMulti = newSink(c, f).(*export.Multi)
	assert.True(t, isMulti)
}

func TestBuildDeps(t *testing.T) {
	c := testConfig()
	f := newFetcher(c)

	deps, err := buildDeps(c, f, nil)
	require.NoError(t, err)
	assert.NotNil(t, deps.Registry)
	assert.NotNil(t, deps.Lookup)
	assert.NotNil(t, deps.Resolver)
	assert.NotNil(t, deps.Scorer)
	assert.Nil(t, deps.Store)

	c.Sources.InseeOnly = true
	deps, err = buildDeps(c, f, nil)
	require.NoError(t, err)
	assert.Nil(t, deps.Lookup)

	reg, ok := deps.Registry.(*registry.Chain)
	require.True(t, ok)
	assert.Equal(t, 0, reg.Len(), "insee-only without credentials enables no source")

	c.Scoring.RulesPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = buildDeps(c, f, nil)
	assert.Error(t, err)
}
