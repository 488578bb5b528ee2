package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/esn-finder/pkg/serpapi"
	"github.com/sells-group/esn-finder/pkg/serper"
)

func TestRankSerpAPI_PrefersFrAndOverlap(t *testing.T) {
	results := []serpapi.OrganicResult{
		{Link: "https://fr.linkedin.com/company/acme"},
		{Link: "https://www.acmegroup.com/"},
		{Link: "https://acme.fr/"},
		{URL: "https://annuaire.example.fr/acme"},
	}
	// acme.fr: .fr (2) + "acme" overlap (1) = 3.
	// annuaire.example.fr: .fr (2) + "acme" absent from host = 2.
	assert.Equal(t, "acme.fr", rankSerpAPI("Acme ESN SSII site officiel", results))
}

func TestRankSerpAPI_TieBreaksOnGreatestHost(t *testing.T) {
	results := []serpapi.OrganicResult{
		{Link: "https://alpha.fr"},
		{Link: "https://beta.fr"},
	}
	assert.Equal(t, "beta.fr", rankSerpAPI("Zeta site officiel", results))
}

func TestRankSerpAPI_OverlapCapped(t *testing.T) {
	results := []serpapi.OrganicResult{
		{Link: "https://alpha-beta-gamma-delta.com"},
		{Link: "https://alpha.fr"},
	}
	// com host: overlap 4 capped at 3 => 3; alpha.fr: 2 + 1 = 3; tie => greatest host.
	assert.Equal(t, "alpha.fr", rankSerpAPI("alpha beta gamma delta", results))
}

func TestRankSerpAPI_NothingAcceptable(t *testing.T) {
	assert.Empty(t, rankSerpAPI("acme", nil))
	assert.Empty(t, rankSerpAPI("acme", []serpapi.OrganicResult{{Link: "https://www.facebook.com/acme"}, {}}))
}

func TestFirstSerper(t *testing.T) {
	results := []serper.OrganicResult{
		{Link: "https://www.societe.com/acme"},
		{},
		{Link: "https://www.acme-conseil.fr/"},
		{Link: "https://acme.com"},
	}
	assert.Equal(t, "www.acme-conseil.fr", firstSerper(results))
	assert.Empty(t, firstSerper(nil))
}
