package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuessDomains(t *testing.T) {
	got := GuessDomains("Acme Conseil SAS")
	assert.Equal(t, []string{
		"acmeconseilsas.fr",
		"acmeconseilsas.com",
		"acmeconseil.fr",
		"acme-conseil-sas.fr",
		"acme-conseil-sas.com",
	}, got)
}

func TestGuessDomains_AccentsAndPunctuation(t *testing.T) {
	got := GuessDomains("L'Atelier  Ingénierie")
	assert.Equal(t, []string{
		"latelieringenierie.fr",
		"latelieringenierie.com",
		"latelier-ingenierie.fr",
		"latelier-ingenierie.com",
	}, got)
}

func TestGuessDomains_NoUsableToken(t *testing.T) {
	assert.Nil(t, GuessDomains(""))
	assert.Nil(t, GuessDomains("A & B"))
}

func TestGuessDomains_DeterministicAndUnique(t *testing.T) {
	names := []string{"Acme", "Groupe Alpha Beta Gamma", "X-Tech Solutions", "Été Services"}
	for _, n := range names {
		first := GuessDomains(n)
		assert.Equal(t, first, GuessDomains(n), n)

		seen := map[string]bool{}
		for _, d := range first {
			assert.False(t, seen[d], "duplicate %s for %q", d, n)
			seen[d] = true
		}
	}
}

func TestEnsureHTTP(t *testing.T) {
	assert.Equal(t, "http://acme.fr", EnsureHTTP("acme.fr"))
	assert.Equal(t, "https://acme.fr", EnsureHTTP("https://acme.fr"))
	assert.Equal(t, "http://acme.fr/x", EnsureHTTP("http://acme.fr/x"))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "www.acme.fr", HostOf("https://www.acme.fr/contact"))
	assert.Equal(t, "acme.fr:8080", HostOf("http://acme.fr:8080"))
	assert.Empty(t, HostOf("::not a url"))
}

func TestBlocked(t *testing.T) {
	assert.True(t, Blocked("linkedin.com"))
	assert.True(t, Blocked("fr.LinkedIn.com"))
	assert.True(t, Blocked("www.societe.com"))
	assert.True(t, Blocked("fr.wikipedia.org"))
	assert.False(t, Blocked("acme.fr"))
	assert.False(t, Blocked("dropbox.com"))
}

func TestSearchQuery(t *testing.T) {
	assert.Equal(t, "Acme ESN SSII site officiel", SearchQuery("Acme", "62.02A"))
	assert.Equal(t, "Acme conseil site officiel", SearchQuery(" Acme ", "71.12b"))
	assert.Equal(t, "Acme site officiel", SearchQuery("Acme", "70.22Z"))
}
