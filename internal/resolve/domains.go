package resolve

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/sells-group/esn-finder/internal/textnorm"
)

// Blocklist holds hosts that are never a company's own site: social
// networks, registries, press and job boards.
var Blocklist = []string{
	"linkedin.com", "fr.linkedin.com", "facebook.com", "twitter.com", "x.com",
	"societe.com", "societeinfo.com", "verif.com", "manageo.fr", "bloomberg.com",
	"wikipedia.org", "lefigaro.fr", "lemonde.fr", "indeed.fr", "welcometothejungle.com",
}

var guessStripRe = regexp.MustCompile(`[^a-z0-9\- ]`)

// GuessDomains derives candidate domains from a company name. The result is
// deterministic and free of duplicates; a name without a usable token yields
// nil.
func GuessDomains(name string) []string {
	base := guessStripRe.ReplaceAllString(textnorm.Normalize(name), "")
	var parts []string
	for _, p := range strings.Fields(base) {
		if len(p) > 1 {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil
	}

	head := parts
	if len(head) > 2 {
		head = head[:2]
	}
	joined := strings.Join(parts, "")
	dashed := strings.Join(parts, "-")
	return dedupe([]string{
		joined + ".fr",
		joined + ".com",
		parts[0] + strings.Join(parts[1:], "") + ".fr",
		strings.Join(head, "") + ".fr",
		dashed + ".fr",
		dashed + ".com",
	})
}

// EnsureHTTP prefixes u with http:// unless it already carries a scheme.
func EnsureHTTP(u string) string {
	if strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://") {
		return u
	}
	return "http://" + u
}

// HostOf returns the network location of rawURL, or "" when unparsable.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// Blocked reports whether host is, or is a subdomain of, a blocklisted host.
func Blocked(host string) bool {
	h := strings.ToLower(host)
	for _, b := range Blocklist {
		if h == b || strings.HasSuffix(h, "."+b) {
			return true
		}
	}
	return false
}

// SearchQuery builds the web-search query for a company. IT-services and
// engineering-consultancy codes get a qualifier that sharpens results.
func SearchQuery(name, nafCode string) string {
	code := strings.ToUpper(strings.TrimSpace(nafCode))
	extra := ""
	switch {
	case strings.HasPrefix(code, "71.12B"):
		extra = " conseil"
	case strings.HasPrefix(code, "62.02A"):
		extra = " ESN SSII"
	}
	return strings.TrimSpace(name) + extra + " site officiel"
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
