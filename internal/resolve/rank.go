package resolve

import (
	"regexp"
	"strings"

	"github.com/sells-group/esn-finder/internal/textnorm"
	"github.com/sells-group/esn-finder/pkg/serpapi"
	"github.com/sells-group/esn-finder/pkg/serper"
)

var hostTokenRe = regexp.MustCompile(`[a-z0-9]+`)

// rankSerpAPI picks the best organic host: +2 for a .fr host plus up to 3
// for tokens shared with the query. Ties go to the lexicographically
// greatest host.
func rankSerpAPI(query string, results []serpapi.OrganicResult) string {
	qtokens := make(map[string]struct{})
	for _, t := range textnorm.Tokens(query, 3) {
		qtokens[t] = struct{}{}
	}

	best, bestScore := "", -1
	for _, r := range results {
		link := r.Href()
		if link == "" {
			continue
		}
		host := HostOf(link)
		if host == "" || Blocked(host) {
			continue
		}
		score := hostScore(strings.ToLower(host), qtokens)
		if score > bestScore || (score == bestScore && host > best) {
			best, bestScore = host, score
		}
	}
	return best
}

func hostScore(host string, qtokens map[string]struct{}) int {
	score := 0
	if strings.HasSuffix(host, ".fr") {
		score += 2
	}
	seen := make(map[string]struct{})
	overlap := 0
	for _, t := range hostTokenRe.FindAllString(host, -1) {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := qtokens[t]; ok {
			overlap++
		}
	}
	return score + min(overlap, 3)
}

// firstSerper returns the first organic host that is not blocklisted.
func firstSerper(results []serper.OrganicResult) string {
	for _, r := range results {
		link := r.Href()
		if link == "" {
			continue
		}
		if host := HostOf(link); host != "" && !Blocked(host) {
			return host
		}
	}
	return ""
}
