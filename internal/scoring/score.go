// Package scoring turns registry facts and website evidence into an
// inclusion score and a pertinence verdict.
package scoring

import (
	"slices"
	"strings"

	"github.com/sells-group/esn-finder/internal/model"
	"github.com/sells-group/esn-finder/internal/naf"
	"github.com/sells-group/esn-finder/internal/sizeband"
	"github.com/sells-group/esn-finder/internal/textnorm"
)

// Input is everything known about one establishment at scoring time.
type Input struct {
	Establishment model.RawEstablishment
	Domain        string
	DomainSource  model.DomainSource
	// SiteText is the combined analysis text of the scanned pages; empty
	// when no site was found or scanning was disabled.
	SiteText string
}

// Scorer applies Rules.
type Scorer struct {
	rules          Rules
	inclusionCodes []string
	minEmployees   int
	maxEmployees   int
}

// New creates a Scorer. inclusionCodes are the NAF codes the run targets;
// [minEmp, maxEmp] is the employee window for the size pertinence signal.
func New(rules Rules, inclusionCodes []string, minEmp, maxEmp int) *Scorer {
	return &Scorer{
		rules:          rules,
		inclusionCodes: inclusionCodes,
		minEmployees:   minEmp,
		maxEmployees:   maxEmp,
	}
}

// Rules returns the rules in use.
func (s *Scorer) Rules() Rules {
	return s.rules
}

// Score builds the Candidate for in. It is a pure function of its input.
func (s *Scorer) Score(in Input) model.Candidate {
	e := in.Establishment
	c := model.Candidate{
		SIREN:         e.SIREN,
		Name:          e.Name,
		DirectoryName: e.DirectoryName,
		NAF:           e.NAF,
		SizeBand:      e.SizeBand,
		Domain:        in.Domain,
		DomainSource:  in.DomainSource,
	}
	inc, per := s.rules.Inclusion, s.rules.Pertinence

	if e.NAF != "" && naf.MatchesAny(e.NAF, s.inclusionCodes) {
		c.Score += inc.NAF
	}
	c.NAFMatch = e.NAF != "" && naf.MatchesAny(e.NAF, s.rules.TargetPrefixes)

	c.Signals.NameKeywords = textnorm.FindKeywords(e.Name, s.rules.NameKeywords)
	if len(c.Signals.NameKeywords) > 0 {
		c.Score += inc.NameKeyword
		c.NameKeywordFound = true
	}

	if in.SiteText != "" {
		found := textnorm.FindKeywords(in.SiteText, s.rules.SiteKeywords)
		if len(found) > 0 {
			c.Signals.SiteKeywords = sortedUnique(found)
			c.Score += inc.SiteKeyword
			c.SiteKeywordFound = true
		}
		if containsAny(strings.ToLower(in.SiteText), s.rules.JobTerms) {
			c.Signals.JobPosting = true
			c.Score += inc.JobPosting
			c.JobPostingPresent = true
		}
	}

	if sizeband.Present(e.SizeBand) {
		c.Score += inc.Size
		c.SizeInWindow = sizeband.InWindow(e.SizeBand, s.minEmployees, s.maxEmployees)
	}

	c.PertinenceScore = pertinence(per, c)
	c.Qualifies = c.PertinenceScore >= s.rules.Threshold
	return c
}

func pertinence(w Weights, c model.Candidate) int {
	score := 0
	if c.NAFMatch {
		score += w.NAF
	}
	if c.NameKeywordFound {
		score += w.NameKeyword
	}
	if c.SiteKeywordFound {
		score += w.SiteKeyword
	}
	if c.JobPostingPresent {
		score += w.JobPosting
	}
	if c.SizeInWindow {
		score += w.Size
	}
	return score
}

func containsAny(text string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(text, strings.ToLower(t)) {
			return true
		}
	}
	return false
}

func sortedUnique(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}
