// Package model holds the records that flow through the ESN discovery pipeline.
package model

import (
	"encoding/json"
)

// DomainSource records how a candidate's website was found.
type DomainSource string

const (
	DomainSourceNone     DomainSource = ""
	DomainSourceDeclared DomainSource = "api"
	DomainSourceSerpAPI  DomainSource = "serpapi"
	DomainSourceSerper   DomainSource = "serper"
	DomainSourceGuess    DomainSource = "guess"
)

// RawEstablishment is the source-agnostic registry record every registry
// strategy normalizes into. One SIREN may appear several times (one per
// establishment); the headquarters record is preferred during dedup.
type RawEstablishment struct {
	SIREN         string `json:"siren"`
	Name          string `json:"name"`
	DirectoryName string `json:"directory_name,omitempty"`
	NAF           string `json:"naf"`
	SizeBand      string `json:"size_band"`
	Headquarters  bool   `json:"headquarters"`
	Website       string `json:"website,omitempty"`
	Source        string `json:"source"`
}

// SearchName returns the name to use for web lookups: the directory name
// when the registry supplied one, else the legal name.
func (r RawEstablishment) SearchName() string {
	if r.DirectoryName != "" {
		return r.DirectoryName
	}
	return r.Name
}

// Signals is the evidence bag kept alongside the scores.
type Signals struct {
	NameKeywords []string `json:"name_keywords"`
	SiteKeywords []string `json:"site_keywords"`
	JobPosting   bool     `json:"job_posting"`
}

// MarshalText renders the signals as compact JSON so they fit in one CSV cell.
func (s Signals) MarshalText() ([]byte, error) {
	type plain Signals
	p := plain(s)
	if p.NameKeywords == nil {
		p.NameKeywords = []string{}
	}
	if p.SiteKeywords == nil {
		p.SiteKeywords = []string{}
	}
	return json.Marshal(p)
}

// UnmarshalText parses the compact JSON form written by MarshalText.
func (s *Signals) UnmarshalText(b []byte) error {
	type plain Signals
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*s = Signals(p)
	return nil
}

// Candidate is one scored company, unique by SIREN in the final output.
type Candidate struct {
	SIREN             string       `json:"siren" csv:"siren"`
	Name              string       `json:"nom" csv:"nom"`
	DirectoryName     string       `json:"nom_complet_annuaire" csv:"nom_complet_annuaire"`
	NAF               string       `json:"naf" csv:"naf"`
	SizeBand          string       `json:"tranche_effectif" csv:"tranche_effectif"`
	Domain            string       `json:"site" csv:"site"`
	DomainSource      DomainSource `json:"site_source" csv:"site_source"`
	Score             int          `json:"score" csv:"score"`
	NAFMatch          bool         `json:"naf_ok" csv:"naf_ok"`
	NameKeywordFound  bool         `json:"name_keyword_found" csv:"name_keyword_found"`
	SiteKeywordFound  bool         `json:"site_keyword_found" csv:"site_keyword_found"`
	JobPostingPresent bool         `json:"job_posting_present" csv:"job_posting_present"`
	SizeInWindow      bool         `json:"size_ok" csv:"size_ok"`
	PertinenceScore   int          `json:"score_pertinence" csv:"score_pertinence"`
	Qualifies         bool         `json:"pertinent_for_clustor" csv:"pertinent_for_clustor"`
	Signals           Signals      `json:"signals" csv:"signals"`
}

// FilterQualifying returns the candidates whose Qualifies flag is set,
// preserving order.
func FilterQualifying(cands []Candidate) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Qualifies {
			out = append(out, c)
		}
	}
	return out
}
