package scoring

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/esn-finder/internal/naf"
)

// Weights assigns points to each signal.
type Weights struct {
	NAF         int `yaml:"naf"`
	NameKeyword int `yaml:"name_keyword"`
	SiteKeyword int `yaml:"site_keyword"`
	JobPosting  int `yaml:"job_posting"`
	Size        int `yaml:"size"`
}

func (w Weights) sum() int {
	return w.NAF + w.NameKeyword + w.SiteKeyword + w.JobPosting + w.Size
}

// Rules holds the keyword lists and weights used by the Scorer.
type Rules struct {
	Inclusion  Weights `yaml:"inclusion"`
	Pertinence Weights `yaml:"pertinence"`
	// Threshold is the pertinence score at which a candidate qualifies.
	Threshold int `yaml:"threshold"`

	NameKeywords   []string `yaml:"name_keywords"`
	SiteKeywords   []string `yaml:"site_keywords"`
	JobTerms       []string `yaml:"job_terms"`
	TargetPrefixes []string `yaml:"target_prefixes"`
}

// DefaultRules returns the built-in ESN/engineering-consultancy rules.
func DefaultRules() Rules {
	return Rules{
		Inclusion:  Weights{NAF: 3, NameKeyword: 2, SiteKeyword: 3, JobPosting: 4, Size: 2},
		Pertinence: Weights{NAF: 2, NameKeyword: 1, SiteKeyword: 2, JobPosting: 2, Size: 1},
		Threshold:  6,
		NameKeywords: []string{
			"esn", "ssii", "société de service", "bureau d'études", "ingenierie",
			"ingénierie", "conseil", "consulting", "staffing", "placement",
			"staff augmentation", "intérim", "recrutement",
		},
		SiteKeywords: []string{
			"consultant", "consultants", "mission", "missions", "recrutement",
			"ingénieur d'affaires", "ingenieur d'affaires", "business developer",
			"account manager", "commercial sédentaire", "placement", "staffing",
			"consulting", "bureau d'études", "solutions engineering",
			"staff augmentation", "assistance technique",
		},
		JobTerms: []string{
			"offre", "recrutement", "carriere", "carrières", "careers", "job",
			"poste", "recrute", "candidat", "join us",
		},
		TargetPrefixes: append([]string(nil), naf.TargetPrefixes...),
	}
}

// Validate rejects negative weights and unreachable thresholds.
func (r Rules) Validate() error {
	for name, w := range map[string]Weights{"inclusion": r.Inclusion, "pertinence": r.Pertinence} {
		if w.NAF < 0 || w.NameKeyword < 0 || w.SiteKeyword < 0 || w.JobPosting < 0 || w.Size < 0 {
			return eris.Errorf("scoring: %s weights must be non-negative", name)
		}
	}
	if r.Threshold < 0 {
		return eris.New("scoring: threshold must be non-negative")
	}
	if ceiling := r.MaxPertinence(); r.Threshold > ceiling {
		return eris.Errorf("scoring: threshold %d exceeds maximum pertinence %d", r.Threshold, ceiling)
	}
	return nil
}

// MaxPertinence is the highest reachable pertinence score.
func (r Rules) MaxPertinence() int {
	return r.Pertinence.sum()
}

// LoadRules reads a YAML rules file. Keys absent from the file keep their
// default values.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "scoring: read rules %s", path)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, eris.Wrap(err, "scoring: parse rules")
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}
