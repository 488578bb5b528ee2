package pipeline

import "github.com/sells-group/esn-finder/internal/model"

// Dedup keeps one record per SIREN in first-seen order. The first record
// seen wins unless a later one is the headquarters, which replaces it.
// Records without a SIREN are dropped.
func Dedup(recs []model.RawEstablishment) []model.RawEstablishment {
	index := make(map[string]int, len(recs))
	out := make([]model.RawEstablishment, 0, len(recs))
	for _, r := range recs {
		if r.SIREN == "" {
			continue
		}
		i, seen := index[r.SIREN]
		if !seen {
			index[r.SIREN] = len(out)
			out = append(out, r)
			continue
		}
		if r.Headquarters && !out[i].Headquarters {
			out[i] = r
		}
	}
	return out
}
