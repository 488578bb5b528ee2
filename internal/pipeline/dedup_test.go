package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/esn-finder/internal/model"
)

func TestDedup(t *testing.T) {
	branch := model.RawEstablishment{SIREN: "111", Name: "branch"}
	hq := model.RawEstablishment{SIREN: "111", Name: "hq", Headquarters: true}
	hq2 := model.RawEstablishment{SIREN: "111", Name: "hq2", Headquarters: true}
	other := model.RawEstablishment{SIREN: "222", Name: "other"}

	tests := []struct {
		name  string
		in    []model.RawEstablishment
		names []string
	}{
		{"branch then hq", []model.RawEstablishment{branch, other, hq}, []string{"hq", "other"}},
		{"hq then branch", []model.RawEstablishment{hq, other, branch}, []string{"hq", "other"}},
		{"first hq wins", []model.RawEstablishment{hq, hq2}, []string{"hq"}},
		{"branches keep first", []model.RawEstablishment{branch, {SIREN: "111", Name: "later"}}, []string{"branch"}},
		{"empty siren dropped", []model.RawEstablishment{{Name: "anon"}, other}, []string{"other"}},
		{"empty input", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dedup(tt.in)
			var names []string
			seen := map[string]bool{}
			for _, r := range got {
				names = append(names, r.Name)
				assert.False(t, seen[r.SIREN], "siren %s repeated", r.SIREN)
				seen[r.SIREN] = true
			}
			assert.Equal(t, tt.names, names)
		})
	}
}
