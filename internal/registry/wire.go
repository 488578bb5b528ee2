package registry

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/sells-group/esn-finder/internal/model"
)

// flexBool accepts true/false as JSON booleans or strings.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	*b = flexBool(strings.EqualFold(s, "true") || s == "1")
	return nil
}

// flexString accepts strings, numbers or null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.Trim(string(data), `"`))
	return nil
}

// recherche-entreprises.api.gouv.fr /search

type rechercheResponse struct {
	Results      []rechercheResult `json:"results"`
	TotalResults int               `json:"total_results"`
	Total        int               `json:"total"`
}

type rechercheResult struct {
	SIREN              string     `json:"siren"`
	NomComplet         string     `json:"nom_complet"`
	NomRaisonSociale   string     `json:"nom_raison_sociale"`
	ActivitePrincipale string     `json:"activite_principale"`
	TrancheEffectif    flexString `json:"tranche_effectif_salarie"`
	EstSiege           flexBool   `json:"est_siege"`
	Siege              struct {
		ActivitePrincipale string     `json:"activite_principale"`
		TrancheEffectif    flexString `json:"tranche_effectif_salarie"`
	} `json:"siege"`
}

func (r rechercheResponse) total() int {
	if r.TotalResults > 0 {
		return r.TotalResults
	}
	return r.Total
}

// toRaw converts an enterprise-level search hit. Search hits describe the
// legal unit, so they are flagged as headquarters.
func (r rechercheResult) toRaw(source string) model.RawEstablishment {
	return model.RawEstablishment{
		SIREN:         r.SIREN,
		Name:          firstNonEmpty(r.NomRaisonSociale, r.NomComplet),
		DirectoryName: r.NomComplet,
		NAF:           firstNonEmpty(r.ActivitePrincipale, r.Siege.ActivitePrincipale),
		SizeBand:      firstNonEmpty(string(r.TrancheEffectif), string(r.Siege.TrancheEffectif)),
		Headquarters:  true,
		Source:        source,
	}
}

// api.insee.fr SIRENE /siret

type inseeResponse struct {
	Etablissements []inseeEtablissement `json:"etablissements"`
}

type inseeEtablissement struct {
	SIREN       string `json:"siren"`
	UniteLegale struct {
		Denomination       string     `json:"denominationUniteLegale"`
		Nom                string     `json:"nomUniteLegale"`
		ActivitePrincipale string     `json:"activitePrincipaleUniteLegale"`
		TrancheEffectifs   flexString `json:"trancheEffectifsUniteLegale"`
	} `json:"uniteLegale"`
	ActivitePrincipaleEtablissement string     `json:"activitePrincipaleEtablissement"`
	TrancheEffectifsEtablissement   flexString `json:"trancheEffectifsEtablissement"`
	EtablissementSiege              flexBool   `json:"etablissementSiege"`
}

func (e inseeEtablissement) toRaw(source string) model.RawEstablishment {
	ul := e.UniteLegale
	return model.RawEstablishment{
		SIREN:        e.SIREN,
		Name:         firstNonEmpty(ul.Denomination, ul.Nom),
		NAF:          firstNonEmpty(ul.ActivitePrincipale, e.ActivitePrincipaleEtablissement),
		SizeBand:     firstNonEmpty(string(ul.TrancheEffectifs), string(e.TrancheEffectifsEtablissement)),
		Headquarters: bool(e.EtablissementSiege),
		Source:       source,
	}
}

// entreprise.data.gouv.fr SIRENE v3

type openDataResponse struct {
	Etablissements []openEtablissement `json:"etablissements"`
}

type openEtablissement struct {
	SIREN       string `json:"siren"`
	UniteLegale struct {
		Denomination        string `json:"denomination"`
		DenominationUsuelle string `json:"denomination_usuelle"`
	} `json:"unite_legale"`
	NomRaisonSociale   string     `json:"nom_raison_sociale"`
	ActivitePrincipale string     `json:"activite_principale"`
	TrancheEffectif    flexString `json:"tranche_effectif_salarie"`
	EtablissementSiege flexBool   `json:"etablissement_siege"`
}

func (e openEtablissement) toRaw(source string) model.RawEstablishment {
	return model.RawEstablishment{
		SIREN:        e.SIREN,
		Name:         firstNonEmpty(e.UniteLegale.Denomination, e.UniteLegale.DenominationUsuelle, e.NomRaisonSociale),
		NAF:          e.ActivitePrincipale,
		SizeBand:     string(e.TrancheEffectif),
		Headquarters: bool(e.EtablissementSiege),
		Source:       source,
	}
}

type enterpriseResponse struct {
	Entreprise struct {
		SiteWeb string `json:"site_web"`
		Website string `json:"website"`
	} `json:"entreprise"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
