package notion

import (
	"context"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// Lead database property names.
const (
	PropName       = "Name"
	PropSIREN      = "SIREN"
	PropNAF        = "NAF"
	PropSizeBand   = "Effectif"
	PropSite       = "Site"
	PropScore      = "Score"
	PropPertinence = "Pertinence"
	PropSignals    = "Signals"
	PropStatus     = "Status"
)

// StatusNew is set on leads created by a run. Existing leads keep whatever
// status a human gave them.
const StatusNew = "New"

// Lead is one qualifying company as stored in Notion.
type Lead struct {
	SIREN      string
	Name       string
	NAF        string
	SizeBand   string
	Site       string
	Score      int
	Pertinence int
	Signals    string
}

// UpsertLead updates the page for l.SIREN or creates it. It reports whether
// a new page was created.
func UpsertLead(ctx context.Context, c Client, dbID string, l Lead) (bool, error) {
	if strings.TrimSpace(l.SIREN) == "" {
		return false, eris.New("notion: lead without siren")
	}
	existing, err := c.FindLeadPage(ctx, dbID, l.SIREN)
	if err != nil {
		return false, err
	}

	props := LeadProperties(l)
	if existing != nil {
		if _, err := c.UpdateLead(ctx, string(existing.ID), props); err != nil {
			return false, eris.Wrapf(err, "notion: update lead %s", l.SIREN)
		}
		return false, nil
	}

	props[PropStatus] = notionapi.StatusProperty{
		Type:   notionapi.PropertyTypeStatus,
		Status: notionapi.Status{Name: StatusNew},
	}
	if _, err := c.CreateLead(ctx, dbID, props); err != nil {
		return false, eris.Wrapf(err, "notion: create lead %s", l.SIREN)
	}
	return true, nil
}

// LeadProperties maps a lead onto the database columns. Site is stored as a
// URL with an https scheme; an empty site is left unset.
func LeadProperties(l Lead) notionapi.Properties {
	props := notionapi.Properties{
		PropName: notionapi.TitleProperty{
			Type:  notionapi.PropertyTypeTitle,
			Title: richText(l.Name),
		},
		PropSIREN:    textProp(l.SIREN),
		PropNAF:      textProp(l.NAF),
		PropSizeBand: textProp(l.SizeBand),
		PropSignals:  textProp(l.Signals),
		PropScore: notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(l.Score),
		},
		PropPertinence: notionapi.NumberProperty{
			Type:   notionapi.PropertyTypeNumber,
			Number: float64(l.Pertinence),
		},
	}
	if site := normalizeURL(l.Site); site != "" {
		props[PropSite] = notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  site,
		}
	}
	return props
}

func textProp(s string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type:     notionapi.PropertyTypeRichText,
		RichText: richText(s),
	}
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: s}},
	}
}

// normalizeURL ensures a domain has an https:// scheme prefix.
func normalizeURL(domain string) string {
	domain = strings.TrimSpace(domain)
	if domain == "" {
		return ""
	}
	if !strings.Contains(domain, "://") {
		return "https://" + domain
	}
	return domain
}
