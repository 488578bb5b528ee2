package export

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esn-finder/internal/model"
	"github.com/sells-group/esn-finder/pkg/notion"
)

// NotionSink upserts the qualifying candidates into a lead database.
type NotionSink struct {
	client notion.Client
	dbID   string
}

// NewNotionSink creates a sink for the database dbID.
func NewNotionSink(client notion.Client, dbID string) *NotionSink {
	return &NotionSink{client: client, dbID: dbID}
}

// Write pushes relevant rows only. It stops at the first failure.
func (s *NotionSink) Write(ctx context.Context, _ []model.Candidate, relevant []model.Candidate) error {
	created, updated := 0, 0
	for _, c := range relevant {
		isNew, err := notion.UpsertLead(ctx, s.client, s.dbID, LeadFor(c))
		if err != nil {
			return eris.Wrapf(err, "export: push lead %s", c.SIREN)
		}
		if isNew {
			created++
		} else {
			updated++
		}
	}
	zap.L().Info("export: pushed leads to notion",
		zap.Int("created", created),
		zap.Int("updated", updated),
	)
	return nil
}

// LeadFor maps a candidate onto a Notion lead.
func LeadFor(c model.Candidate) notion.Lead {
	name := c.Name
	if name == "" {
		name = c.DirectoryName
	}
	signals, _ := c.Signals.MarshalText()
	return notion.Lead{
		SIREN:      c.SIREN,
		Name:       name,
		NAF:        c.NAF,
		SizeBand:   c.SizeBand,
		Site:       c.Domain,
		Score:      c.Score,
		Pertinence: c.PertinenceScore,
		Signals:    string(signals),
	}
}
