package export

import (
	"context"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/esn-finder/internal/model"
)

// Workbook sheet names.
const (
	SheetRanked   = "ranked"
	SheetRelevant = "relevant"
)

// XLSXSink writes both row sets to one workbook.
type XLSXSink struct {
	path string
}

// NewXLSXSink creates a workbook sink writing to path.
func NewXLSXSink(path string) *XLSXSink {
	return &XLSXSink{path: path}
}

// Write builds the workbook in memory and saves it.
func (s *XLSXSink) Write(_ context.Context, ranked, relevant []model.Candidate) error {
	header, err := csvutil.Header(model.Candidate{}, "csv")
	if err != nil {
		return eris.Wrap(err, "xlsx: header")
	}

	f := xlsx.NewFile()
	for _, sh := range []struct {
		name  string
		cands []model.Candidate
	}{
		{SheetRanked, ranked},
		{SheetRelevant, relevant},
	} {
		sheet, err := f.AddSheet(sh.name)
		if err != nil {
			return eris.Wrapf(err, "xlsx: add sheet %s", sh.name)
		}
		if err := fillSheet(sheet, header, sh.cands); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return eris.Wrap(err, "xlsx: create output dir")
	}
	if err := f.Save(s.path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", s.path)
	}
	zap.L().Info("export: saved workbook", zap.String("path", s.path), zap.Int("rows", len(ranked)))
	return nil
}

func fillSheet(sheet *xlsx.Sheet, header []string, cands []model.Candidate) error {
	row := sheet.AddRow()
	for _, h := range header {
		row.AddCell().SetString(h)
	}
	for _, c := range cands {
		values, err := cells(c)
		if err != nil {
			return err
		}
		row := sheet.AddRow()
		for _, v := range values {
			cell := row.AddCell()
			switch x := v.(type) {
			case int:
				cell.SetInt(x)
			case bool:
				cell.SetBool(x)
			case string:
				cell.SetString(x)
			}
		}
	}
	return nil
}

// cells lists a candidate's values in the same order as its csv header.
func cells(c model.Candidate) ([]any, error) {
	signals, err := c.Signals.MarshalText()
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: signals for %s", c.SIREN)
	}
	return []any{
		c.SIREN,
		c.Name,
		c.DirectoryName,
		c.NAF,
		c.SizeBand,
		c.Domain,
		string(c.DomainSource),
		c.Score,
		c.NAFMatch,
		c.NameKeywordFound,
		c.SiteKeywordFound,
		c.JobPostingPresent,
		c.SizeInWindow,
		c.PertinenceScore,
		c.Qualifies,
		string(signals),
	}, nil
}
