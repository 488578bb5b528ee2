// Package export writes ranked candidates to their destinations: CSV files,
// an XLSX workbook and the Notion lead database.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/esn-finder/internal/model"
)

// DefaultRelevantName is the file written beside the ranked CSV holding the
// qualifying subset.
const DefaultRelevantName = "esn_relevant_for_clustor.csv"

// Sink receives the ranked rows and the qualifying subset.
type Sink interface {
	Write(ctx context.Context, ranked, relevant []model.Candidate) error
}

// PartialWriteError reports that the ranked file was written but the
// relevant subset was not.
type PartialWriteError struct {
	Kept string
	Err  error
}

func (e *PartialWriteError) Error() string {
	return "export: ranked file " + e.Kept + " kept, relevant subset failed: " + e.Err.Error()
}

func (e *PartialWriteError) Unwrap() error { return e.Err }

// IsPartial reports whether err is a PartialWriteError.
func IsPartial(err error) bool {
	var pe *PartialWriteError
	return errors.As(err, &pe)
}

// CSVSink writes the ranked file and the relevant subset beside it.
type CSVSink struct {
	path         string
	relevantName string
}

// NewCSVSink creates a sink writing to path. An empty relevantName uses
// DefaultRelevantName.
func NewCSVSink(path, relevantName string) *CSVSink {
	if relevantName == "" {
		relevantName = DefaultRelevantName
	}
	return &CSVSink{path: path, relevantName: relevantName}
}

// Path returns the ranked file path.
func (s *CSVSink) Path() string { return s.path }

// RelevantPath returns the path of the qualifying subset.
func (s *CSVSink) RelevantPath() string {
	return filepath.Join(filepath.Dir(s.path), s.relevantName)
}

// Write creates the parent directory, then writes both files.
func (s *CSVSink) Write(_ context.Context, ranked, relevant []model.Candidate) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return eris.Wrap(err, "export: create output dir")
	}
	if err := writeCSV(s.path, ranked); err != nil {
		return eris.Wrap(err, "export: write ranked csv")
	}
	zap.L().Info("export: saved ranked csv", zap.String("path", s.path), zap.Int("rows", len(ranked)))

	rel := s.RelevantPath()
	if err := writeCSV(rel, relevant); err != nil {
		return &PartialWriteError{Kept: s.path, Err: err}
	}
	zap.L().Info("export: saved relevant subset", zap.String("path", rel), zap.Int("rows", len(relevant)))
	return nil
}

// writeCSV encodes cands with a header row. An empty slice still gets the
// header.
func writeCSV(path string, cands []model.Candidate) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = eris.Wrapf(cerr, "export: close %s", path)
		}
	}()

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)
	if len(cands) == 0 {
		if err := enc.EncodeHeader(model.Candidate{}); err != nil {
			return eris.Wrap(err, "export: encode header")
		}
	} else if err := enc.Encode(cands); err != nil {
		return eris.Wrap(err, "export: encode rows")
	}
	w.Flush()
	return eris.Wrap(w.Error(), "export: flush csv")
}

// ReadCSV decodes a file written by CSVSink.
func ReadCSV(path string) ([]model.Candidate, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: read %s", path)
	}
	var cands []model.Candidate
	if err := csvutil.Unmarshal(b, &cands); err != nil {
		return nil, eris.Wrap(err, "export: decode csv")
	}
	return cands, nil
}
