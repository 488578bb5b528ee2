// Package store persists the run ledger, scored candidates and the
// resolved-domain cache.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/esn-finder/internal/model"
)

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 20

// Store defines the persistence interface for discovery runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, params model.RunParams) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, stats *model.RunStats) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Candidates
	SaveCandidates(ctx context.Context, runID string, cands []model.Candidate) error
	ListCandidates(ctx context.Context, runID string) ([]model.Candidate, error)

	// Domain cache
	GetCachedDomain(ctx context.Context, siren string) (*model.CachedDomain, error)
	SetCachedDomain(ctx context.Context, siren, domain string, source model.DomainSource, ttl time.Duration) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store for driver: "sqlite", "postgres", or "" for none.
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "":
		return nil, nil
	case "sqlite":
		st, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := NewPostgres(ctx, dsn, nil)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

func listLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

// candidateColumns is the column order shared by both backends.
var candidateColumns = []string{
	"run_id", "siren", "name", "directory_name", "naf", "size_band",
	"domain", "domain_source", "score", "pertinence", "qualifies", "payload",
}

// candidateRow flattens c for insertion. The full row is kept as JSON in
// payload; the other columns exist for querying.
func candidateRow(runID string, c model.Candidate) ([]any, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, eris.Wrapf(err, "store: marshal candidate %s", c.SIREN)
	}
	return []any{
		runID, c.SIREN, c.Name, c.DirectoryName, c.NAF, c.SizeBand,
		c.Domain, string(c.DomainSource), c.Score, c.PertinenceScore, c.Qualifies, string(payload),
	}, nil
}

func decodeCandidate(payload []byte) (model.Candidate, error) {
	var c model.Candidate
	if err := json.Unmarshal(payload, &c); err != nil {
		return c, eris.Wrap(err, "store: unmarshal candidate")
	}
	return c, nil
}

type scannable interface {
	Scan(dest ...any) error
}

// scanRunColumns reads id, params, status, stats, created_at, updated_at.
func scanRunColumns(row scannable, params *[]byte, stats *[]byte, r *model.Run) error {
	return row.Scan(&r.ID, params, &r.Status, stats, &r.CreatedAt, &r.UpdatedAt)
}

func decodeRun(r *model.Run, params, stats []byte) error {
	if err := json.Unmarshal(params, &r.Params); err != nil {
		return eris.Wrap(err, "store: unmarshal run params")
	}
	if len(stats) > 0 {
		r.Stats = &model.RunStats{}
		if err := json.Unmarshal(stats, r.Stats); err != nil {
			return eris.Wrap(err, "store: unmarshal run stats")
		}
	}
	return nil
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
