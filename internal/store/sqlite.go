package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/esn-finder/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	params     TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	stats      TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS run_candidates (
	run_id         TEXT NOT NULL REFERENCES runs(id),
	siren          TEXT NOT NULL,
	name           TEXT NOT NULL DEFAULT '',
	directory_name TEXT NOT NULL DEFAULT '',
	naf            TEXT NOT NULL DEFAULT '',
	size_band      TEXT NOT NULL DEFAULT '',
	domain         TEXT NOT NULL DEFAULT '',
	domain_source  TEXT NOT NULL DEFAULT '',
	score          INTEGER NOT NULL,
	pertinence     INTEGER NOT NULL,
	qualifies      BOOLEAN NOT NULL,
	payload        TEXT NOT NULL,
	PRIMARY KEY (run_id, siren)
);

CREATE TABLE IF NOT EXISTS domain_cache (
	siren       TEXT PRIMARY KEY,
	domain      TEXT NOT NULL,
	source      TEXT NOT NULL,
	resolved_at DATETIME NOT NULL,
	expires_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_run_candidates_score ON run_candidates(run_id, score DESC);
CREATE INDEX IF NOT EXISTS idx_domain_cache_expires_at ON domain_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, params model.RunParams) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal params")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, params, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(paramsJSON), string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Params:    params,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, stats *model.RunStats) error {
	var statsJSON any
	if stats != nil {
		b, err := json.Marshal(stats)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal stats")
		}
		statsJSON = string(b)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, stats = ?, updated_at = ? WHERE id = ?`,
		string(status), statsJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, params, status, stats, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanSQLiteRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Errorf("sqlite: run not found: %s", runID)
	}
	return r, err
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, params, status, stats, created_at, updated_at FROM runs
		 ORDER BY created_at DESC LIMIT ?`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// SaveCandidates replaces the stored candidates of runID.
func (s *SQLiteStore) SaveCandidates(ctx context.Context, runID string, cands []model.Candidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_candidates WHERE run_id = ?`, runID); err != nil {
		return eris.Wrapf(err, "sqlite: clear candidates for run %s", runID)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(candidateColumns)), ", ")
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_candidates (`+strings.Join(candidateColumns, ", ")+`) VALUES (`+placeholders+`)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare candidate insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, c := range cands {
		row, err := candidateRow(runID, c)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return eris.Wrapf(err, "sqlite: insert candidate %s", c.SIREN)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit candidates")
}

// ListCandidates returns the candidates of runID, best score first.
func (s *SQLiteStore) ListCandidates(ctx context.Context, runID string) ([]model.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM run_candidates WHERE run_id = ? ORDER BY score DESC, rowid ASC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list candidates")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Candidate
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan candidate")
		}
		c, err := decodeCandidate(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list candidates iterate")
}

func (s *SQLiteStore) GetCachedDomain(ctx context.Context, siren string) (*model.CachedDomain, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT siren, domain, source, resolved_at, expires_at FROM domain_cache
		 WHERE siren = ? AND expires_at > ?`,
		siren, time.Now().UTC(),
	)

	var cd model.CachedDomain
	err := row.Scan(&cd.SIREN, &cd.Domain, &cd.Source, &cd.ResolvedAt, &cd.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached domain")
	}
	return &cd, nil
}

func (s *SQLiteStore) SetCachedDomain(ctx context.Context, siren, domain string, source model.DomainSource, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO domain_cache (siren, domain, source, resolved_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(siren) DO UPDATE SET domain = excluded.domain, source = excluded.source,
		 resolved_at = excluded.resolved_at, expires_at = excluded.expires_at`,
		siren, domain, string(source), now, now.Add(ttl),
	)
	return eris.Wrapf(err, "sqlite: set cached domain %s", siren)
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func scanSQLiteRun(row scannable) (*model.Run, error) {
	var r model.Run
	var params, stats []byte
	if err := scanRunColumns(row, &params, &stats, &r); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if err := decodeRun(&r, params, stats); err != nil {
		return nil, err
	}
	return &r, nil
}
