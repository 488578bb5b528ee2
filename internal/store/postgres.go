package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/esn-finder/internal/db"
	"github.com/sells-group/esn-finder/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	params     JSONB NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	stats      JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS run_candidates (
	run_id         TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
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
	payload        JSONB NOT NULL,
	PRIMARY KEY (run_id, siren)
);

CREATE TABLE IF NOT EXISTS domain_cache (
	siren       TEXT PRIMARY KEY,
	domain      TEXT NOT NULL,
	source      TEXT NOT NULL,
	resolved_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_run_candidates_score ON run_candidates(run_id, score DESC);
CREATE INDEX IF NOT EXISTS idx_domain_cache_expires_at ON domain_cache(expires_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, params model.RunParams) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal params")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, params, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		id, paramsJSON, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Params:    params,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, stats *model.RunStats) error {
	var statsJSON []byte
	if stats != nil {
		b, err := json.Marshal(stats)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal stats")
		}
		statsJSON = b
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, stats = $2, updated_at = $3 WHERE id = $4`,
		string(status), statsJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, params, status, stats, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPostgresRun(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Errorf("postgres: get run: not found: %s", runID)
		}
		return nil, err
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, params, status, stats, created_at, updated_at FROM runs
		 ORDER BY created_at DESC LIMIT $1`,
		listLimit(limit),
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// SaveCandidates replaces the stored candidates of runID using COPY.
func (s *PostgresStore) SaveCandidates(ctx context.Context, runID string, cands []model.Candidate) error {
	rows := make([][]any, 0, len(cands))
	for _, c := range cands {
		row, err := candidateRow(runID, c)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM run_candidates WHERE run_id = $1`, runID); err != nil {
			return eris.Wrapf(err, "postgres: clear candidates for run %s", runID)
		}
		if _, err := db.CopyFrom(ctx, tx, "run_candidates", candidateColumns, rows); err != nil {
			return eris.Wrap(err, "postgres: copy candidates")
		}
		return nil
	})
}

// ListCandidates returns the candidates of runID, best score first.
func (s *PostgresStore) ListCandidates(ctx context.Context, runID string) ([]model.Candidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM run_candidates WHERE run_id = $1 ORDER BY score DESC, siren ASC`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list candidates")
	}
	defer rows.Close()

	var out []model.Candidate
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		c, err := decodeCandidate(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list candidates iterate")
}

func (s *PostgresStore) GetCachedDomain(ctx context.Context, siren string) (*model.CachedDomain, error) {
	var cd model.CachedDomain
	var source string
	err := s.pool.QueryRow(ctx,
		`SELECT siren, domain, source, resolved_at, expires_at FROM domain_cache
		 WHERE siren = $1 AND expires_at > now()`,
		siren,
	).Scan(&cd.SIREN, &cd.Domain, &source, &cd.ResolvedAt, &cd.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: get cached domain")
	}
	cd.Source = model.DomainSource(source)
	return &cd, nil
}

func (s *PostgresStore) SetCachedDomain(ctx context.Context, siren, domain string, source model.DomainSource, ttl time.Duration) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO domain_cache (siren, domain, source, resolved_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (siren) DO UPDATE SET domain = EXCLUDED.domain, source = EXCLUDED.source,
		 resolved_at = EXCLUDED.resolved_at, expires_at = EXCLUDED.expires_at`,
		siren, domain, string(source), now, now.Add(ttl),
	)
	return eris.Wrapf(err, "postgres: set cached domain %s", siren)
}

func scanPostgresRun(row scannable) (*model.Run, error) {
	var r model.Run
	var params, stats []byte
	var status string
	if err := row.Scan(&r.ID, &params, &status, &stats, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, eris.Wrap(err, "postgres: scan run")
	}
	r.Status = model.RunStatus(status)
	if err := decodeRun(&r, params, stats); err != nil {
		return nil, err
	}
	return &r, nil
}
