package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/esn-finder/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS runs`).WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), model.RunParams{NAFCodes: []string{"62.02A"}})
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status = \$1, stats = \$2`).
		WithArgs("failed", pgxmock.AnyArg(), pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "missing", model.RunStatusFailed, &model.RunStats{Error: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	params, _ := json.Marshal(model.RunParams{MaxPages: 5})
	stats, _ := json.Marshal(model.RunStats{Processed: 4})

	mock.ExpectQuery(`SELECT id, params, status, stats, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "params", "status", "stats", "created_at", "updated_at"}).
			AddRow("run-1", params, "complete", stats, now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 5, run.Params.MaxPages)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	require.NotNil(t, run.Stats)
	assert.Equal(t, 4, run.Stats.Processed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, params, status, stats, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_DefaultLimit(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()
	params, _ := json.Marshal(model.RunParams{})
	stats, _ := json.Marshal(model.RunStats{})

	mock.ExpectQuery(`FROM runs\s+ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(DefaultListLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id", "params", "status", "stats", "created_at", "updated_at"}).
			AddRow("a", params, "complete", stats, now, now).
			AddRow("b", params, "failed", stats, now, now))

	runs, err := s.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, model.RunStatusFailed, runs[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveCandidates(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM run_candidates WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"run_candidates"}, candidateColumns).WillReturnResult(2)
	mock.ExpectCommit()

	err := s.SaveCandidates(context.Background(), "run-1", []model.Candidate{
		{SIREN: "1", Score: 3},
		{SIREN: "2", Score: 9},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveCandidates_CopyErrorRollsBack(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM run_candidates`).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"run_candidates"}, candidateColumns).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := s.SaveCandidates(context.Background(), "run-1", []model.Candidate{{SIREN: "1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy candidates")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListCandidates(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	payload, _ := json.Marshal(model.Candidate{SIREN: "9", Score: 11})

	mock.ExpectQuery(`SELECT payload FROM run_candidates WHERE run_id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := s.ListCandidates(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 11, got[0].Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedDomain_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT siren, domain, source, resolved_at, expires_at FROM domain_cache`).
		WithArgs("123").
		WillReturnError(pgx.ErrNoRows)

	cd, err := s.GetCachedDomain(context.Background(), "123")
	require.NoError(t, err)
	assert.Nil(t, cd)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedDomain(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM domain_cache`).
		WithArgs("123").
		WillReturnRows(pgxmock.NewRows([]string{"siren", "domain", "source", "resolved_at", "expires_at"}).
			AddRow("123", "acme.fr", "serpapi", now, now.Add(time.Hour)))

	cd, err := s.GetCachedDomain(context.Background(), "123")
	require.NoError(t, err)
	require.NotNil(t, cd)
	assert.Equal(t, "acme.fr", cd.Domain)
	assert.Equal(t, model.DomainSourceSerpAPI, cd.Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetCachedDomain_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT \(siren\) DO UPDATE`).
		WithArgs("123", "acme.fr", "guess", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SetCachedDomain(context.Background(), "123", "acme.fr", model.DomainSourceGuess, time.Hour))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Close(t *testing.T) {
	called := false
	s := &PostgresStore{closeFn: func() { called = true }}
	require.NoError(t, s.Close())
	assert.True(t, called)
}
