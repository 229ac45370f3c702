package report

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fleet-tools/work-ledger/pkg/models/domain"
	reportsvc "github.com/fleet-tools/work-ledger/pkg/services/report"
	"github.com/fleet-tools/work-ledger/pkg/store/sqldb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioConfig(t *testing.T, reg *reportsvc.Registry) domain.ReportConfig {
	t.Helper()
	cfg, err := reportsvc.Default(reg, domain.ReportWork)
	require.NoError(t, err)
	cfg, err = reportsvc.AddColumn(reg, cfg, "vehicle_number")
	require.NoError(t, err)
	cfg, err = reportsvc.AddColumn(reg, cfg, "client_name")
	require.NoError(t, err)
	cfg, err = reportsvc.SetFilter(reg, cfg, "work_date", domain.OpBetween, "2024-01-01", "2024-01-07")
	require.NoError(t, err)
	cfg, err = reportsvc.SetSort(reg, cfg, "work_date", domain.SortDesc)
	require.NoError(t, err)
	return cfg
}

func TestStore_Execute_TranslatesConfiguration(t *testing.T) {
	// Given: a sqlmock DB and a three-column configuration with a date range
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := reportsvc.NewRegistry()
	store, err := NewStore(db, sqldb.DialectSQLite, reg)
	require.NoError(t, err)

	cfg := scenarioConfig(t, reg)

	// Joins appear only for columns that need them; the sort carries the
	// stable id tie-break.
	query := regexp.QuoteMeta(
		"SELECT w.id, w.work_date, v.number, c.name FROM work_records w " +
			"LEFT JOIN vehicles v ON v.id = w.vehicle_id " +
			"LEFT JOIN rate_configs rc ON rc.id = w.rate_config_id " +
			"LEFT JOIN clients c ON c.id = rc.client_id " +
			"WHERE w.work_date >= ? AND w.work_date <= ? " +
			"ORDER BY w.work_date DESC, w.id ASC")

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 7, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "work_date", "number", "name"}).
		AddRow(2, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), "TRK-207", "Harbor Build Co").
		AddRow(1, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), "TRK-101", nil)

	mock.ExpectQuery(query).WithArgs(from, to).WillReturnRows(rows)

	// When
	result, err := store.Execute(context.Background(), cfg)

	// Then
	require.NoError(t, err)
	require.Len(t, result, 2)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), result[0]["work_date"].Date)
	assert.Equal(t, "TRK-207", result[0]["vehicle_number"].Str)
	assert.Equal(t, "Harbor Build Co", result[0]["client_name"].Str)
	assert.True(t, result[1]["client_name"].Null, "NULL label must scan to a null value")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Execute_InOperator(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := reportsvc.NewRegistry()
	store, err := NewStore(db, sqldb.DialectSQLite, reg)
	require.NoError(t, err)

	cfg, err := reportsvc.Default(reg, domain.ReportWork)
	require.NoError(t, err)
	cfg, err = reportsvc.AddColumn(reg, cfg, "vehicle_number")
	require.NoError(t, err)
	cfg, err = reportsvc.SetFilter(reg, cfg, "vehicle_number", domain.OpIn, "TRK-101", "TRK-207")
	require.NoError(t, err)

	query := regexp.QuoteMeta(
		"SELECT w.id, w.work_date, v.number FROM work_records w " +
			"LEFT JOIN vehicles v ON v.id = w.vehicle_id " +
			"WHERE v.number IN (?, ?) " +
			"ORDER BY w.work_date DESC, w.id ASC")
	mock.ExpectQuery(query).
		WithArgs("TRK-101", "TRK-207").
		WillReturnRows(sqlmock.NewRows([]string{"id", "work_date", "number"}))

	_, err = store.Execute(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Execute_PostgresPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := reportsvc.NewRegistry()
	store, err := NewStore(db, sqldb.DialectPostgres, reg)
	require.NoError(t, err)

	cfg, err := reportsvc.Default(reg, domain.ReportWork)
	require.NoError(t, err)
	cfg, err = reportsvc.SetFilter(reg, cfg, "work_date", domain.OpBetween, "2024-01-01", "2024-01-07")
	require.NoError(t, err)

	query := regexp.QuoteMeta(
		"SELECT w.id, w.work_date FROM work_records w " +
			"WHERE w.work_date >= $1 AND w.work_date <= $2 " +
			"ORDER BY w.work_date DESC, w.id ASC")
	mock.ExpectQuery(query).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "work_date"}))

	_, err = store.Execute(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Execute_UnknownColumn(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := reportsvc.NewRegistry()
	store, err := NewStore(db, sqldb.DialectSQLite, reg)
	require.NoError(t, err)

	cfg, err := reportsvc.Default(reg, domain.ReportWork)
	require.NoError(t, err)
	cfg.Columns = append(cfg.Columns, "retired_column")

	_, err = store.Execute(context.Background(), cfg)
	var cerr *domain.InvalidConfigurationError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, domain.ColumnID("retired_column"), cerr.Column)
}

func TestStore_Execute_StoreFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	reg := reportsvc.NewRegistry()
	store, err := NewStore(db, sqldb.DialectSQLite, reg)
	require.NoError(t, err)

	cfg, err := reportsvc.Default(reg, domain.ReportWork)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT").WillReturnError(assert.AnError)

	_, err = store.Execute(context.Background(), cfg)
	var derr *domain.DataAccessError
	require.ErrorAs(t, err, &derr)
	assert.ErrorIs(t, err, assert.AnError)
}
