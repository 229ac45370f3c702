package report

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/fleet-tools/work-ledger/pkg/models/domain"
	"github.com/fleet-tools/work-ledger/pkg/models/store"
	reportsvc "github.com/fleet-tools/work-ledger/pkg/services/report"
	"github.com/fleet-tools/work-ledger/pkg/store/sqldb"
	workstore "github.com/fleet-tools/work-ledger/pkg/store/sqldb/work"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sql.DB
	reg   *reportsvc.Registry
	store *Store
	work  *workstore.Store
}

func setupFixture(t *testing.T) *fixture {
	db, dialect, err := sqldb.NewDB(sqldb.Settings{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	reg := reportsvc.NewRegistry()
	s, err := NewStore(db, dialect, reg)
	require.NoError(t, err)
	ws, err := workstore.NewStore(db, dialect)
	require.NoError(t, err)

	return &fixture{db: db, reg: reg, store: s, work: ws}
}

func (f *fixture) seedLookups(t *testing.T) {
	t.Helper()
	for _, q := range []string{
		`INSERT INTO clients (id, name) VALUES (1, 'Northline Logistics'), (2, 'Harbor Build Co')`,
		`INSERT INTO vehicles (id, number, model) VALUES (1, 'TRK-101', 'Volvo FMX'), (2, 'TRK-207', 'Scania P410')`,
		`INSERT INTO rate_configs (id, client_id, unit_price) VALUES (1, 1, 85.0), (2, 2, 92.5)`,
	} {
		_, err := f.db.Exec(q)
		require.NoError(t, err)
	}
}

func (f *fixture) addRecord(t *testing.T, date time.Time, vehicleID, rateConfigID int64, revenue *float64) int64 {
	t.Helper()
	id, err := f.work.Insert(context.Background(), store.WorkRecord{
		WorkDate:     date,
		VehicleID:    &vehicleID,
		RateConfigID: &rateConfigID,
		TotalRevenue: revenue,
	})
	require.NoError(t, err)
	return id
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func f64(v float64) *float64 { return &v }

func TestStore_Execute_DateRangeScenario(t *testing.T) {
	f := setupFixture(t)
	f.seedLookups(t)
	ctx := context.Background()

	// 3 records inside the week, 2 outside.
	f.addRecord(t, day(2024, 1, 2), 1, 1, f64(100))
	f.addRecord(t, day(2024, 1, 5), 2, 2, f64(200))
	f.addRecord(t, day(2024, 1, 7), 1, 2, f64(300))
	f.addRecord(t, day(2023, 12, 28), 1, 1, f64(400))
	f.addRecord(t, day(2024, 1, 8), 2, 1, f64(500))

	cfg := scenarioConfig(t, f.reg)

	rows, err := f.store.Execute(ctx, cfg)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Sorted by work_date descending; the 2024-01-07 boundary is inclusive.
	assert.Equal(t, day(2024, 1, 7), rows[0]["work_date"].Date)
	assert.Equal(t, day(2024, 1, 5), rows[1]["work_date"].Date)
	assert.Equal(t, day(2024, 1, 2), rows[2]["work_date"].Date)
	assert.Equal(t, "Harbor Build Co", rows[0]["client_name"].Str)
	assert.Equal(t, "TRK-101", rows[0]["vehicle_number"].Str)
}

func TestStore_Execute_Deterministic(t *testing.T) {
	f := setupFixture(t)
	f.seedLookups(t)
	ctx := context.Background()

	// Three records share a work date; ordering must still be stable.
	for i := 0; i < 3; i++ {
		f.addRecord(t, day(2024, 2, 1), 1, 1, f64(float64(100*(i+1))))
	}
	f.addRecord(t, day(2024, 2, 3), 2, 2, f64(50))

	cfg, err := reportsvc.Default(f.reg, domain.ReportWork)
	require.NoError(t, err)
	cfg, err = reportsvc.AddColumn(f.reg, cfg, "total_revenue")
	require.NoError(t, err)

	first, err := f.store.Execute(ctx, cfg)
	require.NoError(t, err)
	second, err := f.store.Execute(ctx, cfg)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestStore_Execute_ColumnOrderFollowsConfiguration(t *testing.T) {
	f := setupFixture(t)
	f.seedLookups(t)
	ctx := context.Background()
	f.addRecord(t, day(2024, 3, 1), 1, 1, f64(120))

	cfg, err := reportsvc.Default(f.reg, domain.ReportWork)
	require.NoError(t, err)
	// Users may order columns for display; the row must carry them all.
	for _, id := range []domain.ColumnID{"total_revenue", "client_name", "vehicle_number"} {
		cfg, err = reportsvc.AddColumn(f.reg, cfg, id)
		require.NoError(t, err)
	}

	rows, err := f.store.Execute(ctx, cfg)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := rows[0]
	assert.Equal(t, 120.0, row["total_revenue"].Num)
	assert.Equal(t, "Northline Logistics", row["client_name"].Str)
	assert.Equal(t, "TRK-101", row["vehicle_number"].Str)
}

func TestStore_Execute_DerivedColumnYieldsNullCells(t *testing.T) {
	f := setupFixture(t)
	f.seedLookups(t)
	ctx := context.Background()
	f.addRecord(t, day(2024, 3, 1), 1, 1, f64(120))

	cfg, err := reportsvc.Default(f.reg, domain.ReportWork)
	require.NoError(t, err)
	cfg, err = reportsvc.AddColumn(f.reg, cfg, "avg_revenue_per_record")
	require.NoError(t, err)

	rows, err := f.store.Execute(ctx, cfg)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	v, ok := rows[0]["avg_revenue_per_record"]
	require.True(t, ok)
	assert.True(t, v.Null)
}

func TestStore_Execute_EqualsAndNullLabels(t *testing.T) {
	f := setupFixture(t)
	f.seedLookups(t)
	ctx := context.Background()

	f.addRecord(t, day(2024, 4, 1), 1, 1, f64(10))
	// No vehicle: the joined label comes back NULL.
	_, err := f.work.Insert(ctx, store.WorkRecord{WorkDate: day(2024, 4, 2)})
	require.NoError(t, err)

	cfg, err := reportsvc.Default(f.reg, domain.ReportWork)
	require.NoError(t, err)
	cfg, err = reportsvc.AddColumn(f.reg, cfg, "vehicle_number")
	require.NoError(t, err)

	rows, err := f.store.Execute(ctx, cfg)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[0]["vehicle_number"].Null)

	cfg, err = reportsvc.SetFilter(f.reg, cfg, "vehicle_number", domain.OpEquals, "TRK-101")
	require.NoError(t, err)
	rows, err = f.store.Execute(ctx, cfg)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "TRK-101", rows[0]["vehicle_number"].Str)
}
