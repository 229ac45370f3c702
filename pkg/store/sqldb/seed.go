package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDemoData loads a small operational data set for local development.
// It is a no-op when work records already exist.
func SeedDemoData(ctx context.Context, db *sql.DB, dialect Dialect) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM work_records").Scan(&count); err != nil {
		return fmt.Errorf("count work records: %w", err)
	}
	if count > 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback()

	seedLookups := []string{
		`INSERT INTO clients (name) VALUES ('Northline Logistics'), ('Harbor Build Co'), ('Civic Works Dept')`,
		`INSERT INTO locations (name) VALUES ('North Yard'), ('Harbor Site'), ('Downtown Depot')`,
		`INSERT INTO employees (name) VALUES ('Dana Reyes'), ('Milo Grant'), ('Priya Shah')`,
		`INSERT INTO vehicles (number, model) VALUES ('TRK-101', 'Volvo FMX'), ('TRK-207', 'Scania P410'), ('EXC-030', 'CAT 320')`,
		`INSERT INTO rate_configs (client_id, unit_price, currency) VALUES (1, 85.0, 'USD'), (2, 92.5, 'USD'), (3, 78.0, 'USD')`,
	}
	for _, q := range seedLookups {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("seed lookups: %w", err)
		}
	}

	day := func(offset int) time.Time {
		base := time.Now().UTC()
		y, m, d := base.AddDate(0, 0, -offset).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}

	insert := fmt.Sprintf(`
		INSERT INTO work_records (work_date, vehicle_id, rate_config_id, location_id, employee_id,
			quantity, total_revenue, fuel_cost, notes)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s, %s)`,
		dialect.Placeholder(1), dialect.Placeholder(2), dialect.Placeholder(3),
		dialect.Placeholder(4), dialect.Placeholder(5), dialect.Placeholder(6),
		dialect.Placeholder(7), dialect.Placeholder(8), dialect.Placeholder(9))

	records := []struct {
		date                         time.Time
		vehicle, rate, location, emp int64
		quantity, revenue, fuel      float64
		notes                        string
	}{
		{day(1), 1, 1, 1, 1, 8.0, 680.0, 95.0, "gravel haul"},
		{day(2), 2, 2, 2, 2, 6.5, 601.25, 88.0, "site clearing"},
		{day(3), 3, 3, 3, 3, 7.0, 546.0, 120.0, "trench work"},
		{day(4), 1, 1, 2, 2, 9.0, 765.0, 102.0, "double shift"},
		{day(6), 2, 3, 1, 1, 5.0, 390.0, 71.0, ""},
	}
	for _, r := range records {
		if _, err := tx.ExecContext(ctx, insert,
			r.date, r.vehicle, r.rate, r.location, r.emp,
			r.quantity, r.revenue, r.fuel, r.notes); err != nil {
			return fmt.Errorf("seed work records: %w", err)
		}
	}

	return tx.Commit()
}
