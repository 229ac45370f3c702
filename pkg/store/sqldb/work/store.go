package work

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fleet-tools/work-ledger/pkg/models/domain"
	"github.com/fleet-tools/work-ledger/pkg/models/store"
	"github.com/fleet-tools/work-ledger/pkg/store/sqldb"
)

// ErrNotFound reports an operation on a work record id that does not exist.
var ErrNotFound = errors.New("work record not found")

// Store is the operational CRUD surface over work_records; the report
// engine reads the same table through its own translator.
type Store struct {
	db      *sql.DB
	dialect sqldb.Dialect
}

func NewStore(db *sql.DB, dialect sqldb.Dialect) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) Insert(ctx context.Context, rec store.WorkRecord) (int64, error) {
	if s.dialect == sqldb.DialectPostgres {
		query := `
			INSERT INTO work_records (work_date, vehicle_id, rate_config_id, location_id, employee_id,
				quantity, total_revenue, fuel_cost, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING id`
		var id int64
		err := s.db.QueryRowContext(ctx, query,
			rec.WorkDate, rec.VehicleID, rec.RateConfigID, rec.LocationID, rec.EmployeeID,
			rec.Quantity, rec.TotalRevenue, rec.FuelCost, rec.Notes).Scan(&id)
		if err != nil {
			return 0, &domain.DataAccessError{Op: "work record insert", Err: err}
		}
		return id, nil
	}

	query := `
		INSERT INTO work_records (work_date, vehicle_id, rate_config_id, location_id, employee_id,
			quantity, total_revenue, fuel_cost, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := s.db.ExecContext(ctx, query,
		rec.WorkDate, rec.VehicleID, rec.RateConfigID, rec.LocationID, rec.EmployeeID,
		rec.Quantity, rec.TotalRevenue, rec.FuelCost, rec.Notes)
	if err != nil {
		return 0, &domain.DataAccessError{Op: "work record insert", Err: err}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, &domain.DataAccessError{Op: "work record insert", Err: err}
	}
	return id, nil
}

func (s *Store) Update(ctx context.Context, rec store.WorkRecord) error {
	query := fmt.Sprintf(`
		UPDATE work_records
		SET work_date = %s, vehicle_id = %s, rate_config_id = %s, location_id = %s,
			employee_id = %s, quantity = %s, total_revenue = %s, fuel_cost = %s, notes = %s
		WHERE id = %s`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3),
		s.dialect.Placeholder(4), s.dialect.Placeholder(5), s.dialect.Placeholder(6),
		s.dialect.Placeholder(7), s.dialect.Placeholder(8), s.dialect.Placeholder(9),
		s.dialect.Placeholder(10))

	res, err := s.db.ExecContext(ctx, query,
		rec.WorkDate, rec.VehicleID, rec.RateConfigID, rec.LocationID, rec.EmployeeID,
		rec.Quantity, rec.TotalRevenue, rec.FuelCost, rec.Notes, rec.ID)
	if err != nil {
		return &domain.DataAccessError{Op: "work record update", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.DataAccessError{Op: "work record update", Err: err}
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`DELETE FROM work_records WHERE id = %s`, s.dialect.Placeholder(1))
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return &domain.DataAccessError{Op: "work record delete", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.DataAccessError{Op: "work record delete", Err: err}
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id int64) (store.WorkRecord, error) {
	query := fmt.Sprintf(`
		SELECT id, work_date, vehicle_id, rate_config_id, location_id, employee_id,
			quantity, total_revenue, fuel_cost, notes
		FROM work_records WHERE id = %s`, s.dialect.Placeholder(1))

	var rec store.WorkRecord
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.WorkDate, &rec.VehicleID, &rec.RateConfigID, &rec.LocationID,
		&rec.EmployeeID, &rec.Quantity, &rec.TotalRevenue, &rec.FuelCost, &rec.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return store.WorkRecord{}, ErrNotFound
	}
	if err != nil {
		return store.WorkRecord{}, &domain.DataAccessError{Op: "work record lookup", Err: err}
	}
	return rec, nil
}

// List returns the most recent records, newest work date first, capped by
// limit (0 means a default page of 100).
func (s *Store) List(ctx context.Context, limit int) ([]store.WorkRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
		SELECT id, work_date, vehicle_id, rate_config_id, location_id, employee_id,
			quantity, total_revenue, fuel_cost, notes
		FROM work_records
		ORDER BY work_date DESC, id ASC
		LIMIT %s`, s.dialect.Placeholder(1))

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, &domain.DataAccessError{Op: "work record list", Err: err}
	}
	defer rows.Close()

	records := make([]store.WorkRecord, 0)
	for rows.Next() {
		var rec store.WorkRecord
		if err := rows.Scan(&rec.ID, &rec.WorkDate, &rec.VehicleID, &rec.RateConfigID,
			&rec.LocationID, &rec.EmployeeID, &rec.Quantity, &rec.TotalRevenue,
			&rec.FuelCost, &rec.Notes); err != nil {
			return nil, &domain.DataAccessError{Op: "work record list", Err: err}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.DataAccessError{Op: "work record list", Err: err}
	}
	return records, nil
}
