package template

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fleet-tools/work-ledger/pkg/models/domain"
	"github.com/fleet-tools/work-ledger/pkg/models/store"
	"github.com/fleet-tools/work-ledger/pkg/store/sqldb"
)

// ErrNotFound reports a lookup for a template id that does not exist.
var ErrNotFound = errors.New("report template not found")

// Store persists report templates as keyed records with the configuration
// held as an opaque blob.
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

func (s *Store) Insert(ctx context.Context, t store.ReportTemplate) error {
	query := fmt.Sprintf(`
		INSERT INTO report_templates (id, name, description, report_type, config, created_by, created_at, is_system)
		VALUES (%s, %s, %s, %s, %s, %s, %s, %s)`,
		s.dialect.Placeholder(1), s.dialect.Placeholder(2), s.dialect.Placeholder(3),
		s.dialect.Placeholder(4), s.dialect.Placeholder(5), s.dialect.Placeholder(6),
		s.dialect.Placeholder(7), s.dialect.Placeholder(8))

	_, err := s.db.ExecContext(ctx, query,
		t.ID, t.Name, t.Description, t.ReportType, string(t.Config), t.CreatedBy, t.CreatedAt, t.IsSystem)
	if err != nil {
		return &domain.DataAccessError{Op: "template insert", Err: err}
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (store.ReportTemplate, error) {
	query := fmt.Sprintf(`
		SELECT id, name, description, report_type, config, created_by, created_at, is_system
		FROM report_templates WHERE id = %s`, s.dialect.Placeholder(1))

	var t store.ReportTemplate
	var config string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID, &t.Name, &t.Description, &t.ReportType, &config, &t.CreatedBy, &t.CreatedAt, &t.IsSystem)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ReportTemplate{}, ErrNotFound
	}
	if err != nil {
		return store.ReportTemplate{}, &domain.DataAccessError{Op: "template lookup", Err: err}
	}
	t.Config = []byte(config)
	return t, nil
}

func (s *Store) List(ctx context.Context) ([]store.ReportTemplate, error) {
	query := `
		SELECT id, name, description, report_type, config, created_by, created_at, is_system
		FROM report_templates ORDER BY created_at DESC, id ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &domain.DataAccessError{Op: "template list", Err: err}
	}
	defer rows.Close()

	templates := make([]store.ReportTemplate, 0)
	for rows.Next() {
		var t store.ReportTemplate
		var config string
		if err := rows.Scan(&t.ID, &t.Name, &t.Description, &t.ReportType, &config,
			&t.CreatedBy, &t.CreatedAt, &t.IsSystem); err != nil {
			return nil, &domain.DataAccessError{Op: "template list", Err: err}
		}
		t.Config = []byte(config)
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.DataAccessError{Op: "template list", Err: err}
	}
	return templates, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM report_templates WHERE id = %s`, s.dialect.Placeholder(1))
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return &domain.DataAccessError{Op: "template delete", Err: err}
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return &domain.DataAccessError{Op: "template delete", Err: err}
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
