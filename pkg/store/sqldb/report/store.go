package report

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fleet-tools/work-ledger/pkg/models/domain"
	reportsvc "github.com/fleet-tools/work-ledger/pkg/services/report"
	"github.com/fleet-tools/work-ledger/pkg/store/sqldb"
	"github.com/rs/zerolog"
)

// relation is one hop of the join graph rooted at work_records. A column's
// source path names the hops it needs; the translator pulls a join in only
// when a selected, filtered or sorted column walks through it.
type relation struct {
	alias  string
	join   string
	parent string // relation that must be joined first
}

const baseAlias = "w"

var relations = map[string]relation{
	"vehicle":     {alias: "v", join: "LEFT JOIN vehicles v ON v.id = w.vehicle_id"},
	"rate_config": {alias: "rc", join: "LEFT JOIN rate_configs rc ON rc.id = w.rate_config_id"},
	"client":      {alias: "c", join: "LEFT JOIN clients c ON c.id = rc.client_id", parent: "rate_config"},
	"location":    {alias: "l", join: "LEFT JOIN locations l ON l.id = w.location_id"},
	"employee":    {alias: "e", join: "LEFT JOIN employees e ON e.id = w.employee_id"},
}

// joinOrder fixes join emission order so identical configurations always
// render identical SQL.
var joinOrder = []string{"vehicle", "rate_config", "client", "location", "employee"}

// Store translates report configurations into SQL and executes them.
type Store struct {
	db       *sql.DB
	dialect  sqldb.Dialect
	registry *reportsvc.Registry
}

func NewStore(db *sql.DB, dialect sqldb.Dialect, registry *reportsvc.Registry) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("column registry is nil")
	}
	return &Store{db: db, dialect: dialect, registry: registry}, nil
}

// Execute runs the configuration against the store and returns one result
// row per matching record, in the configuration's column order. Rows carry
// typed values keyed by column id; derived columns yield null row cells and
// are only filled by the aggregator.
func (s *Store) Execute(ctx context.Context, cfg domain.ReportConfig) ([]domain.ResultRow, error) {
	logger := zerolog.Ctx(ctx)

	query, args, selected, err := s.buildQuery(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("report_type", string(cfg.ReportType)).Msg("executing report query")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.DataAccessError{Op: "report query", Err: err}
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close report query rows")
		}
	}()

	result, err := scanRows(rows, selected)
	if err != nil {
		return nil, &domain.DataAccessError{Op: "report scan", Err: err}
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.DataAccessError{Op: "report query", Err: err}
	}
	return result, nil
}

// buildQuery assembles the SELECT for a configuration: the record id for
// tie-breaking, then one expression per non-derived selected column in
// configured order.
func (s *Store) buildQuery(cfg domain.ReportConfig) (string, []any, []domain.ColumnDef, error) {
	selected := make([]domain.ColumnDef, 0, len(cfg.Columns))
	exprs := make([]string, 0, len(cfg.Columns)+1)
	exprs = append(exprs, baseAlias+".id")
	needed := map[string]bool{}

	for _, id := range cfg.Columns {
		col, ok := s.registry.Column(id)
		if !ok {
			return "", nil, nil, &domain.InvalidConfigurationError{Column: id}
		}
		selected = append(selected, col)
		if col.IsDerived() {
			continue
		}
		expr, joins, err := resolvePath(col)
		if err != nil {
			return "", nil, nil, err
		}
		exprs = append(exprs, expr)
		for _, j := range joins {
			needed[j] = true
		}
	}

	var where []string
	var args []any
	argn := 0
	placeholder := func() string {
		argn++
		return s.dialect.Placeholder(argn)
	}

	for _, p := range cfg.Filters {
		col, ok := s.registry.Column(p.Field)
		if !ok {
			return "", nil, nil, &domain.InvalidConfigurationError{Column: p.Field}
		}
		expr, joins, err := resolvePath(col)
		if err != nil {
			return "", nil, nil, err
		}
		for _, j := range joins {
			needed[j] = true
		}

		switch p.Operator {
		case domain.OpEquals:
			where = append(where, fmt.Sprintf("%s = %s", expr, placeholder()))
			args = append(args, p.Values[0])
		case domain.OpIn:
			marks := make([]string, len(p.Values))
			for i, v := range p.Values {
				marks[i] = placeholder()
				args = append(args, v)
			}
			where = append(where, fmt.Sprintf("%s IN (%s)", expr, strings.Join(marks, ", ")))
		case domain.OpBetween:
			where = append(where, fmt.Sprintf("%s >= %s AND %s <= %s", expr, placeholder(), expr, placeholder()))
			args = append(args, p.Values[0], p.Values[1])
		default:
			return "", nil, nil, &domain.ValidationError{Field: string(p.Field), Reason: fmt.Sprintf("unknown operator %q", p.Operator)}
		}
	}

	sortCol, ok := s.registry.Column(cfg.Sorting.Field)
	if !ok {
		return "", nil, nil, &domain.InvalidConfigurationError{Column: cfg.Sorting.Field}
	}
	sortExpr, sortJoins, err := resolvePath(sortCol)
	if err != nil {
		return "", nil, nil, err
	}
	for _, j := range sortJoins {
		needed[j] = true
	}
	dir := "ASC"
	if cfg.Sorting.Direction == domain.SortDesc {
		dir = "DESC"
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(exprs, ", "))
	b.WriteString(" FROM work_records ")
	b.WriteString(baseAlias)
	for _, name := range joinOrder {
		if needed[name] {
			b.WriteString(" ")
			b.WriteString(relations[name].join)
		}
	}
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}
	// Stable secondary key keeps ordering deterministic across identical runs.
	b.WriteString(fmt.Sprintf(" ORDER BY %s %s, %s.id ASC", sortExpr, dir, baseAlias))

	return b.String(), args, selected, nil
}

// resolvePath walks a dotted source path from the base entity to a stored
// field, collecting the joins it crosses. "work_record.rate_config.client.name"
// resolves to c.name through the rate_configs and clients joins.
func resolvePath(col domain.ColumnDef) (string, []string, error) {
	if col.IsDerived() || col.SourcePath == "" {
		return "", nil, &domain.ValidationError{
			Field:  string(col.ID),
			Reason: "derived column has no stored field",
		}
	}
	segments := strings.Split(col.SourcePath, ".")
	if len(segments) < 2 || segments[0] != "work_record" {
		return "", nil, &domain.InvalidConfigurationError{Column: col.ID}
	}

	alias := baseAlias
	var joins []string
	prev := ""
	for _, seg := range segments[1 : len(segments)-1] {
		rel, ok := relations[seg]
		if !ok || rel.parent != prev {
			return "", nil, &domain.InvalidConfigurationError{Column: col.ID}
		}
		joins = append(joins, seg)
		alias = rel.alias
		prev = seg
	}
	field := segments[len(segments)-1]
	return alias + "." + field, joins, nil
}

// scanRows materializes typed result rows. Scan targets are chosen by the
// column's type tag; NULLs become null values of the same kind.
func scanRows(rows *sql.Rows, selected []domain.ColumnDef) ([]domain.ResultRow, error) {
	stored := make([]domain.ColumnDef, 0, len(selected))
	for _, col := range selected {
		if !col.IsDerived() {
			stored = append(stored, col)
		}
	}

	result := make([]domain.ResultRow, 0)
	for rows.Next() {
		var id int64
		targets := make([]any, 0, len(stored)+1)
		targets = append(targets, &id)

		dates := make([]sql.NullTime, len(stored))
		nums := make([]sql.NullFloat64, len(stored))
		strs := make([]sql.NullString, len(stored))
		for i, col := range stored {
			switch col.Type {
			case domain.ColumnDate:
				targets = append(targets, &dates[i])
			case domain.ColumnNumber, domain.ColumnCurrency:
				targets = append(targets, &nums[i])
			default:
				targets = append(targets, &strs[i])
			}
		}
		if err := rows.Scan(targets...); err != nil {
			return nil, err
		}

		row := make(domain.ResultRow, len(selected))
		for i, col := range stored {
			switch col.Type {
			case domain.ColumnDate:
				if dates[i].Valid {
					row[col.ID] = domain.DateValue(dates[i].Time)
				} else {
					row[col.ID] = domain.NullValue(col.Type)
				}
			case domain.ColumnNumber, domain.ColumnCurrency:
				if nums[i].Valid {
					row[col.ID] = domain.NumberValue(col.Type, nums[i].Float64)
				} else {
					row[col.ID] = domain.NullValue(col.Type)
				}
			default:
				if strs[i].Valid {
					row[col.ID] = domain.StringValue(col.Type, strs[i].String)
				} else {
					row[col.ID] = domain.NullValue(col.Type)
				}
			}
		}
		for _, col := range selected {
			if col.IsDerived() {
				row[col.ID] = domain.NullValue(col.Type)
			}
		}
		result = append(result, row)
	}
	return result, nil
}
