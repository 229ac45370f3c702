package report

import (
	"fmt"
	"time"

	"github.com/fleet-tools/work-ledger/pkg/models/domain"
)

const dateLayout = "2006-01-02"

// SetFilter validates and stores a predicate, replacing any existing one on
// the same field so repeated UI edits stay idempotent. Scalars are coerced
// to the column type before storage; dates are compared by calendar day.
// The input configuration is never mutated.
func SetFilter(
	reg *Registry,
	cfg domain.ReportConfig,
	field domain.ColumnID,
	op domain.FilterOperator,
	values ...any,
) (domain.ReportConfig, error) {
	col, ok := reg.Column(field)
	if !ok {
		return cfg, &domain.InvalidConfigurationError{Column: field}
	}
	if col.IsDerived() {
		return cfg, domain.NewValidationError(string(field), "derived columns cannot be filtered")
	}

	coerced, err := coerceValues(col, op, values)
	if err != nil {
		return cfg, err
	}

	out := clearFilterInPlace(cfg.Clone(), field)
	out.Filters = append(out.Filters, domain.FilterPredicate{
		Field:    field,
		Operator: op,
		Values:   coerced,
	})
	out.Version++
	return out, nil
}

// ClearFilter removes the predicate on field, if present.
func ClearFilter(cfg domain.ReportConfig, field domain.ColumnID) domain.ReportConfig {
	out := clearFilterInPlace(cfg.Clone(), field)
	out.Version++
	return out
}

// ClearFilters removes every predicate.
func ClearFilters(cfg domain.ReportConfig) domain.ReportConfig {
	out := cfg.Clone()
	out.Filters = nil
	out.Version++
	return out
}

func clearFilterInPlace(cfg domain.ReportConfig, field domain.ColumnID) domain.ReportConfig {
	filters := cfg.Filters[:0]
	for _, p := range cfg.Filters {
		if p.Field != field {
			filters = append(filters, p)
		}
	}
	cfg.Filters = filters
	return cfg
}

func coerceValues(col domain.ColumnDef, op domain.FilterOperator, values []any) ([]any, error) {
	field := string(col.ID)
	switch op {
	case domain.OpEquals:
		if len(values) != 1 {
			return nil, domain.NewValidationError(field, "equals takes exactly one value, got %d", len(values))
		}
	case domain.OpIn:
		if len(values) == 0 {
			return nil, domain.NewValidationError(field, "in takes at least one value")
		}
	case domain.OpBetween:
		if len(values) != 2 {
			return nil, domain.NewValidationError(field, "between takes exactly two values, got %d", len(values))
		}
		if col.Type != domain.ColumnDate && col.Type != domain.ColumnNumber && col.Type != domain.ColumnCurrency {
			return nil, domain.NewValidationError(field, "between requires a date or numeric column")
		}
	default:
		return nil, domain.NewValidationError(field, "unknown operator %q", op)
	}

	coerced := make([]any, len(values))
	for i, v := range values {
		cv, err := coerceScalar(col, v)
		if err != nil {
			return nil, err
		}
		coerced[i] = cv
	}

	if op == domain.OpBetween {
		if err := checkRange(col, coerced[0], coerced[1]); err != nil {
			return nil, err
		}
	}
	return coerced, nil
}

func coerceScalar(col domain.ColumnDef, v any) (any, error) {
	field := string(col.ID)
	switch col.Type {
	case domain.ColumnDate:
		switch t := v.(type) {
		case time.Time:
			return truncateToDay(t), nil
		case string:
			parsed, err := time.Parse(dateLayout, t)
			if err != nil {
				return nil, domain.NewValidationError(field, "invalid date %q, want YYYY-MM-DD", t)
			}
			return parsed, nil
		}
	case domain.ColumnNumber, domain.ColumnCurrency:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		}
	case domain.ColumnString, domain.ColumnFKLabel:
		if s, ok := v.(string); ok {
			return s, nil
		}
		if s, ok := v.(fmt.Stringer); ok {
			return s.String(), nil
		}
	}
	return nil, domain.NewValidationError(field, "value %v is not a valid %s", v, col.Type)
}

func checkRange(col domain.ColumnDef, from, to any) error {
	field := string(col.ID)
	switch col.Type {
	case domain.ColumnDate:
		f, t := from.(time.Time), to.(time.Time)
		if f.After(t) {
			return domain.NewValidationError(field, "range start %s is after end %s",
				f.Format(dateLayout), t.Format(dateLayout))
		}
	default:
		f, t := from.(float64), to.(float64)
		if f > t {
			return domain.NewValidationError(field, "range start %v is greater than end %v", f, t)
		}
	}
	return nil
}

// truncateToDay drops the time-of-day so range endpoints compare by calendar
// day in UTC, keeping boundary records inside inclusive ranges.
func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
