package domain

import "time"

// ReportType identifies one of the logical report kinds the builder supports.
type ReportType string

const (
	ReportWork    ReportType = "work"
	ReportBilling ReportType = "billing"
)

// ColumnID is the stable identifier of a reportable column.
type ColumnID string

// ColumnType tags a column's value domain. Formatting and aggregation
// dispatch on this tag rather than on the underlying Go type.
type ColumnType string

const (
	ColumnDate     ColumnType = "date"
	ColumnString   ColumnType = "string"
	ColumnNumber   ColumnType = "number"
	ColumnCurrency ColumnType = "currency"
	// ColumnFKLabel is a human-readable label resolved through a join
	// to a related entity (vehicle number, client name, ...).
	ColumnFKLabel ColumnType = "fklabel"
)

// DerivedRule describes a derived average metric: the aggregator divides the
// numerator's sum by the count of rows where the numerator is non-null. The
// pairing is explicit here so it is never inferred from column naming.
type DerivedRule struct {
	Numerator ColumnID
}

// ColumnDef is one entry of the column registry. Definitions are immutable
// and fixed at process start.
type ColumnDef struct {
	ID    ColumnID
	Label string
	// SourcePath is a dotted path from the report's base entity to a stored
	// field, e.g. "work_record.rate_config.client.name". Each intermediate
	// segment names a relation the query translator resolves to a join.
	// Empty for derived columns, which exist only in summary rows.
	SourcePath string
	Type       ColumnType
	Required   bool
	Summable   bool
	Derived    *DerivedRule
}

// IsDerived reports whether the column is a computed summary metric with no
// row-level source field.
func (c ColumnDef) IsDerived() bool {
	return c.Derived != nil
}

// FilterOperator is the fixed set of predicate operators.
type FilterOperator string

const (
	OpEquals  FilterOperator = "equals"
	OpIn      FilterOperator = "in"
	OpBetween FilterOperator = "between"
)

// FilterPredicate is one validated predicate of a report configuration.
// Values hold one scalar for equals, a non-empty list for in, and exactly
// the inclusive [from, to] pair for between. Scalars are coerced to the
// column's type (time.Time truncated to the calendar day for date columns,
// float64 for numeric ones) before the predicate is stored.
type FilterPredicate struct {
	Field    ColumnID
	Operator FilterOperator
	Values   []any
}

// SortDirection is the sort order of the single active sort key.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortSpec is the single-key sort of a configuration. Ties are broken by the
// underlying record identifier so repeated executions order identically.
type SortSpec struct {
	Field     ColumnID
	Direction SortDirection
}

// ReportConfig is the immutable specification of what to query, filter and
// sort. All edits go through the pure transforms in services/report, each of
// which returns a copy with Version bumped. Version counts edits within one
// builder flow; it is not unique across configs rebuilt from scratch, so
// preview staleness is ordered by the session, not by this counter.
type ReportConfig struct {
	ReportType ReportType
	// Columns is the ordered selection; insertion order is display order
	// and duplicates are rejected by the transforms.
	Columns []ColumnID
	// Filters holds at most one predicate per field.
	Filters []FilterPredicate
	Sorting SortSpec
	Version uint64
}

// Filter returns the predicate on field, if any.
func (c ReportConfig) Filter(field ColumnID) (FilterPredicate, bool) {
	for _, p := range c.Filters {
		if p.Field == field {
			return p, true
		}
	}
	return FilterPredicate{}, false
}

// HasColumn reports whether field is part of the current selection.
func (c ReportConfig) HasColumn(field ColumnID) bool {
	for _, id := range c.Columns {
		if id == field {
			return true
		}
	}
	return false
}

// Clone returns a deep copy; the transforms mutate only the copy.
func (c ReportConfig) Clone() ReportConfig {
	out := c
	out.Columns = append([]ColumnID(nil), c.Columns...)
	out.Filters = make([]FilterPredicate, len(c.Filters))
	for i, p := range c.Filters {
		out.Filters[i] = p
		out.Filters[i].Values = append([]any(nil), p.Values...)
	}
	return out
}

// Value is a tagged cell value of a result row.
type Value struct {
	Kind ColumnType
	Null bool

	Date time.Time // Kind == ColumnDate
	Str  string    // Kind == ColumnString | ColumnFKLabel
	Num  float64   // Kind == ColumnNumber | ColumnCurrency
}

func DateValue(t time.Time) Value {
	return Value{Kind: ColumnDate, Date: t}
}

func StringValue(kind ColumnType, s string) Value {
	return Value{Kind: kind, Str: s}
}

func NumberValue(kind ColumnType, n float64) Value {
	return Value{Kind: kind, Num: n}
}

func NullValue(kind ColumnType) Value {
	return Value{Kind: kind, Null: true}
}

// ResultRow maps column id to its cell value for one executed record.
// Display order comes from the configuration's column order, not from the
// map. Rows are produced fresh per execution and never mutated afterwards.
type ResultRow map[ColumnID]Value

// ReportTemplate is a named, persisted ReportConfig reusable across sessions.
type ReportTemplate struct {
	ID          string
	Name        string
	Description string
	Config      ReportConfig
	CreatedBy   string
	CreatedAt   time.Time
	IsSystem    bool
}
