package report

import (
	"fmt"

	"github.com/fleet-tools/work-ledger/pkg/models/domain"
)

// Registry is the static catalog of reportable columns, keyed by report
// type. Lookups are pure; the catalog is fixed at process start.
type Registry struct {
	byType map[domain.ReportType][]domain.ColumnDef
	byID   map[domain.ColumnID]domain.ColumnDef
}

// NewRegistry builds the built-in catalog.
func NewRegistry() *Registry {
	workColumns := []domain.ColumnDef{
		{
			ID:         "work_date",
			Label:      "Work Date",
			SourcePath: "work_record.work_date",
			Type:       domain.ColumnDate,
			Required:   true,
		},
		{
			ID:         "vehicle_number",
			Label:      "Vehicle",
			SourcePath: "work_record.vehicle.number",
			Type:       domain.ColumnFKLabel,
		},
		{
			ID:         "vehicle_model",
			Label:      "Vehicle Model",
			SourcePath: "work_record.vehicle.model",
			Type:       domain.ColumnString,
		},
		{
			ID:         "client_name",
			Label:      "Client",
			SourcePath: "work_record.rate_config.client.name",
			Type:       domain.ColumnFKLabel,
		},
		{
			ID:         "location_name",
			Label:      "Location",
			SourcePath: "work_record.location.name",
			Type:       domain.ColumnFKLabel,
		},
		{
			ID:         "employee_name",
			Label:      "Employee",
			SourcePath: "work_record.employee.name",
			Type:       domain.ColumnFKLabel,
		},
		{
			ID:         "quantity",
			Label:      "Quantity",
			SourcePath: "work_record.quantity",
			Type:       domain.ColumnNumber,
			Summable:   true,
		},
		{
			ID:         "unit_price",
			Label:      "Unit Price",
			SourcePath: "work_record.rate_config.unit_price",
			Type:       domain.ColumnCurrency,
		},
		{
			ID:         "total_revenue",
			Label:      "Total Revenue",
			SourcePath: "work_record.total_revenue",
			Type:       domain.ColumnCurrency,
			Summable:   true,
		},
		{
			ID:         "fuel_cost",
			Label:      "Fuel Cost",
			SourcePath: "work_record.fuel_cost",
			Type:       domain.ColumnCurrency,
			Summable:   true,
		},
		{
			ID:         "notes",
			Label:      "Notes",
			SourcePath: "work_record.notes",
			Type:       domain.ColumnString,
		},
		{
			ID:       "avg_revenue_per_record",
			Label:    "Avg Revenue / Record",
			Type:     domain.ColumnCurrency,
			Summable: true,
			Derived:  &domain.DerivedRule{Numerator: "total_revenue"},
		},
	}

	billingColumns := []domain.ColumnDef{
		{
			ID:         "work_date",
			Label:      "Work Date",
			SourcePath: "work_record.work_date",
			Type:       domain.ColumnDate,
			Required:   true,
		},
		{
			ID:         "client_name",
			Label:      "Client",
			SourcePath: "work_record.rate_config.client.name",
			Type:       domain.ColumnFKLabel,
			Required:   true,
		},
		{
			ID:         "quantity",
			Label:      "Quantity",
			SourcePath: "work_record.quantity",
			Type:       domain.ColumnNumber,
			Summable:   true,
		},
		{
			ID:         "unit_price",
			Label:      "Unit Price",
			SourcePath: "work_record.rate_config.unit_price",
			Type:       domain.ColumnCurrency,
		},
		{
			ID:         "total_revenue",
			Label:      "Total Revenue",
			SourcePath: "work_record.total_revenue",
			Type:       domain.ColumnCurrency,
			Summable:   true,
		},
		{
			ID:         "fuel_cost",
			Label:      "Fuel Cost",
			SourcePath: "work_record.fuel_cost",
			Type:       domain.ColumnCurrency,
			Summable:   true,
		},
		{
			ID:       "avg_revenue_per_record",
			Label:    "Avg Revenue / Record",
			Type:     domain.ColumnCurrency,
			Summable: true,
			Derived:  &domain.DerivedRule{Numerator: "total_revenue"},
		},
	}

	return newRegistry(map[domain.ReportType][]domain.ColumnDef{
		domain.ReportWork:    workColumns,
		domain.ReportBilling: billingColumns,
	})
}

func newRegistry(catalogs map[domain.ReportType][]domain.ColumnDef) *Registry {
	r := &Registry{
		byType: catalogs,
		byID:   make(map[domain.ColumnID]domain.ColumnDef),
	}
	for rt, cols := range catalogs {
		seen := make(map[domain.ColumnID]bool, len(cols))
		required := 0
		for _, col := range cols {
			if seen[col.ID] {
				panic(fmt.Sprintf("report registry: duplicate column %q in %q catalog", col.ID, rt))
			}
			seen[col.ID] = true
			if col.Required {
				required++
			}
			if col.IsDerived() {
				if _, ok := seen[col.Derived.Numerator]; !ok {
					// Numerator may be declared later in the catalog.
					found := false
					for _, other := range cols {
						if other.ID == col.Derived.Numerator {
							found = true
							break
						}
					}
					if !found {
						panic(fmt.Sprintf("report registry: derived column %q references unknown numerator %q", col.ID, col.Derived.Numerator))
					}
				}
			}
			r.byID[col.ID] = col
		}
		if required == 0 {
			panic(fmt.Sprintf("report registry: %q catalog has no required column", rt))
		}
	}
	return r
}

// Columns returns the catalog for a report type in registry order.
func (r *Registry) Columns(rt domain.ReportType) ([]domain.ColumnDef, error) {
	cols, ok := r.byType[rt]
	if !ok {
		return nil, fmt.Errorf("unknown report type %q", rt)
	}
	out := make([]domain.ColumnDef, len(cols))
	copy(out, cols)
	return out, nil
}

// Column looks up a definition by id across all catalogs.
func (r *Registry) Column(id domain.ColumnID) (domain.ColumnDef, bool) {
	col, ok := r.byID[id]
	return col, ok
}

// IsRequired reports whether the column cannot be deselected. Enforcement
// lives in the configuration transforms, not here.
func (r *Registry) IsRequired(id domain.ColumnID) bool {
	return r.byID[id].Required
}

// IsSummable reports whether the column is eligible for the summary row.
func (r *Registry) IsSummable(id domain.ColumnID) bool {
	return r.byID[id].Summable
}

// Required returns the required column set of a report type in registry
// order.
func (r *Registry) Required(rt domain.ReportType) []domain.ColumnDef {
	var out []domain.ColumnDef
	for _, col := range r.byType[rt] {
		if col.Required {
			out = append(out, col)
		}
	}
	return out
}

// SummableColumns filters the configuration's selection down to summable
// definitions, preserving the configured display order.
func (r *Registry) SummableColumns(cfg domain.ReportConfig) []domain.ColumnDef {
	var out []domain.ColumnDef
	for _, id := range cfg.Columns {
		if col, ok := r.byID[id]; ok && col.Summable {
			out = append(out, col)
		}
	}
	return out
}
