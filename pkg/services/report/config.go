package report

import (
	"github.com/fleet-tools/work-ledger/pkg/models/domain"
)

// Default returns the starting configuration for a report type: the required
// column set, no filters, sorted by the first date column descending.
func Default(reg *Registry, rt domain.ReportType) (domain.ReportConfig, error) {
	cols, err := reg.Columns(rt)
	if err != nil {
		return domain.ReportConfig{}, err
	}

	cfg := domain.ReportConfig{ReportType: rt}
	var sortField domain.ColumnID
	for _, col := range cols {
		if col.Required {
			cfg.Columns = append(cfg.Columns, col.ID)
		}
		if sortField == "" && col.Type == domain.ColumnDate {
			sortField = col.ID
		}
	}
	if sortField == "" {
		sortField = cfg.Columns[0]
	}
	cfg.Sorting = domain.SortSpec{Field: sortField, Direction: domain.SortDesc}
	return cfg, nil
}

// AddColumn appends a column to the selection. Adding an already selected
// column is a no-op, so repeated UI toggles stay idempotent.
func AddColumn(reg *Registry, cfg domain.ReportConfig, id domain.ColumnID) (domain.ReportConfig, error) {
	col, ok := reg.Column(id)
	if !ok {
		return cfg, &domain.InvalidConfigurationError{Column: id}
	}
	if cfg.HasColumn(col.ID) {
		return cfg, nil
	}
	out := cfg.Clone()
	out.Columns = append(out.Columns, col.ID)
	out.Version++
	return out, nil
}

// RemoveColumn drops a column from the selection. Required columns cannot be
// deselected; any filter or sort on the removed column is dropped with it,
// the sort falling back to the first remaining required column.
func RemoveColumn(reg *Registry, cfg domain.ReportConfig, id domain.ColumnID) (domain.ReportConfig, error) {
	if _, ok := reg.Column(id); !ok {
		return cfg, &domain.InvalidConfigurationError{Column: id}
	}
	if reg.IsRequired(id) {
		return cfg, domain.NewValidationError(string(id), "required column cannot be removed")
	}
	if !cfg.HasColumn(id) {
		return cfg, nil
	}

	out := cfg.Clone()
	cols := out.Columns[:0]
	for _, c := range out.Columns {
		if c != id {
			cols = append(cols, c)
		}
	}
	out.Columns = cols
	if len(out.Columns) == 0 {
		// Reachable only from a hand-built config that already violates the
		// required-column invariant.
		return cfg, domain.NewValidationError(string(id), "selection cannot become empty")
	}
	out = clearFilterInPlace(out, id)
	if out.Sorting.Field == id {
		fallback := out.Columns[0]
		for _, c := range out.Columns {
			if reg.IsRequired(c) {
				fallback = c
				break
			}
		}
		out.Sorting = domain.SortSpec{Field: fallback, Direction: domain.SortDesc}
	}
	out.Version++
	return out, nil
}

// SetSort replaces the single active sort key.
func SetSort(reg *Registry, cfg domain.ReportConfig, field domain.ColumnID, dir domain.SortDirection) (domain.ReportConfig, error) {
	col, ok := reg.Column(field)
	if !ok {
		return cfg, &domain.InvalidConfigurationError{Column: field}
	}
	if col.IsDerived() {
		return cfg, domain.NewValidationError(string(field), "derived columns cannot be sorted")
	}
	if dir != domain.SortAsc && dir != domain.SortDesc {
		return cfg, domain.NewValidationError(string(field), "sort direction must be asc or desc")
	}
	out := cfg.Clone()
	out.Sorting = domain.SortSpec{Field: field, Direction: dir}
	out.Version++
	return out, nil
}

// Validate checks the configuration invariants: known report type, no
// duplicate columns, every registry-required column selected, known filter
// and sort fields. Handlers call it once after assembling a configuration
// from the wire.
func Validate(reg *Registry, cfg domain.ReportConfig) error {
	cols, err := reg.Columns(cfg.ReportType)
	if err != nil {
		return domain.NewValidationError("reportType", "%v", err)
	}
	if len(cfg.Columns) == 0 {
		return domain.NewValidationError("columns", "at least one column must be selected")
	}

	seen := make(map[domain.ColumnID]bool, len(cfg.Columns))
	for _, id := range cfg.Columns {
		if seen[id] {
			return domain.NewValidationError(string(id), "column selected twice")
		}
		seen[id] = true
		if _, ok := reg.Column(id); !ok {
			return &domain.InvalidConfigurationError{Column: id}
		}
	}
	for _, col := range cols {
		if col.Required && !seen[col.ID] {
			return domain.NewValidationError(string(col.ID), "required column missing from selection")
		}
	}
	for _, p := range cfg.Filters {
		if _, ok := reg.Column(p.Field); !ok {
			return &domain.InvalidConfigurationError{Column: p.Field}
		}
	}
	if _, ok := reg.Column(cfg.Sorting.Field); !ok {
		return &domain.InvalidConfigurationError{Column: cfg.Sorting.Field}
	}
	return nil
}
