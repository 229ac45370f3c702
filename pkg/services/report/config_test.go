package report

import (
	"testing"

	"github.com/fleet-tools/work-ledger/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	reg := NewRegistry()

	cfg, err := Default(reg, domain.ReportWork)
	require.NoError(t, err)

	assert.Equal(t, []domain.ColumnID{"work_date"}, cfg.Columns)
	assert.Equal(t, domain.SortSpec{Field: "work_date", Direction: domain.SortDesc}, cfg.Sorting)
	assert.Empty(t, cfg.Filters)

	_, err = Default(reg, "payroll")
	assert.Error(t, err)
}

func TestAddColumn(t *testing.T) {
	reg := NewRegistry()
	cfg, err := Default(reg, domain.ReportWork)
	require.NoError(t, err)

	cfg, err = AddColumn(reg, cfg, "vehicle_number")
	require.NoError(t, err)
	assert.Equal(t, []domain.ColumnID{"work_date", "vehicle_number"}, cfg.Columns)

	// Re-adding is a no-op, never a duplicate.
	again, err := AddColumn(reg, cfg, "vehicle_number")
	require.NoError(t, err)
	assert.Equal(t, cfg.Columns, again.Columns)

	_, err = AddColumn(reg, cfg, "no_such_column")
	var cerr *domain.InvalidConfigurationError
	assert.ErrorAs(t, err, &cerr)
}

func TestRemoveColumn(t *testing.T) {
	reg := NewRegistry()
	cfg, err := Default(reg, domain.ReportWork)
	require.NoError(t, err)
	cfg, err = AddColumn(reg, cfg, "total_revenue")
	require.NoError(t, err)

	t.Run("required column is protected", func(t *testing.T) {
		_, err := RemoveColumn(reg, cfg, "work_date")
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "work_date", verr.Field)
	})

	t.Run("rejects emptying a hand-built selection", func(t *testing.T) {
		broken := domain.ReportConfig{
			ReportType: domain.ReportWork,
			Columns:    []domain.ColumnID{"total_revenue"},
			Sorting:    domain.SortSpec{Field: "total_revenue", Direction: domain.SortDesc},
		}
		_, err := RemoveColumn(reg, broken, "total_revenue")
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "total_revenue", verr.Field)
	})

	t.Run("drops filter and sort with the column", func(t *testing.T) {
		c, err := SetFilter(reg, cfg, "total_revenue", domain.OpBetween, 100.0, 500.0)
		require.NoError(t, err)
		c, err = SetSort(reg, c, "total_revenue", domain.SortAsc)
		require.NoError(t, err)

		c, err = RemoveColumn(reg, c, "total_revenue")
		require.NoError(t, err)
		assert.Equal(t, []domain.ColumnID{"work_date"}, c.Columns)
		assert.Empty(t, c.Filters)
		assert.Equal(t, domain.ColumnID("work_date"), c.Sorting.Field)
	})
}

func TestSetSort(t *testing.T) {
	reg := NewRegistry()
	cfg, err := Default(reg, domain.ReportWork)
	require.NoError(t, err)

	cfg, err = SetSort(reg, cfg, "work_date", domain.SortAsc)
	require.NoError(t, err)
	assert.Equal(t, domain.SortSpec{Field: "work_date", Direction: domain.SortAsc}, cfg.Sorting)

	// Replace-on-change: a second sort key displaces the first.
	cfg, err = SetSort(reg, cfg, "quantity", domain.SortDesc)
	require.NoError(t, err)
	assert.Equal(t, domain.SortSpec{Field: "quantity", Direction: domain.SortDesc}, cfg.Sorting)

	_, err = SetSort(reg, cfg, "work_date", "sideways")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = SetSort(reg, cfg, "avg_revenue_per_record", domain.SortAsc)
	assert.ErrorAs(t, err, &verr)
}

func TestValidate(t *testing.T) {
	reg := NewRegistry()

	t.Run("accepts a well-formed configuration", func(t *testing.T) {
		cfg, err := Default(reg, domain.ReportWork)
		require.NoError(t, err)
		assert.NoError(t, Validate(reg, cfg))
	})

	t.Run("rejects duplicate columns", func(t *testing.T) {
		cfg, err := Default(reg, domain.ReportWork)
		require.NoError(t, err)
		cfg.Columns = append(cfg.Columns, "work_date")
		var verr *domain.ValidationError
		assert.ErrorAs(t, Validate(reg, cfg), &verr)
	})

	t.Run("rejects missing required column", func(t *testing.T) {
		cfg, err := Default(reg, domain.ReportWork)
		require.NoError(t, err)
		cfg.Columns = []domain.ColumnID{"vehicle_number"}
		var verr *domain.ValidationError
		assert.ErrorAs(t, Validate(reg, cfg), &verr)
	})

	t.Run("rejects unknown column", func(t *testing.T) {
		cfg, err := Default(reg, domain.ReportWork)
		require.NoError(t, err)
		cfg.Columns = append(cfg.Columns, "no_such_column")
		var cerr *domain.InvalidConfigurationError
		assert.ErrorAs(t, Validate(reg, cfg), &cerr)
	})

	t.Run("rejects empty selection", func(t *testing.T) {
		cfg := domain.ReportConfig{ReportType: domain.ReportWork, Sorting: domain.SortSpec{Field: "work_date"}}
		var verr *domain.ValidationError
		assert.ErrorAs(t, Validate(reg, cfg), &verr)
	})
}
