package report

import (
	"testing"
	"time"

	"github.com/fleet-tools/work-ledger/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func workConfig(t *testing.T, reg *Registry) domain.ReportConfig {
	t.Helper()
	cfg, err := Default(reg, domain.ReportWork)
	require.NoError(t, err)
	return cfg
}

func TestSetFilter_ReplacesExistingPredicate(t *testing.T) {
	reg := NewRegistry()
	cfg := workConfig(t, reg)

	cfg, err := SetFilter(reg, cfg, "client_name", domain.OpEquals, "Northline Logistics")
	require.NoError(t, err)
	cfg, err = SetFilter(reg, cfg, "client_name", domain.OpEquals, "Harbor Build Co")
	require.NoError(t, err)

	require.Len(t, cfg.Filters, 1)
	p, ok := cfg.Filter("client_name")
	require.True(t, ok)
	assert.Equal(t, []any{"Harbor Build Co"}, p.Values)
}

func TestSetFilter_DoesNotMutateInput(t *testing.T) {
	reg := NewRegistry()
	before := workConfig(t, reg)

	after, err := SetFilter(reg, before, "client_name", domain.OpEquals, "Northline Logistics")
	require.NoError(t, err)

	assert.Empty(t, before.Filters)
	assert.Len(t, after.Filters, 1)
	assert.Greater(t, after.Version, before.Version)
}

func TestSetFilter_Between(t *testing.T) {
	reg := NewRegistry()

	t.Run("rejects inverted range", func(t *testing.T) {
		cfg := workConfig(t, reg)
		_, err := SetFilter(reg, cfg, "work_date", domain.OpBetween, "2024-01-07", "2024-01-01")
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "work_date", verr.Field)
	})

	t.Run("compares dates by calendar day", func(t *testing.T) {
		cfg := workConfig(t, reg)
		// Same calendar day at different times of day is a valid range.
		from := time.Date(2024, 1, 5, 23, 30, 0, 0, time.UTC)
		to := time.Date(2024, 1, 5, 1, 0, 0, 0, time.UTC)
		cfg, err := SetFilter(reg, cfg, "work_date", domain.OpBetween, from, to)
		require.NoError(t, err)

		p, _ := cfg.Filter("work_date")
		assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), p.Values[0])
		assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), p.Values[1])
	})

	t.Run("rejects wrong arity", func(t *testing.T) {
		cfg := workConfig(t, reg)
		_, err := SetFilter(reg, cfg, "work_date", domain.OpBetween, "2024-01-01")
		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("rejects non-comparable column", func(t *testing.T) {
		cfg := workConfig(t, reg)
		_, err := SetFilter(reg, cfg, "notes", domain.OpBetween, "a", "b")
		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestSetFilter_In(t *testing.T) {
	reg := NewRegistry()

	t.Run("accepts multiple values", func(t *testing.T) {
		cfg := workConfig(t, reg)
		cfg, err := SetFilter(reg, cfg, "vehicle_number", domain.OpIn, "TRK-101", "TRK-207")
		require.NoError(t, err)
		p, _ := cfg.Filter("vehicle_number")
		assert.Equal(t, []any{"TRK-101", "TRK-207"}, p.Values)
	})

	t.Run("rejects empty list", func(t *testing.T) {
		cfg := workConfig(t, reg)
		_, err := SetFilter(reg, cfg, "vehicle_number", domain.OpIn)
		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})
}

func TestSetFilter_Validation(t *testing.T) {
	reg := NewRegistry()

	t.Run("equals requires a single value", func(t *testing.T) {
		cfg := workConfig(t, reg)
		_, err := SetFilter(reg, cfg, "client_name", domain.OpEquals, "a", "b")
		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("unknown column is a configuration error", func(t *testing.T) {
		cfg := workConfig(t, reg)
		_, err := SetFilter(reg, cfg, "no_such_column", domain.OpEquals, "x")
		var cerr *domain.InvalidConfigurationError
		assert.ErrorAs(t, err, &cerr)
	})

	t.Run("derived column cannot be filtered", func(t *testing.T) {
		cfg := workConfig(t, reg)
		_, err := SetFilter(reg, cfg, "avg_revenue_per_record", domain.OpEquals, 10.0)
		var verr *domain.ValidationError
		assert.ErrorAs(t, err, &verr)
	})

	t.Run("bad date string names the field", func(t *testing.T) {
		cfg := workConfig(t, reg)
		_, err := SetFilter(reg, cfg, "work_date", domain.OpEquals, "01/05/2024")
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "work_date", verr.Field)
	})
}

func TestClearFilter(t *testing.T) {
	reg := NewRegistry()
	cfg := workConfig(t, reg)

	cfg, err := SetFilter(reg, cfg, "client_name", domain.OpEquals, "Northline Logistics")
	require.NoError(t, err)
	cfg, err = SetFilter(reg, cfg, "vehicle_number", domain.OpEquals, "TRK-101")
	require.NoError(t, err)

	cfg = ClearFilter(cfg, "client_name")
	require.Len(t, cfg.Filters, 1)
	_, ok := cfg.Filter("client_name")
	assert.False(t, ok)

	cfg = ClearFilters(cfg)
	assert.Empty(t, cfg.Filters)
}
