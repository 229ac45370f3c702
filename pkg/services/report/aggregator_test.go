package report

import (
	"testing"

	"github.com/fleet-tools/work-ledger/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func revenueRows(values []*float64) []domain.ResultRow {
	rows := make([]domain.ResultRow, len(values))
	for i, v := range values {
		row := domain.ResultRow{}
		if v == nil {
			row["total_revenue"] = domain.NullValue(domain.ColumnCurrency)
		} else {
			row["total_revenue"] = domain.NumberValue(domain.ColumnCurrency, *v)
		}
		rows[i] = row
	}
	return rows
}

func f(v float64) *float64 { return &v }

func TestSummarize_SumTreatsNullAsZero(t *testing.T) {
	reg := NewRegistry()
	col, ok := reg.Column("total_revenue")
	require.True(t, ok)

	rows := revenueRows([]*float64{f(10), f(20), nil, f(30)})
	summary := Summarize(rows, []domain.ColumnDef{col})

	v, ok := summary["total_revenue"]
	require.True(t, ok)
	assert.Equal(t, 60.0, v.Num)
}

func TestSummarize_EmptyResultSet(t *testing.T) {
	reg := NewRegistry()
	cols := []domain.ColumnDef{}
	for _, id := range []domain.ColumnID{"quantity", "total_revenue", "avg_revenue_per_record"} {
		col, ok := reg.Column(id)
		require.True(t, ok)
		cols = append(cols, col)
	}

	summary := Summarize(nil, cols)

	for _, col := range cols {
		v, ok := summary[col.ID]
		require.True(t, ok, "summable column %s missing", col.ID)
		assert.False(t, v.Null)
		assert.Equal(t, 0.0, v.Num, "column %s", col.ID)
	}
}

func TestSummarize_DerivedAverage(t *testing.T) {
	reg := NewRegistry()
	avg, ok := reg.Column("avg_revenue_per_record")
	require.True(t, ok)

	// The denominator counts only rows with a present numerator: 60 / 3.
	rows := revenueRows([]*float64{f(10), f(20), nil, f(30)})
	summary := Summarize(rows, []domain.ColumnDef{avg})

	v, ok := summary["avg_revenue_per_record"]
	require.True(t, ok)
	assert.InDelta(t, 20.0, v.Num, 1e-9)
}

func TestSummarize_NonSummableLeftBlank(t *testing.T) {
	reg := NewRegistry()
	revenue, _ := reg.Column("total_revenue")
	client, _ := reg.Column("client_name")

	rows := []domain.ResultRow{{
		"total_revenue": domain.NumberValue(domain.ColumnCurrency, 42),
		"client_name":   domain.StringValue(domain.ColumnFKLabel, "Northline Logistics"),
	}}
	summary := Summarize(rows, []domain.ColumnDef{revenue, client})

	_, hasClient := summary["client_name"]
	assert.False(t, hasClient, "non-summable column must stay blank, not zero")
	assert.Equal(t, 42.0, summary["total_revenue"].Num)
}
