package report

import "github.com/fleet-tools/work-ledger/pkg/models/domain"

// Summarize computes the synthetic summary row over an executed result set.
// Plain summable columns total their values with missing cells counted as
// zero. Derived columns divide the numerator's sum by the count of rows
// where the numerator is present, yielding 0 for an empty denominator so an
// export never contains a malformed cell. Non-summable columns are absent
// from the returned row, not zeroed.
func Summarize(rows []domain.ResultRow, summable []domain.ColumnDef) domain.ResultRow {
	summary := make(domain.ResultRow, len(summable))

	for _, col := range summable {
		if !col.Summable {
			continue
		}
		if col.IsDerived() {
			sum, count := foldColumn(rows, col.Derived.Numerator)
			avg := 0.0
			if count > 0 {
				avg = sum / float64(count)
			}
			summary[col.ID] = domain.NumberValue(col.Type, avg)
			continue
		}
		sum, _ := foldColumn(rows, col.ID)
		summary[col.ID] = domain.NumberValue(col.Type, sum)
	}
	return summary
}

// foldColumn returns the column's total and the number of rows where the
// value is present. Missing and null cells add zero to the total.
func foldColumn(rows []domain.ResultRow, id domain.ColumnID) (float64, int) {
	var sum float64
	var count int
	for _, row := range rows {
		v, ok := row[id]
		if !ok || v.Null {
			continue
		}
		sum += v.Num
		count++
	}
	return sum, count
}
