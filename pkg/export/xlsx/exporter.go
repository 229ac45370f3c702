package xlsx

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/fleet-tools/work-ledger/pkg/models/domain"
	"github.com/xuri/excelize/v2"
)

const (
	sheetName = "Report"
	// Missing values render as an explicit placeholder so "no data" stays
	// distinguishable from an empty string in the exported file.
	nullPlaceholder = "N/A"
	summaryLabel    = "Totals"

	dateFormat     = "yyyy-mm-dd"
	currencyFormat = "0.00"
	dateLayout     = "2006-01-02"
)

// Options controls the optional summary row of an export.
type Options struct {
	IncludeSummary bool
	Summary        domain.ResultRow
}

// Render produces the spreadsheet bytes for a result set: a bold header row
// of column labels, one row per record with type-aware cell formatting
// (dates as calendar dates, currency as two-decimal numbers so spreadsheet
// tools can sum them), and an optional shaded summary row. A cell that fails
// to write degrades to the placeholder instead of aborting mid-file.
func Render(cols []domain.ColumnDef, rows []domain.ResultRow, opts Options) ([]byte, error) {
	if len(cols) == 0 {
		return nil, domain.NewValidationError("columns", "export requires at least one column")
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("prepare sheet: %w", err)
	}

	styles, err := newStyleSet(f)
	if err != nil {
		return nil, fmt.Errorf("prepare styles: %w", err)
	}

	for i, col := range cols {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, col.Label); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, styles.header); err != nil {
			return nil, fmt.Errorf("style header: %w", err)
		}
	}

	for r, row := range rows {
		for c, col := range cols {
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			writeCell(f, styles, cell, col, row[col.ID], false)
		}
	}

	if opts.IncludeSummary && len(opts.Summary) > 0 {
		r := len(rows) + 2
		for c, col := range cols {
			cell, err := excelize.CoordinatesToCellName(c+1, r)
			if err != nil {
				return nil, fmt.Errorf("summary cell: %w", err)
			}
			v, ok := opts.Summary[col.ID]
			switch {
			case c == 0 && !ok:
				// Label slot; only used when the first column carries no
				// aggregate of its own.
				_ = f.SetCellValue(sheetName, cell, summaryLabel)
			case ok:
				writeCell(f, styles, cell, col, v, true)
			}
			if err := f.SetCellStyle(sheetName, cell, cell, styles.summaryFor(col.Type, ok)); err != nil {
				return nil, fmt.Errorf("style summary: %w", err)
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseDataRows reads the data rows of an exported file back into typed
// result rows, excluding the header and, when hasSummary is set, the final
// summary row. Used to verify exports round-trip.
func ParseDataRows(data []byte, cols []domain.ColumnDef, hasSummary bool) ([]domain.ResultRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	raw, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheetName)
	}

	dataRows := raw[1:]
	if hasSummary && len(dataRows) > 0 {
		dataRows = dataRows[:len(dataRows)-1]
	}

	result := make([]domain.ResultRow, 0, len(dataRows))
	for _, cells := range dataRows {
		row := make(domain.ResultRow, len(cols))
		for i, col := range cols {
			var cell string
			if i < len(cells) {
				cell = cells[i]
			}
			v, err := parseCell(col, cell)
			if err != nil {
				return nil, err
			}
			row[col.ID] = v
		}
		result = append(result, row)
	}
	return result, nil
}

// Filename derives the download name: a slug of the template name when one
// exists, else a report-type slug with the export date.
func Filename(reportType domain.ReportType, templateName string, now time.Time) string {
	if s := slugify(templateName); s != "" {
		return s + ".xlsx"
	}
	return fmt.Sprintf("%s-report-%s.xlsx", reportType, now.Format("20060102"))
}

type styleSet struct {
	header          int
	date            int
	currency        int
	summaryText     int
	summaryDate     int
	summaryCurrency int
}

func (s styleSet) summaryFor(t domain.ColumnType, hasValue bool) int {
	if !hasValue {
		return s.summaryText
	}
	switch t {
	case domain.ColumnDate:
		return s.summaryDate
	case domain.ColumnCurrency:
		return s.summaryCurrency
	default:
		return s.summaryText
	}
}

func newStyleSet(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error

	dateFmt := dateFormat
	currencyFmt := currencyFormat
	bold := &excelize.Font{Bold: true}
	shade := excelize.Fill{Type: "pattern", Color: []string{"#DCE6F1"}, Pattern: 1}

	if s.header, err = f.NewStyle(&excelize.Style{Font: bold}); err != nil {
		return s, err
	}
	if s.date, err = f.NewStyle(&excelize.Style{CustomNumFmt: &dateFmt}); err != nil {
		return s, err
	}
	if s.currency, err = f.NewStyle(&excelize.Style{CustomNumFmt: &currencyFmt}); err != nil {
		return s, err
	}
	if s.summaryText, err = f.NewStyle(&excelize.Style{Font: bold, Fill: shade}); err != nil {
		return s, err
	}
	if s.summaryDate, err = f.NewStyle(&excelize.Style{Font: bold, Fill: shade, CustomNumFmt: &dateFmt}); err != nil {
		return s, err
	}
	if s.summaryCurrency, err = f.NewStyle(&excelize.Style{Font: bold, Fill: shade, CustomNumFmt: &currencyFmt}); err != nil {
		return s, err
	}
	return s, nil
}

func writeCell(f *excelize.File, styles styleSet, cell string, col domain.ColumnDef, v domain.Value, summary bool) {
	if v.Null || v.Kind == "" {
		_ = f.SetCellValue(sheetName, cell, nullPlaceholder)
		return
	}

	var err error
	switch col.Type {
	case domain.ColumnDate:
		err = f.SetCellValue(sheetName, cell, v.Date)
		if err == nil && !summary {
			err = f.SetCellStyle(sheetName, cell, cell, styles.date)
		}
	case domain.ColumnNumber:
		err = f.SetCellValue(sheetName, cell, v.Num)
	case domain.ColumnCurrency:
		err = f.SetCellValue(sheetName, cell, v.Num)
		if err == nil && !summary {
			err = f.SetCellStyle(sheetName, cell, cell, styles.currency)
		}
	default:
		err = f.SetCellValue(sheetName, cell, v.Str)
	}
	if err != nil {
		// A malformed cell must not truncate the file; degrade to the
		// placeholder and keep writing.
		_ = f.SetCellValue(sheetName, cell, nullPlaceholder)
	}
}

func parseCell(col domain.ColumnDef, cell string) (domain.Value, error) {
	if cell == "" || cell == nullPlaceholder {
		return domain.NullValue(col.Type), nil
	}
	switch col.Type {
	case domain.ColumnDate:
		t, err := time.Parse(dateLayout, cell)
		if err != nil {
			return domain.Value{}, fmt.Errorf("column %s: invalid date cell %q: %w", col.ID, cell, err)
		}
		return domain.DateValue(t), nil
	case domain.ColumnNumber, domain.ColumnCurrency:
		n, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return domain.Value{}, fmt.Errorf("column %s: invalid numeric cell %q: %w", col.ID, cell, err)
		}
		return domain.NumberValue(col.Type, n), nil
	default:
		return domain.StringValue(col.Type, cell), nil
	}
}

func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}
