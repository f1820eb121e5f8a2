package sheet

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// ErrNoSheet is returned when the requested worksheet does not exist.
var ErrNoSheet = errors.New("worksheet not found")

// Table is a worksheet loaded into memory. Every row in Rows has exactly
// len(Header) cells.
type Table struct {
	Sheet  string
	Header []string
	Rows   [][]string

	// NumericBadge[i] is true when the first cell of Rows[i] is stored as a
	// number. Text cells and rows beyond its length are treated as text.
	NumericBadge []bool
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.Header)
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ReadFile opens an XLSX file and loads the named sheet, or the first sheet
// when sheetName is empty.
func ReadFile(path, sheetName string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet %s: %w", path, err)
	}
	defer f.Close()

	return readSheet(f, sheetName)
}

// Read loads a sheet from an XLSX stream.
func Read(r io.Reader, sheetName string) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer f.Close()

	return readSheet(f, sheetName)
}

func readSheet(f *excelize.File, sheetName string) (*Table, error) {
	if sheetName == "" {
		sheetName = f.GetSheetName(0)
		if sheetName == "" {
			return nil, fmt.Errorf("%w: workbook is empty", ErrNoSheet)
		}
	} else if idx, err := f.GetSheetIndex(sheetName); err != nil || idx < 0 {
		return nil, fmt.Errorf("%w: sheet %q not found", ErrNoSheet, sheetName)
	}

	// Raw values keep numeric badge codes free of display formatting.
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
	}

	t := newTable(sheetName, rows)
	t.NumericBadge = make([]bool, t.Len())
	for i, row := range t.Rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		// Data row i sits on sheet row i+2.
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to read sheet %q: %w", sheetName, err)
		}
		typ, err := f.GetCellType(sheetName, cell)
		if err != nil {
			return nil, fmt.Errorf("failed to read cell %s: %w", cell, err)
		}
		t.NumericBadge[i] = typ == excelize.CellTypeNumber || typ == excelize.CellTypeUnset
	}
	return t, nil
}

// numericBadge reports whether row i holds a numeric badge cell.
func (t *Table) numericBadge(i int) bool {
	return i < len(t.NumericBadge) && t.NumericBadge[i]
}

// newTable splits header from data and pads every row to the same width.
func newTable(sheetName string, rows [][]string) *Table {
	t := &Table{Sheet: sheetName}
	if len(rows) == 0 {
		return t
	}

	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	t.Header = pad(rows[0], width)
	for _, row := range rows[1:] {
		t.Rows = append(t.Rows, pad(row, width))
	}
	return t
}

func pad(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}
