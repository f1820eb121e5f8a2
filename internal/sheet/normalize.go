package sheet

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/assinatura-email/sheetsync/internal/schema"
)

// ErrTooFewColumns is returned when fewer columns than schema.Columns remain
// after duplicate columns are dropped.
var ErrTooFewColumns = errors.New("spreadsheet has too few columns")

// Options controls Normalize.
type Options struct {
	// StrictHeaders rejects the sheet when its first headers do not match
	// ExpectedHeaders. When false, columns are mapped purely by position.
	StrictHeaders bool

	// ExpectedHeaders defaults to schema.Columns.
	ExpectedHeaders []string
}

// Batch is the result of normalizing a Table.
type Batch struct {
	Employees []schema.Employee

	// Headers are the original header texts of the mapped columns.
	Headers []string
	// DroppedColumns are headers removed as duplicates.
	DroppedColumns []string

	Skipped int
	// DuplicateBadges counts rows whose badge code already appeared earlier
	// in the sheet. Later rows win when upserted.
	DuplicateBadges int
}

// Normalize turns a Table into valid employees. t is modified in place.
func Normalize(t *Table, opts Options) (*Batch, error) {
	b := &Batch{}
	b.DroppedColumns = t.DropDuplicateColumns()

	n := len(schema.Columns)
	if t.Width() < n {
		return b, fmt.Errorf("%w: need %d, found %d %v", ErrTooFewColumns, n, t.Width(), t.Header)
	}
	b.Headers = append([]string(nil), t.Header[:n]...)

	if opts.StrictHeaders {
		want := opts.ExpectedHeaders
		if len(want) == 0 {
			want = schema.Columns
		}
		if err := CheckHeaders(b.Headers, want); err != nil {
			return b, err
		}
	}

	seen := make(map[string]bool, t.Len())
	for i, row := range t.Rows {
		emp, ok := normalizeRow(row[:n], t.numericBadge(i))
		if !ok {
			b.Skipped++
			continue
		}
		if seen[emp.BadgeCode] {
			b.DuplicateBadges++
		}
		seen[emp.BadgeCode] = true
		b.Employees = append(b.Employees, emp)
	}

	return b, nil
}

func normalizeRow(values []string, numeric bool) (schema.Employee, bool) {
	emp := schema.FromValues(values)
	if emp.Validate() != nil {
		return emp, false
	}

	emp.BadgeCode = NormalizeBadge(emp.BadgeCode, numeric)
	if emp.BadgeCode == "" {
		return emp, false
	}

	emp.Name = strings.TrimSpace(emp.Name)
	emp.Role = strings.TrimSpace(emp.Role)
	emp.Email = strings.TrimSpace(emp.Email)

	if emp.IsEmpty() {
		return emp, false
	}
	return emp, true
}

// NormalizeBadge trims a raw badge cell. When the cell is numeric, integral
// values stored with a fraction or exponent ("123.0", "1.23E+2") become plain
// integers. Text cells are only trimmed, so "007.0" and "12E3" stay as typed.
func NormalizeBadge(raw string, numeric bool) string {
	s := strings.TrimSpace(raw)
	if !numeric || !strings.ContainsAny(s, ".eE") {
		return s
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return s
	}
	if f != math.Trunc(f) || math.Abs(f) >= 1e15 {
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
