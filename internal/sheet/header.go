package sheet

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// ErrHeaderDrift is returned when strict header checking finds headers that
// differ from the expected list.
var ErrHeaderDrift = errors.New("spreadsheet headers do not match expected columns")

var (
	// Spreadsheet tools rename repeated headers to "name.1", "name.2".
	mangleSuffixRe = regexp.MustCompile(`\.\d+$`)
	nonWordRe      = regexp.MustCompile(`[^a-z0-9]+`)
)

// NormalizeHeader folds a header to a comparable key: lower case, diacritics
// stripped, runs of punctuation and spaces collapsed to "_", and any
// "name.N" duplicate suffix removed. "Cód. Crachá" and "cod_cracha.1" both
// become "cod_cracha".
func NormalizeHeader(h string) string {
	s := strings.TrimSpace(h)
	s = mangleSuffixRe.ReplaceAllString(s, "")
	s = strings.ToLower(stripDiacritics(s))
	s = nonWordRe.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

func stripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// DropDuplicateColumns removes every column whose normalized header equals
// the header of an earlier column. Blank headers are never duplicates.
// It returns the original headers of the removed columns.
func (t *Table) DropDuplicateColumns() []string {
	seen := make(map[string]bool, len(t.Header))
	var keep []int
	var dropped []string
	for i, h := range t.Header {
		key := NormalizeHeader(h)
		if key != "" && seen[key] {
			dropped = append(dropped, h)
			continue
		}
		seen[key] = true
		keep = append(keep, i)
	}
	if len(dropped) == 0 {
		return nil
	}

	t.Header = pick(t.Header, keep)
	for i, row := range t.Rows {
		t.Rows[i] = pick(row, keep)
	}
	return dropped
}

func pick(row []string, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = row[j]
	}
	return out
}

// CheckHeaders compares got against want after normalization. Only the first
// len(want) headers are compared.
func CheckHeaders(got, want []string) error {
	var drift []string
	for i, w := range want {
		g := ""
		if i < len(got) {
			g = got[i]
		}
		if NormalizeHeader(g) != NormalizeHeader(w) {
			drift = append(drift, fmt.Sprintf("column %d: got %q, want %q", i+1, g, w))
		}
	}
	if len(drift) > 0 {
		return fmt.Errorf("%w: %s", ErrHeaderDrift, strings.Join(drift, "; "))
	}
	return nil
}
