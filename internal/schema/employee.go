package schema

import (
	"fmt"
	"strings"
)

// Canonical column names of the destination table.
const (
	ColBadgeCode = "cod_cracha"
	ColName      = "nm_funcionario"
	ColRole      = "cargo"
	ColEmail     = "email"
)

// DefaultTable is the destination table name used when none is configured.
const DefaultTable = "assinatura_email"

// Columns is the ordered list of canonical columns. Spreadsheet columns are
// mapped onto it by position.
var Columns = []string{ColBadgeCode, ColName, ColRole, ColEmail}

// Employee is one row of the destination table.
type Employee struct {
	BadgeCode string `json:"cod_cracha" yaml:"cod_cracha"`
	Name      string `json:"nm_funcionario" yaml:"nm_funcionario"`
	Role      string `json:"cargo" yaml:"cargo"`
	Email     string `json:"email" yaml:"email"`
}

// FromValues builds an Employee from values ordered like Columns.
// Missing trailing values are left empty.
func FromValues(values []string) Employee {
	get := func(i int) string {
		if i < len(values) {
			return values[i]
		}
		return ""
	}
	return Employee{
		BadgeCode: get(0),
		Name:      get(1),
		Role:      get(2),
		Email:     get(3),
	}
}

// Values returns the fields ordered like Columns.
func (e Employee) Values() []string {
	return []string{e.BadgeCode, e.Name, e.Role, e.Email}
}

// Validate checks that every field is present. Whitespace-only values count
// as missing.
func (e Employee) Validate() error {
	for i, v := range e.Values() {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%s is required", Columns[i])
		}
	}
	return nil
}

// IsEmpty reports whether every field is blank.
func (e Employee) IsEmpty() bool {
	for _, v := range e.Values() {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// String returns a short description for log lines.
func (e Employee) String() string {
	return fmt.Sprintf("%s (%s)", e.BadgeCode, e.Name)
}
