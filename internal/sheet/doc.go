// Package sheet reads the employee spreadsheet and normalizes it into
// schema.Employee rows.
//
// The first worksheet row is the header; every following row is data.
// Normalization is a fixed pipeline:
//
//  1. drop columns whose header duplicates an earlier header
//  2. keep the first four columns, mapped by position onto schema.Columns
//  3. drop rows missing any of the four values
//  4. trim the badge code and render integral numbers without a fraction
//  5. drop rows that are entirely empty
//
// Header text is ignored unless strict header checking is requested, in
// which case the first four headers must match the expected list.
package sheet
