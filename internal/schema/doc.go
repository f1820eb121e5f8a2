// Package schema defines the employee record synced from the spreadsheet
// into the assinatura_email table.
//
// # Columns
//
// The destination table has exactly four columns, in this order:
//
//	cod_cracha      badge code, PRIMARY KEY (upsert key)
//	nm_funcionario  employee name
//	cargo           role / job title
//	email           e-mail address
//
// Spreadsheet columns are mapped onto these positionally; see package sheet
// for the normalization rules that produce Employee values.
package schema
