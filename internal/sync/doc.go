// Package sync turns the current spreadsheet contents into up-to-date rows
// in the destination table.
//
// Overview
//
// One call to Syncer.Run is one sync run:
//
//	spreadsheet (.xlsx)
//	     │  wait SettleDelay, then sheet.ReadFile
//	     ▼
//	sheet.Table ── sheet.Normalize ──► []schema.Employee
//	                                         │
//	                                         ▼
//	                     store.Conn: TableExists, UpsertEmployees (one tx)
//
// Outcomes
//
// Run never returns an error and never panics. Every run ends in a Result
// whose Outcome says what happened:
//
//   - Success: every valid row was upserted
//   - NoOp: the spreadsheet had no data rows; the database was not touched
//   - ValidationError: strict header checking found drifted headers
//   - StructuralError: fewer than four columns after dropping duplicates
//   - TableMissing: the destination table does not exist (setup problem)
//   - IOError: the file or the database could not be reached
//   - Failed: anything else, such as a constraint violation
//
// Callers branch on the Outcome; a failed run leaves the table unchanged
// because all upserts of a run share one transaction.
//
// Usage
//
//	syncer := sync.New(database, sync.Options{
//	    Path:        "/data/funcionarios/atualiza.xlsx",
//	    SettleDelay: 2 * time.Second,
//	}, logger)
//
//	res := syncer.Run(ctx)
//	if !res.OK() {
//	    log.Printf("sync failed: %v", res)
//	}
package sync
