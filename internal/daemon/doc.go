// Package daemon watches the spreadsheet folder and runs syncs when the
// spreadsheet changes.
//
// # Architecture
//
//   - FileWatcher: fsnotify wrapper scoped to one folder and one file name
//   - Daemon: debounces change events and serializes sync runs
//
// # File Watching
//
//	fw, err := daemon.NewFileWatcher("/data/funcionarios", "atualiza.xlsx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer fw.Stop()
//
//	if err := fw.Start(); err != nil {
//	    log.Fatal(err)
//	}
//
//	for event := range fw.Events() {
//	    fmt.Printf("%s: %s\n", event.Op, event.Path)
//	}
//
// Only events whose base name equals the configured file name and whose
// extension is .xlsx are delivered. Writes map to OpModify; creates map to
// OpCreate, which is how a save through a temporary file shows up.
// Removes, renames and chmods are dropped.
//
// # Debouncing and Serialization
//
// Saving a workbook produces a burst of events. Each matching event re-arms
// a debounce timer; only when the folder has been quiet for DebounceInterval
// is a sync requested. Requests go into a single slot that one worker
// drains, so:
//
//   - at most one sync runs at a time
//   - at most one further sync is queued behind it
//   - requests arriving while the slot is full are coalesced
//
// # Error Handling
//
// A sync never stops the daemon: every run ends in a sync.Result that is
// logged, and the daemon keeps listening. Watcher errors are logged too.
//
// # Graceful Shutdown
//
// Start blocks until its context is cancelled (the CLI cancels on SIGINT and
// SIGTERM), then stops the watcher, cancels any in-flight run and returns.
package daemon
