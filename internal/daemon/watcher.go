package daemon

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// SpreadsheetExt is the only extension the watcher reacts to.
const SpreadsheetExt = ".xlsx"

// EventOp represents the type of file system operation.
type EventOp int

const (
	// OpCreate indicates the file was created, including replacement by
	// rename when an editor saves through a temporary file.
	OpCreate EventOp = iota
	// OpModify indicates the file was written.
	OpModify
)

// String returns a human-readable representation of the operation.
func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	default:
		return "unknown"
	}
}

// FileEvent is a change to the watched spreadsheet.
type FileEvent struct {
	// Path is the path of the file that changed.
	Path string
	// Op is the operation that occurred.
	Op EventOp
}

// FileWatcher watches one folder (not recursively) and reports changes to a
// single file in it. It uses fsnotify for cross-platform event monitoring.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	events   chan FileEvent
	errors   chan error
	done     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
	stopped  bool
	folder   string
	fileName string
}

// NewFileWatcher creates a watcher for folder/fileName.
// The watcher must be started with Start() before it will emit events.
func NewFileWatcher(folder, fileName string) (*FileWatcher, error) {
	if folder == "" {
		return nil, fmt.Errorf("folder cannot be empty")
	}
	if fileName == "" || filepath.Base(fileName) != fileName {
		return nil, fmt.Errorf("invalid file name %q", fileName)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &FileWatcher{
		watcher:  watcher,
		events:   make(chan FileEvent, 16),
		errors:   make(chan error, 10),
		done:     make(chan struct{}),
		folder:   folder,
		fileName: fileName,
	}, nil
}

// Start begins watching the folder.
// Returns an error if the folder cannot be watched.
func (fw *FileWatcher) Start() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.stopped {
		return fmt.Errorf("watcher already stopped")
	}
	if fw.running {
		return fmt.Errorf("watcher already running")
	}

	if err := fw.watcher.Add(fw.folder); err != nil {
		return fmt.Errorf("failed to watch folder %s: %w", fw.folder, err)
	}

	fw.running = true
	fw.wg.Add(1)
	go fw.processEvents()

	return nil
}

// Stop stops watching and releases resources. It blocks until the event
// processing goroutine has exited, then closes Events() and Errors().
// Calling Stop more than once, or on a watcher never started, is safe.
func (fw *FileWatcher) Stop() error {
	fw.mu.Lock()
	if fw.stopped {
		fw.mu.Unlock()
		return nil
	}
	fw.stopped = true
	fw.running = false
	fw.mu.Unlock()

	// Signal shutdown
	close(fw.done)

	// Close the underlying watcher (this will unblock the event loop)
	err := fw.watcher.Close()

	fw.wg.Wait()

	close(fw.events)
	close(fw.errors)

	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// Events returns the channel that emits FileEvent notifications.
// This channel is closed when the watcher is stopped.
func (fw *FileWatcher) Events() <-chan FileEvent {
	return fw.events
}

// Errors returns the channel that emits error notifications.
// This channel is closed when the watcher is stopped.
func (fw *FileWatcher) Errors() <-chan error {
	return fw.errors
}

// IsRunning returns true if the watcher is currently running.
func (fw *FileWatcher) IsRunning() bool {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.running
}

// Matches reports whether path names the watched spreadsheet: its base name
// equals the configured file name and its extension is .xlsx.
func (fw *FileWatcher) Matches(path string) bool {
	if filepath.Base(path) != fw.fileName {
		return false
	}
	return strings.EqualFold(filepath.Ext(path), SpreadsheetExt)
}

func (fw *FileWatcher) processEvents() {
	defer fw.wg.Done()

	for {
		select {
		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			if fileEvent, ok := fw.convertEvent(event); ok {
				select {
				case fw.events <- fileEvent:
				case <-fw.done:
					return
				}
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}

			select {
			case fw.errors <- err:
			case <-fw.done:
				return
			}
		}
	}
}

// convertEvent converts an fsnotify event to a FileEvent.
// Returns (FileEvent{}, false) if the event should be ignored.
func (fw *FileWatcher) convertEvent(event fsnotify.Event) (FileEvent, bool) {
	if !fw.Matches(event.Name) {
		return FileEvent{}, false
	}

	var op EventOp
	switch {
	case event.Has(fsnotify.Write):
		op = OpModify
	case event.Has(fsnotify.Create):
		op = OpCreate
	default:
		// Remove, rename and chmod leave nothing new to read.
		return FileEvent{}, false
	}

	return FileEvent{Path: event.Name, Op: op}, true
}
