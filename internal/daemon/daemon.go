package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	syncer "github.com/assinatura-email/sheetsync/internal/sync"
)

// Runner performs one sync run. *sync.Syncer implements it.
type Runner interface {
	Run(ctx context.Context) syncer.Result
}

// Config holds configuration for the daemon.
type Config struct {
	// Folder is the directory to watch.
	Folder string

	// FileName is the spreadsheet's base name inside Folder.
	FileName string

	// DebounceInterval is how long the folder must be quiet before a sync
	// is requested. Zero requests a sync on every matching event.
	DebounceInterval time.Duration

	// SyncOnStart requests one sync as soon as watching begins.
	SyncOnStart bool

	// Logger for daemon activity
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 500 * time.Millisecond,
		Logger:           slog.Default(),
	}
}

// Stats counts daemon activity since Start.
type Stats struct {
	Events    int
	Triggers  int
	Runs      int
	Coalesced int
	Last      *syncer.Result
}

// Daemon orchestrates file watching and sync runs.
type Daemon struct {
	runner  Runner
	config  *Config
	logger  *slog.Logger
	watcher *FileWatcher

	// pending is the single queue slot drained by the worker.
	pending chan struct{}

	mu    sync.Mutex
	timer *time.Timer
	stats Stats

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a daemon that calls runner for every debounced change.
func New(runner Runner, config *Config) (*Daemon, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.DebounceInterval < 0 {
		return nil, fmt.Errorf("debounce interval cannot be negative")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	watcher, err := NewFileWatcher(config.Folder, config.FileName)
	if err != nil {
		return nil, err
	}

	return &Daemon{
		runner:  runner,
		config:  config,
		logger:  config.Logger.With("component", "daemon"),
		watcher: watcher,
		pending: make(chan struct{}, 1),
	}, nil
}

// Start begins watching and blocks until ctx is cancelled, then shuts down
// and returns nil. It returns an error only if the folder cannot be watched.
func (d *Daemon) Start(ctx context.Context) error {
	if err := d.watcher.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	d.mu.Lock()
	d.cancel = cancel
	d.mu.Unlock()

	d.logger.Info("watching for changes", "folder", d.config.Folder, "file", d.config.FileName)

	d.wg.Add(2)
	go d.watchFileEvents(ctx)
	go d.worker(ctx)

	if d.config.SyncOnStart {
		d.enqueue()
	}

	<-ctx.Done()
	d.logger.Info("shutdown signal received")
	return d.Stop()
}

// Stop gracefully shuts down the daemon. An in-flight sync is cancelled.
func (d *Daemon) Stop() error {
	var err error
	d.stopOnce.Do(func() {
		d.mu.Lock()
		if d.timer != nil {
			d.timer.Stop()
		}
		cancel := d.cancel
		d.mu.Unlock()

		if cancel != nil {
			cancel()
		}

		if stopErr := d.watcher.Stop(); stopErr != nil {
			d.logger.Error("error closing watcher", "error", stopErr)
			err = stopErr
		}

		d.wg.Wait()
		d.logger.Info("monitoring stopped")
	})
	return err
}

// Trigger requests a sync after the debounce interval. Calls within the
// interval are folded into one request.
func (d *Daemon) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stats.Triggers++

	if d.config.DebounceInterval == 0 {
		d.enqueueLocked()
		return
	}
	if d.timer == nil {
		d.timer = time.AfterFunc(d.config.DebounceInterval, d.enqueue)
		return
	}
	d.timer.Reset(d.config.DebounceInterval)
}

// Stats returns a snapshot of the daemon counters.
func (d *Daemon) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.stats
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	return s
}

func (d *Daemon) enqueue() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enqueueLocked()
}

// enqueueLocked fills the queue slot, or counts the request as coalesced
// when a sync is already waiting.
func (d *Daemon) enqueueLocked() {
	select {
	case d.pending <- struct{}{}:
	default:
		d.stats.Coalesced++
		d.logger.Debug("sync already queued; request coalesced")
	}
}

// watchFileEvents turns watcher events into sync requests.
func (d *Daemon) watchFileEvents(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.watcher.Events():
			if !ok {
				return
			}

			d.mu.Lock()
			d.stats.Events++
			d.mu.Unlock()

			d.logger.Info("spreadsheet change detected", "op", event.Op.String(), "path", event.Path)
			d.Trigger()

		case err, ok := <-d.watcher.Errors():
			if !ok {
				return
			}
			d.logger.Error("watcher error", "error", err)
		}
	}
}

// worker runs queued syncs one at a time.
func (d *Daemon) worker(ctx context.Context) {
	defer d.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case <-d.pending:
			res := d.runner.Run(ctx)

			d.mu.Lock()
			d.stats.Runs++
			d.stats.Last = &res
			d.mu.Unlock()

			d.logger.Debug("sync finished", "run_id", res.RunID, "outcome", res.Outcome.String())
		}
	}
}
