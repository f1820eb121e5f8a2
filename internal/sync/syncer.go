package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/assinatura-email/sheetsync/internal/schema"
	"github.com/assinatura-email/sheetsync/internal/sheet"
	"github.com/assinatura-email/sheetsync/internal/store"
)

// DefaultSettleDelay is how long a run waits before reading, giving the
// program that saved the spreadsheet time to finish writing it.
const DefaultSettleDelay = 2 * time.Second

// Options configures a Syncer.
type Options struct {
	// Path is the spreadsheet file.
	Path string
	// SheetName selects the worksheet; empty means the first one.
	SheetName string
	// SettleDelay is waited before reading. Zero disables the wait.
	SettleDelay time.Duration

	StrictHeaders   bool
	ExpectedHeaders []string
}

// Syncer performs sync runs against one spreadsheet and one table.
type Syncer struct {
	db     *store.DB
	opts   Options
	logger *slog.Logger
}

// New creates a Syncer.
//
// If logger is nil, slog.Default() is used.
func New(database *store.DB, opts Options, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Syncer{
		db:     database,
		opts:   opts,
		logger: logger.With("component", "sync"),
	}
}

// Run performs one sync run. It never panics and never returns an error;
// see Result.Outcome.
func (s *Syncer) Run(ctx context.Context) (res Result) {
	res.RunID = uuid.NewString()
	logger := s.logger.With("run_id", res.RunID)
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("panic during sync: %v", r)
		}
		res.Duration = time.Since(start)
		s.report(logger, res)
	}()

	logger.Info("reading spreadsheet", "path", s.opts.Path)

	if err := sleep(ctx, s.opts.SettleDelay); err != nil {
		return s.fail(res, OutcomeIOError, err)
	}

	table, err := sheet.ReadFile(s.opts.Path, s.opts.SheetName)
	if err != nil {
		if errors.Is(err, sheet.ErrNoSheet) {
			return s.fail(res, OutcomeStructuralError, err)
		}
		return s.fail(res, OutcomeIOError, err)
	}
	res.Read = table.Len()

	if table.Len() == 0 {
		res.Outcome = OutcomeNoOp
		return res
	}
	logger.Debug("columns found", "columns", table.Header)

	batch, err := sheet.Normalize(table, sheet.Options{
		StrictHeaders:   s.opts.StrictHeaders,
		ExpectedHeaders: s.opts.ExpectedHeaders,
	})
	if len(batch.DroppedColumns) > 0 {
		logger.Info("dropped duplicate columns", "columns", batch.DroppedColumns)
	}
	if err != nil {
		return s.fail(res, classify(err), err)
	}
	res.Skipped = batch.Skipped
	if !s.opts.StrictHeaders {
		if err := sheet.CheckHeaders(batch.Headers, s.expectedHeaders()); err != nil {
			logger.Debug("headers differ from expected columns; mapping by position", "error", err)
		}
	}
	if batch.DuplicateBadges > 0 {
		logger.Warn("badge codes repeated in spreadsheet; last row wins", "count", batch.DuplicateBadges)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return s.fail(res, classify(err), err)
	}
	defer conn.Close()

	exists, err := conn.TableExists(ctx)
	if err != nil {
		return s.fail(res, classify(err), err)
	}
	if !exists {
		return s.fail(res, OutcomeTableMissing, fmt.Errorf("%w: %s", store.ErrTableMissing, s.db.Table()))
	}

	n, err := conn.UpsertEmployees(ctx, batch.Employees)
	if err != nil {
		return s.fail(res, classify(err), err)
	}
	res.Upserted = n
	res.Outcome = OutcomeSuccess
	return res
}

func (s *Syncer) expectedHeaders() []string {
	if len(s.opts.ExpectedHeaders) > 0 {
		return s.opts.ExpectedHeaders
	}
	return schema.Columns
}

func (s *Syncer) fail(res Result, outcome Outcome, err error) Result {
	res.Outcome = outcome
	res.Err = err
	return res
}

// report logs one human-readable line for the finished run.
func (s *Syncer) report(logger *slog.Logger, res Result) {
	attrs := []any{
		"outcome", res.Outcome.String(),
		"read", res.Read,
		"skipped", res.Skipped,
		"upserted", res.Upserted,
		"duration", res.Duration.Round(time.Millisecond),
	}

	switch res.Outcome {
	case OutcomeSuccess:
		logger.Info("update completed successfully", attrs...)
	case OutcomeNoOp:
		logger.Warn("spreadsheet has no data rows; nothing to update", attrs...)
	case OutcomeTableMissing:
		logger.Warn(fmt.Sprintf("table %q does not exist in the database", s.db.Table()), attrs...)
	case OutcomeFailed:
		if store.IsConstraintViolation(res.Err) {
			logger.Error("rows rejected by a database constraint; no row of this batch was written",
				append(attrs, "error", res.Err)...)
			return
		}
		logger.Error("failed to update the database", append(attrs, "error", res.Err)...)
	default:
		logger.Error("failed to update the database", append(attrs, "error", res.Err)...)
	}
}

// classify maps an error to the outcome of the run it ended.
func classify(err error) Outcome {
	switch {
	case errors.Is(err, sheet.ErrHeaderDrift):
		return OutcomeValidationError
	case errors.Is(err, sheet.ErrTooFewColumns), errors.Is(err, sheet.ErrNoSheet):
		return OutcomeStructuralError
	case errors.Is(err, store.ErrTableMissing):
		return OutcomeTableMissing
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission):
		return OutcomeIOError
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeIOError
	case store.IsConnectionError(err):
		return OutcomeIOError
	default:
		return OutcomeFailed
	}
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
