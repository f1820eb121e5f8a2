package sync

import (
	"fmt"
	"time"
)

// Outcome classifies how a sync run ended.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNoOp
	OutcomeValidationError
	OutcomeStructuralError
	OutcomeTableMissing
	OutcomeIOError
	OutcomeFailed
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoOp:
		return "no-op"
	case OutcomeValidationError:
		return "validation-error"
	case OutcomeStructuralError:
		return "structural-error"
	case OutcomeTableMissing:
		return "table-missing"
	case OutcomeIOError:
		return "io-error"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes one sync run.
type Result struct {
	RunID   string
	Outcome Outcome

	// Read is the number of data rows in the spreadsheet.
	Read int
	// Skipped is the number of rows dropped during normalization.
	Skipped int
	// Upserted is the number of rows written to the table.
	Upserted int

	Duration time.Duration

	// Err is nil for Success and NoOp.
	Err error
}

// OK reports whether the run ended without a problem.
func (r Result) OK() bool {
	return r.Outcome == OutcomeSuccess || r.Outcome == OutcomeNoOp
}

func (r Result) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Outcome, r.Err)
	}
	return fmt.Sprintf("%s: read=%d skipped=%d upserted=%d", r.Outcome, r.Read, r.Skipped, r.Upserted)
}
