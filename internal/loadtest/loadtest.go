// Package loadtest provides load testing utilities for the sync pipeline.
//
// It generates realistic employee spreadsheets, times repeated sync runs
// against a database and hammers the upsert path from concurrent
// connections to check that no badge code is ever stored twice.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/assinatura-email/sheetsync/internal/schema"
	"github.com/assinatura-email/sheetsync/internal/store"
	syncer "github.com/assinatura-email/sheetsync/internal/sync"
)

// Runner performs one sync run.
type Runner interface {
	Run(ctx context.Context) syncer.Result
}

// SheetShape describes a generated spreadsheet.
type SheetShape struct {
	// Rows is the number of data rows.
	Rows int
	// IncompletePct is the fraction of rows written without an email.
	IncompletePct float64
	// DuplicatePct is the fraction of rows reusing an earlier badge code.
	DuplicatePct float64
	// Seed makes generation deterministic.
	Seed int64
}

// SheetInfo summarizes a generated spreadsheet.
type SheetInfo struct {
	Rows       int
	Incomplete int
	Duplicates int
	// Unique is the number of distinct badge codes among complete rows.
	Unique int
}

// LatencyStats captures performance metrics from load tests.
type LatencyStats struct {
	Min       time.Duration
	Max       time.Duration
	Mean      time.Duration
	P50       time.Duration // Median
	P95       time.Duration
	P99       time.Duration
	TotalRuns int
	Failures  int
	Durations []time.Duration
}

var roles = []string{"Analista", "Assistente", "Coordenador", "Gerente", "Técnico"}

// GenerateEmployees creates shape.Rows employees. Incomplete rows have an
// empty Email; duplicates reuse the badge code of an earlier row.
func GenerateEmployees(shape SheetShape) ([]schema.Employee, SheetInfo) {
	rng := rand.New(rand.NewSource(shape.Seed))
	employees := make([]schema.Employee, 0, shape.Rows)
	complete := make(map[string]bool)
	info := SheetInfo{Rows: shape.Rows}

	for i := 0; i < shape.Rows; i++ {
		badge := fmt.Sprintf("%06d", i+1)
		if i > 0 && rng.Float64() < shape.DuplicatePct {
			badge = employees[rng.Intn(len(employees))].BadgeCode
			info.Duplicates++
		}

		e := schema.Employee{
			BadgeCode: badge,
			Name:      fmt.Sprintf("Funcionário %d", i+1),
			Role:      roles[i%len(roles)],
			Email:     fmt.Sprintf("func%d@example.com", i+1),
		}
		if rng.Float64() < shape.IncompletePct {
			e.Email = ""
			info.Incomplete++
		} else {
			complete[badge] = true
		}
		employees = append(employees, e)
	}

	info.Unique = len(complete)
	return employees, info
}

// WriteSpreadsheet writes a header row and employees to w as an .xlsx
// workbook. Badge codes are written as text so leading zeros survive.
func WriteSpreadsheet(w io.Writer, employees []schema.Employee) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("failed to create stream writer: %w", err)
	}

	header := make([]any, len(schema.Columns))
	for i, c := range schema.Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, e := range employees {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{e.BadgeCode, e.Name, e.Role, nil}
		if e.Email != "" {
			row[3] = e.Email
		}
		if err := sw.SetRow(cell, row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("failed to flush rows: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// GenerateSpreadsheet generates employees from shape and saves them to path.
func GenerateSpreadsheet(path string, shape SheetShape) (SheetInfo, error) {
	employees, info := GenerateEmployees(shape)

	f, err := os.Create(path)
	if err != nil {
		return info, fmt.Errorf("failed to create spreadsheet: %w", err)
	}
	if err := WriteSpreadsheet(f, employees); err != nil {
		f.Close()
		return info, err
	}
	return info, f.Close()
}

// RunSyncs performs runs sequential sync runs and returns their latency.
// Runs that do not end OK are counted as failures.
func RunSyncs(ctx context.Context, runner Runner, runs int) (*LatencyStats, error) {
	if runs < 1 {
		return nil, fmt.Errorf("runs must be positive, got %d", runs)
	}

	durations := make([]time.Duration, 0, runs)
	failures := 0
	for i := 0; i < runs; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res := runner.Run(ctx)
		durations = append(durations, res.Duration)
		if !res.OK() {
			failures++
		}
	}

	stats := computeLatencyStats(durations)
	stats.Failures = failures
	return stats, nil
}

// VerifyConcurrentUpserts upserts the same employees from numWorkers
// connections at once, rounds times each, then checks that the table holds
// exactly one row per distinct badge code.
func VerifyConcurrentUpserts(ctx context.Context, database *store.DB, employees []schema.Employee, numWorkers, rounds int) error {
	var wg sync.WaitGroup
	errorsChan := make(chan error, numWorkers)

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for r := 0; r < rounds; r++ {
				conn, err := database.Conn(ctx)
				if err != nil {
					errorsChan <- fmt.Errorf("worker %d: %w", workerID, err)
					return
				}
				_, err = conn.UpsertEmployees(ctx, employees)
				conn.Close()
				if err != nil {
					errorsChan <- fmt.Errorf("worker %d round %d: %w", workerID, r, err)
					return
				}
			}
		}(i)
	}

	wg.Wait()
	close(errorsChan)

	for err := range errorsChan {
		if err != nil {
			return err
		}
	}

	unique := make(map[string]bool, len(employees))
	for _, e := range employees {
		unique[e.BadgeCode] = true
	}

	count, err := database.CountRowsContext(ctx)
	if err != nil {
		return err
	}
	if count != len(unique) {
		return fmt.Errorf("table has %d rows, want %d", count, len(unique))
	}
	return nil
}

// computeLatencyStats calculates statistics from a slice of durations.
func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := make([]time.Duration, len(durations))
	copy(sorted, durations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return &LatencyStats{
		Min:       sorted[0],
		Max:       sorted[len(sorted)-1],
		Mean:      sum / time.Duration(len(durations)),
		P50:       sorted[len(sorted)*50/100],
		P95:       sorted[len(sorted)*95/100],
		P99:       sorted[len(sorted)*99/100],
		TotalRuns: len(durations),
		Durations: sorted,
	}
}

// WriteStats formats latency statistics to w.
func (s *LatencyStats) WriteStats(w io.Writer) {
	fmt.Fprintf(w, "Latency Statistics:\n")
	fmt.Fprintf(w, "  Total Runs:    %d\n", s.TotalRuns)
	fmt.Fprintf(w, "  Failures:      %d\n", s.Failures)
	fmt.Fprintf(w, "  Min:           %v\n", s.Min)
	fmt.Fprintf(w, "  P50 (Median):  %v\n", s.P50)
	fmt.Fprintf(w, "  Mean:          %v\n", s.Mean)
	fmt.Fprintf(w, "  P95:           %v\n", s.P95)
	fmt.Fprintf(w, "  P99:           %v\n", s.P99)
	fmt.Fprintf(w, "  Max:           %v\n", s.Max)
}
