// Package scheduler runs one extraction stage over a list of tickers with
// bounded parallelism. Tickers are partitioned into consecutive batches of
// the worker limit; every worker of a batch must terminate before the next
// batch starts. A single worker failing, or panicking, never takes down
// its siblings or later batches.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strings"
	"sync"

	"finscrape/internal/aggregate"
	"finscrape/internal/record"
)

// Stage names one extraction stage.
type Stage string

const (
	StageFundamentals Stage = "fundamentals"
	StageProfile      Stage = "profile"
	StageHolders      Stage = "holders"
	StageInsider      Stage = "insider transactions"
)

// allStages is the expansion order of the "all" selection.
var allStages = []Stage{StageFundamentals, StageProfile, StageHolders, StageInsider}

// ParseStages resolves a stage selection string ("fundamentals",
// "profile", "holders", "insider transactions", or "all") into the stages
// to run.
func ParseStages(target string) ([]Stage, error) {
	t := strings.ToLower(strings.TrimSpace(target))
	if t == "" {
		return nil, fmt.Errorf("no stage selected")
	}
	if strings.Contains(t, "all") {
		return allStages, nil
	}

	var out []Stage
	for _, s := range allStages {
		if strings.Contains(t, string(s)) {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("unknown stage selection %q", target)
	}
	return out, nil
}

// Worker processes one ticker for one stage and returns the partial record
// to publish. A nil record with a nil error publishes nothing.
type Worker func(ctx context.Context, ticker string) (*record.Record, error)

// Scheduler dispatches stage workers in batches.
type Scheduler struct {
	capacity    float64
	parallelism int
	logger      *slog.Logger
}

// New builds a scheduler. capacity is the fraction (0, 1] of available
// parallelism to use; out-of-range values are clamped. parallelism <= 0
// selects the runtime's.
func New(capacity float64, parallelism int, logger *slog.Logger) *Scheduler {
	if capacity <= 0 || capacity > 1 {
		capacity = 1
	}
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{capacity: capacity, parallelism: parallelism, logger: logger}
}

// MaxWorkers is floor(parallelism x capacity), never below 1.
func (s *Scheduler) MaxWorkers() int {
	n := int(math.Floor(float64(s.parallelism) * s.capacity))
	if n < 1 {
		n = 1
	}
	return n
}

// Batches partitions tickers into consecutive batches of MaxWorkers.
func (s *Scheduler) Batches(tickers []string) [][]string {
	size := s.MaxWorkers()
	var out [][]string
	for i := 0; i < len(tickers); i += size {
		end := i + size
		if end > len(tickers) {
			end = len(tickers)
		}
		out = append(out, tickers[i:end])
	}
	return out
}

// Run executes the stage for every ticker, publishing each worker's
// partial record into results. Per-ticker failures are logged and
// swallowed; Run itself only fails when nothing was scheduled.
func (s *Scheduler) Run(ctx context.Context, stage Stage, tickers []string, worker Worker, results *aggregate.Map) error {
	if len(tickers) == 0 {
		return fmt.Errorf("no tickers scheduled")
	}

	batches := s.Batches(tickers)
	s.logger.Info("stage scheduled",
		"stage", string(stage), "tickers", len(tickers),
		"max_workers", s.MaxWorkers(), "batches", len(batches))

	for i, batch := range batches {
		s.logger.Info("batch started",
			"stage", string(stage), "batch", i+1, "size", len(batch))

		var wg sync.WaitGroup
		for _, ticker := range batch {
			wg.Add(1)
			go func(ticker string) {
				defer wg.Done()
				s.runOne(ctx, stage, ticker, worker, results)
			}(ticker)
		}
		// Batch barrier: the next batch must not start until every
		// worker of this one has terminated.
		wg.Wait()
	}
	return nil
}

// runOne executes one worker with the scheduler's failure boundary: errors
// and panics are logged per ticker, and whatever the worker published
// before failing is retained.
func (s *Scheduler) runOne(ctx context.Context, stage Stage, ticker string, worker Worker, results *aggregate.Map) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("worker panicked",
				"stage", string(stage), "ticker", ticker, "panic", fmt.Sprint(r))
		}
	}()

	partial, err := worker(ctx, ticker)
	if err != nil {
		s.logger.Error("worker failed",
			"stage", string(stage), "ticker", ticker, "error", err.Error())
	}
	if partial != nil {
		results.Publish(ticker, partial)
	}
}
