package bench

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/banknovo/poolbench/pool"
)

// Scenario tags and the literal each scenario inserts.
const (
	DirectScenario    = "DirectConnection"
	PooledScenario    = "ConnectionPool"
	PgxPooledScenario = "PgxPool"

	DirectValue = "Direct Connection Test"
	PooledValue = "Connection Pool Test"
)

// ErrUnsupported is returned by scenarios that cannot run against the configured driver.
var ErrUnsupported = errors.New("scenario not supported for driver")

// Scenario is one timed loop of inserts using a specific connection strategy.
type Scenario interface {
	// Name tags the scenario in logs and summaries.
	Name() string
	// Value is the literal every insert writes.
	Value() string
	// Run executes the loop. Per-insert failures are counted in the Summary;
	// an error means the scenario could not start.
	Run(ctx context.Context) (Summary, error)
}

// Outcome is the result of one insert.
type Outcome struct {
	Iteration int
	Err       error
}

// Summary aggregates one scenario run.
type Summary struct {
	RunID    string
	Scenario string
	Value    string

	Iterations int // inserts attempted
	Succeeded  int
	Failed     int
	FirstErr   error

	// Elapsed covers the insert loop only.
	Elapsed time.Duration

	// Stored is the number of rows holding Value after the loop, or -1 if not verified.
	Stored int

	// Pool is a snapshot of pool statistics taken after the loop, nil for the direct scenario.
	Pool *pool.Stats
}

func (s *Summary) record(o Outcome) {
	s.Iterations++
	if o.Err == nil {
		s.Succeeded++
		return
	}
	s.Failed++
	if s.FirstErr == nil {
		s.FirstErr = o.Err
	}
}

type stopwatch struct {
	start time.Time
}

func startStopwatch() stopwatch {
	return stopwatch{start: time.Now()}
}

func (s stopwatch) elapsed() time.Duration {
	return time.Since(s.start)
}

// runLoop calls insert n times in sequence and times the loop. A failed insert
// is logged and the loop moves on. The loop stops early only if ctx is done.
func runLoop(ctx context.Context, log *zap.Logger, name, value string, n int, insert func(context.Context) error) Summary {
	s := Summary{Scenario: name, Value: value, Stored: -1}

	sw := startStopwatch()
	for i := 0; i < n; i++ {
		if ctx.Err() != nil {
			break
		}
		o := Outcome{Iteration: i, Err: insert(ctx)}
		if o.Err != nil {
			log.Error("insert failed", zap.String("scenario", name), zap.Int("iteration", i), zap.Error(o.Err))
		}
		s.record(o)
	}
	s.Elapsed = sw.elapsed()

	if err := ctx.Err(); err != nil && s.Iterations < n {
		log.Warn("scenario interrupted", zap.String("scenario", name), zap.Int("attempted", s.Iterations), zap.Int("planned", n), zap.Error(err))
	}
	return s
}
