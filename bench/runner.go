package bench

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// teardownTimeout bounds the drop issued after the caller's context is done.
const teardownTimeout = 10 * time.Second

// ErrNoFixture is returned by Runner.Run when Fixture is nil.
var ErrNoFixture = errors.New("runner: fixture is required")

// Runner drives scenarios one after another, each wrapped in fixture setup and teardown.
type Runner struct {
	Fixture  *Fixture // required
	Reporter Reporter
	// Verify counts the rows each scenario stored before the table is dropped.
	Verify bool
	Log    *zap.Logger
}

// Run executes scenarios in order and returns their summaries. A setup
// failure stops the run before the scenario executes and is returned wrapped
// in ErrSetup. Teardown failures are only logged. Once ctx is done the scenario
// in flight is reported and its table dropped, then Run returns ctx.Err().
func (r *Runner) Run(ctx context.Context, scenarios ...Scenario) ([]Summary, error) {
	if r.Fixture == nil {
		return nil, ErrNoFixture
	}
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}
	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))

	summaries := make([]Summary, 0, len(scenarios))
	for _, sc := range scenarios {
		if err := r.Fixture.Setup(ctx); err != nil {
			return summaries, err
		}

		log.Debug("scenario starting", zap.String("scenario", sc.Name()))
		s, err := sc.Run(ctx)
		if err != nil {
			r.teardown(ctx)
			return summaries, fmt.Errorf("%s: %w", sc.Name(), err)
		}
		s.RunID = runID

		if r.Verify {
			n, err := r.Fixture.Count(ctx, sc.Value())
			if err != nil {
				log.Error("verify stored rows", zap.String("scenario", sc.Name()), zap.Error(err))
			} else {
				s.Stored = n
			}
		}

		if r.Reporter != nil {
			r.Reporter.Report(s)
		}
		r.teardown(ctx)
		summaries = append(summaries, s)
		if err := ctx.Err(); err != nil {
			return summaries, err
		}
	}
	return summaries, nil
}

// teardown drops the table even if ctx was cancelled mid-scenario.
// Failures are logged by the fixture.
func (r *Runner) teardown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()
	_ = r.Fixture.Teardown(ctx)
}
