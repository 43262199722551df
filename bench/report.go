package bench

import (
	"fmt"

	"go.uber.org/zap"
)

// Reporter receives the summary of every finished scenario.
type Reporter interface {
	Report(Summary)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Summary)

func (f ReporterFunc) Report(s Summary) { f(s) }

// Reporters fans a summary out to each reporter in order.
type Reporters []Reporter

func (rs Reporters) Report(s Summary) {
	for _, r := range rs {
		r.Report(s)
	}
}

// LogReporter writes one line per scenario: the tag and the elapsed whole milliseconds.
type LogReporter struct {
	Log *zap.Logger
}

func (r LogReporter) Report(s Summary) {
	if r.Log == nil {
		return
	}
	fields := []zap.Field{
		zap.String("scenario", s.Scenario),
		zap.Int64("elapsed_ms", s.Elapsed.Milliseconds()),
		zap.Int("iterations", s.Iterations),
		zap.Int("succeeded", s.Succeeded),
		zap.Int("failed", s.Failed),
	}
	if s.RunID != "" {
		fields = append(fields, zap.String("run_id", s.RunID))
	}
	if s.Stored >= 0 {
		fields = append(fields, zap.Int("stored", s.Stored))
	}
	if s.Pool != nil {
		fields = append(fields, zap.Uint64("connections_created", s.Pool.Created))
	}
	if s.FirstErr != nil {
		fields = append(fields, zap.NamedError("first_error", s.FirstErr))
	}
	r.Log.Info(fmt.Sprintf("[%s] elapsed: %dms", s.Scenario, s.Elapsed.Milliseconds()), fields...)
}
