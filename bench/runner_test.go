package bench

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRunner_RunsBothScenarios(t *testing.T) {
	ctx := context.Background()
	target := sqliteTarget(t)
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	var reported []Summary
	r := &Runner{
		Fixture: NewFixture(target, log),
		Reporter: Reporters{
			LogReporter{Log: log},
			ReporterFunc(func(s Summary) { reported = append(reported, s) }),
		},
		Verify: true,
		Log:    log,
	}

	summaries, err := r.Run(ctx, NewDirect(target, log), NewPooled(target, log))
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, summaries, reported)

	assert.Equal(t, DirectScenario, summaries[0].Scenario)
	assert.Equal(t, testInsertCount, summaries[0].Stored)
	assert.Equal(t, PooledScenario, summaries[1].Scenario)
	assert.Equal(t, testInsertCount, summaries[1].Stored)
	assert.NotEmpty(t, summaries[0].RunID)
	assert.Equal(t, summaries[0].RunID, summaries[1].RunID)

	assert.Equal(t, 2, logs.FilterMessage("[Start] database setup complete").Len())
	assert.Equal(t, 2, logs.FilterMessage("[End] database tear down complete").Len())
	for _, s := range summaries {
		lines := logs.FilterMessageSnippet("[" + s.Scenario + "] elapsed: ").All()
		require.Len(t, lines, 1)
		assert.Equal(t, s.Elapsed.Milliseconds(), lines[0].ContextMap()["elapsed_ms"])
		assert.Equal(t, s.Scenario, lines[0].ContextMap()["scenario"])
	}

	// the scratch table is gone after the run
	_, err = r.Fixture.Count(ctx, DirectValue)
	require.Error(t, err)
}

func TestRunner_SetupFailureStopsRun(t *testing.T) {
	target := sqliteTarget(t)
	flaky := &flakyConnector{Connector: target.Connector, from: 1}
	r := &Runner{Fixture: NewFixture(withConnector(target, flaky), nil)}

	stub := &stubScenario{}
	summaries, err := r.Run(context.Background(), stub)
	require.ErrorIs(t, err, ErrSetup)
	assert.Empty(t, summaries)
	assert.False(t, stub.ran)
}

func TestRunner_TeardownFailureIsNotEscalated(t *testing.T) {
	target := sqliteTarget(t)
	// connect 1 is setup, connect 2 onwards (teardown) fails
	flaky := &flakyConnector{Connector: target.Connector, from: 2}
	core, logs := observer.New(zapcore.ErrorLevel)
	r := &Runner{Fixture: NewFixture(withConnector(target, flaky), zap.New(core))}

	summaries, err := r.Run(context.Background(), &stubScenario{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, logs.FilterMessage("database tear down failed").Len())
}

func TestRunner_ScenarioErrorStopsRun(t *testing.T) {
	target := sqliteTarget(t)
	boom := errors.New("pool misconfigured")
	r := &Runner{Fixture: NewFixture(target, nil)}

	second := &stubScenario{}
	_, err := r.Run(context.Background(), &stubScenario{err: boom}, second)
	require.ErrorIs(t, err, boom)
	assert.False(t, second.ran)
}

func TestRunner_InterruptedScenarioDropsTable(t *testing.T) {
	target := sqliteTarget(t)
	core, logs := observer.New(zapcore.InfoLevel)
	r := &Runner{Fixture: NewFixture(target, zap.New(core))}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	next := &stubScenario{}
	summaries, err := r.Run(ctx, &cancelingScenario{cancel: cancel}, next)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, summaries, 1)
	assert.False(t, next.ran)

	assert.Equal(t, 1, logs.FilterMessage("[End] database tear down complete").Len())
	_, err = r.Fixture.Count(context.Background(), "canceling")
	require.Error(t, err, "scratch table should be dropped")
}

func TestRunner_NilFixture(t *testing.T) {
	stub := &stubScenario{}
	_, err := (&Runner{}).Run(context.Background(), stub)
	require.ErrorIs(t, err, ErrNoFixture)
	assert.False(t, stub.ran)
}

func TestLogReporter(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	LogReporter{Log: zap.New(core)}.Report(Summary{
		RunID:      "run-1",
		Scenario:   DirectScenario,
		Iterations: 3,
		Succeeded:  2,
		Failed:     1,
		FirstErr:   errFlaky,
		Elapsed:    1500 * time.Millisecond,
		Stored:     -1,
	})

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "[DirectConnection] elapsed: 1500ms", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, int64(1500), fields["elapsed_ms"])
	assert.Equal(t, "run-1", fields["run_id"])
	assert.NotContains(t, fields, "stored")
	assert.Contains(t, fields, "first_error")

	LogReporter{}.Report(Summary{})
}
