package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banknovo/poolbench/bench"
	"github.com/banknovo/poolbench/pool"
)

func TestRecorder_Report(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)

	var _ bench.Reporter = r

	r.Report(bench.Summary{
		Scenario:  bench.DirectScenario,
		Succeeded: 4998,
		Failed:    2,
		Elapsed:   2500 * time.Millisecond,
		Stored:    4998,
	})
	r.Report(bench.Summary{
		Scenario:  bench.PooledScenario,
		Succeeded: 5000,
		Elapsed:   500 * time.Millisecond,
		Stored:    -1,
		Pool:      &pool.Stats{MaxOpenConnections: 10, Created: 1},
	})

	assert.Equal(t, 2.5, testutil.ToFloat64(r.elapsed.WithLabelValues(bench.DirectScenario)))
	assert.Equal(t, 0.5, testutil.ToFloat64(r.elapsed.WithLabelValues(bench.PooledScenario)))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.inserts.WithLabelValues(bench.DirectScenario, "failure")))
	assert.Equal(t, float64(5000), testutil.ToFloat64(r.inserts.WithLabelValues(bench.PooledScenario, "success")))
	assert.Equal(t, float64(4998), testutil.ToFloat64(r.stored.WithLabelValues(bench.DirectScenario)))
	assert.Equal(t, 1, testutil.CollectAndCount(r.stored), "unverified summaries leave no stored series")
	assert.Equal(t, float64(1), testutil.ToFloat64(r.created.WithLabelValues(bench.PooledScenario)))
	assert.Equal(t, float64(10), testutil.ToFloat64(r.maxOpen.WithLabelValues(bench.PooledScenario)))
	assert.Equal(t, 1, testutil.CollectAndCount(r.created))
}

func TestNewRecorder_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewRecorder(reg)
	require.NoError(t, err)
	_, err = NewRecorder(reg)
	require.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := NewRecorder(reg)
	require.NoError(t, err)
	r.Report(bench.Summary{Scenario: bench.DirectScenario, Elapsed: time.Second, Stored: -1})

	path := filepath.Join(t.TempDir(), "poolbench.prom")
	require.NoError(t, WriteFile(path, reg))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), `poolbench_scenario_elapsed_seconds{scenario="DirectConnection"} 1`)
}
