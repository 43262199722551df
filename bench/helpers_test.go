package bench

import (
	"context"
	"database/sql/driver"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/banknovo/poolbench/dialect"
)

// testInsertCount keeps file-backed sqlite runs short.
const testInsertCount = 50

func sqliteConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Endpoint = dialect.Endpoint{Driver: dialect.SQLite, Database: filepath.Join(t.TempDir(), "bench.db")}
	cfg.InsertCount = testInsertCount
	return cfg
}

func sqliteTarget(t *testing.T) *Target {
	t.Helper()
	target, err := NewTarget(sqliteConfig(t))
	require.NoError(t, err)
	return target
}

// withConnector returns a copy of target whose connections come from c.
func withConnector(target *Target, c driver.Connector) *Target {
	cp := *target
	cp.Connector = c
	return &cp
}

var errFlaky = errors.New("flaky: connection refused")

// flakyConnector fails every nth Connect and counts calls.
type flakyConnector struct {
	driver.Connector

	mu    sync.Mutex
	every int
	from  int
	calls int
}

func (f *flakyConnector) Connect(ctx context.Context) (driver.Conn, error) {
	f.mu.Lock()
	f.calls++
	calls := f.calls
	f.mu.Unlock()

	if f.every > 0 && calls%f.every == 0 {
		return nil, errFlaky
	}
	if f.from > 0 && calls >= f.from {
		return nil, errFlaky
	}
	return f.Connector.Connect(ctx)
}

func (f *flakyConnector) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// stubScenario records whether it ran.
type stubScenario struct {
	ran bool
	err error
}

func (s *stubScenario) Name() string  { return "Stub" }
func (s *stubScenario) Value() string { return "stub" }
func (s *stubScenario) Run(ctx context.Context) (Summary, error) {
	s.ran = true
	if s.err != nil {
		return Summary{}, s.err
	}
	return Summary{Scenario: s.Name(), Value: s.Value(), Stored: -1}, nil
}

// cancelingScenario cancels the run's context part way through, as SIGINT does.
type cancelingScenario struct {
	cancel context.CancelFunc
}

func (s *cancelingScenario) Name() string  { return "Canceling" }
func (s *cancelingScenario) Value() string { return "canceling" }
func (s *cancelingScenario) Run(ctx context.Context) (Summary, error) {
	s.cancel()
	return Summary{Scenario: s.Name(), Value: s.Value(), Stored: -1}, nil
}
