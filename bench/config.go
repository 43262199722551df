// Package bench times sequential inserts through a fresh physical connection
// per insert against the same inserts through a bounded connection pool.
package bench

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"

	"github.com/banknovo/poolbench/dialect"
)

// Defaults mirror the fixed constants of the benchmark.
const (
	DefaultInsertCount = 5000
	DefaultMaxPoolSize = 10
	DefaultTable       = "test"
	DefaultHost        = "localhost"
	DefaultPort        = 5432
	DefaultUser        = "postgres"
	DefaultDatabase    = "postgres"
)

// ErrInvalidConfig is wrapped by Config.Validate failures.
var ErrInvalidConfig = errors.New("invalid config")

// Config is everything a scenario needs to reach the database and size its loop.
type Config struct {
	Endpoint    dialect.Endpoint
	Table       string
	InsertCount int
	MaxPoolSize int
}

// DefaultConfig returns the benchmark's fixed endpoint, credentials and sizes:
// a local postgres, user postgres with an empty password, 5000 inserts, pool size 10.
func DefaultConfig() Config {
	return Config{
		Endpoint: dialect.Endpoint{
			Driver:   dialect.Postgres,
			Host:     DefaultHost,
			Port:     DefaultPort,
			User:     DefaultUser,
			Password: "",
			Database: DefaultDatabase,
		},
		Table:       DefaultTable,
		InsertCount: DefaultInsertCount,
		MaxPoolSize: DefaultMaxPoolSize,
	}
}

// Validate checks the config is usable.
func (c Config) Validate() error {
	switch {
	case c.Endpoint.Driver == "":
		return fmt.Errorf("%w: driver is required", ErrInvalidConfig)
	case c.Endpoint.Driver != dialect.SQLite && c.Endpoint.Host == "":
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	case c.Endpoint.Driver == dialect.SQLite && c.Endpoint.Database == "":
		return fmt.Errorf("%w: sqlite database path is required", ErrInvalidConfig)
	case c.Table == "":
		return fmt.Errorf("%w: table is required", ErrInvalidConfig)
	case c.InsertCount < 0:
		return fmt.Errorf("%w: insert count must be >= 0", ErrInvalidConfig)
	case c.MaxPoolSize <= 0:
		return fmt.Errorf("%w: max pool size must be > 0", ErrInvalidConfig)
	case c.MaxPoolSize > math.MaxInt32:
		return fmt.Errorf("%w: max pool size must be <= %d", ErrInvalidConfig, math.MaxInt32)
	}
	return nil
}

// Target is a resolved Config: the dialect to speak and the connector that
// opens one physical connection per Connect call.
type Target struct {
	Config    Config
	Dialect   dialect.Dialect
	Connector driver.Connector
}

// NewTarget validates cfg and resolves its dialect and connector. No
// connection is opened.
func NewTarget(cfg Config) (*Target, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, err := dialect.Lookup(cfg.Endpoint.Driver)
	if err != nil {
		return nil, err
	}
	connector, err := d.Connector(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	return &Target{Config: cfg, Dialect: d, Connector: connector}, nil
}
