package bench

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/banknovo/poolbench/dialect"
	"github.com/banknovo/poolbench/pool"
)

// PgxPooled is the pooled scenario backed by pgxpool instead of package pool.
// It only runs against postgres.
type PgxPooled struct {
	target *Target
	log    *zap.Logger
	pool   *pgxpool.Pool
}

// NewPgxPooled returns the pgxpool scenario. A nil logger discards output.
func NewPgxPooled(target *Target, log *zap.Logger) *PgxPooled {
	if log == nil {
		log = zap.NewNop()
	}
	return &PgxPooled{target: target, log: log}
}

func (p *PgxPooled) Name() string  { return PgxPooledScenario }
func (p *PgxPooled) Value() string { return PooledValue }

// Pool returns the pool built by the last Run. It is closed once Run returns.
func (p *PgxPooled) Pool() *pgxpool.Pool { return p.pool }

// Run builds a pgxpool with MaxConns = Config.MaxPoolSize and inserts
// Config.InsertCount rows through it.
func (p *PgxPooled) Run(ctx context.Context) (Summary, error) {
	cfg := p.target.Config
	if p.target.Dialect.Name() != dialect.Postgres {
		return Summary{}, fmt.Errorf("%w: %s needs postgres, have %s", ErrUnsupported, p.Name(), p.target.Dialect.Name())
	}

	pcfg, err := pgxpool.ParseConfig(dialect.PostgresURL(cfg.Endpoint))
	if err != nil {
		return Summary{}, fmt.Errorf("parse pgxpool config: %w", err)
	}
	pcfg.MaxConns = int32(cfg.MaxPoolSize) // bounded by Config.Validate
	pp, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return Summary{}, fmt.Errorf("build pgxpool: %w", err)
	}
	p.pool = pp

	query := p.target.Dialect.Insert(cfg.Table)
	s := runLoop(ctx, p.log, p.Name(), p.Value(), cfg.InsertCount, func(ctx context.Context) error {
		return p.insert(ctx, pp, query)
	})

	stats := pgxStats(pp.Stat())
	s.Pool = &stats
	pp.Close()
	return s, nil
}

func (p *PgxPooled) insert(ctx context.Context, pp *pgxpool.Pool, query string) error {
	conn, err := pp.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, query, PooledValue); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// pgxStats maps pgxpool counters onto pool.Stats so both pooled scenarios
// report the same shape.
func pgxStats(st *pgxpool.Stat) pool.Stats {
	return pool.Stats{
		MaxOpenConnections: int(st.MaxConns()),
		OpenConnections:    int(st.TotalConns()),
		InUse:              int(st.AcquiredConns()),
		Idle:               int(st.IdleConns()),
		Created:            uint64(st.NewConnsCount()),
		WaitCount:          uint64(st.EmptyAcquireCount()),
		MaxIdleClosed:      uint64(st.MaxIdleDestroyCount()),
		MaxLifetimeClosed:  uint64(st.MaxLifetimeDestroyCount()),
	}
}
