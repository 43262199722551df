package bench

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/banknovo/poolbench/dialect"
	"github.com/banknovo/poolbench/pool"
)

// Pooled borrows a connection from a bounded pool for every insert and
// returns it afterwards. The pool is built before the loop and closed after it.
type Pooled struct {
	target *Target
	log    *zap.Logger
	pool   *pool.Pool
}

// NewPooled returns the pooled-connection scenario. A nil logger discards output.
func NewPooled(target *Target, log *zap.Logger) *Pooled {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pooled{target: target, log: log}
}

func (p *Pooled) Name() string  { return PooledScenario }
func (p *Pooled) Value() string { return PooledValue }

// Pool returns the pool built by the last Run. It is closed once Run returns.
func (p *Pooled) Pool() *pool.Pool { return p.pool }

// Run builds a pool of Config.MaxPoolSize connections and inserts
// Config.InsertCount rows through it.
func (p *Pooled) Run(ctx context.Context) (Summary, error) {
	size := p.target.Config.MaxPoolSize
	cp, err := pool.New(&pool.Options{
		Factory:            p.target.Connector.Connect,
		MaxConnections:     size,
		MaxIdleConnections: size,
	})
	if err != nil {
		return Summary{}, fmt.Errorf("build pool: %w", err)
	}
	p.pool = cp

	query := p.target.Dialect.Insert(p.target.Config.Table)
	s := runLoop(ctx, p.log, p.Name(), p.Value(), p.target.Config.InsertCount, func(ctx context.Context) error {
		return p.insert(ctx, cp, query)
	})

	stats := cp.GetStats()
	s.Pool = &stats
	cp.Close()
	p.log.Debug("pool closed", zap.String("scenario", p.Name()), zap.Uint64("created", stats.Created))
	return s, nil
}

func (p *Pooled) insert(ctx context.Context, cp *pool.Pool, query string) error {
	conn, err := cp.Get(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Release()

	if _, err := dialect.Exec(ctx, conn.Conn, query, PooledValue); err != nil {
		if dialect.IsBadConn(err) {
			conn.MarkUnusable()
		}
		return err
	}
	return nil
}
