package bench

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/banknovo/poolbench/dialect"
)

// Direct opens and closes a physical connection for every insert.
type Direct struct {
	target *Target
	log    *zap.Logger
}

// NewDirect returns the direct-connection scenario. A nil logger discards output.
func NewDirect(target *Target, log *zap.Logger) *Direct {
	if log == nil {
		log = zap.NewNop()
	}
	return &Direct{target: target, log: log}
}

func (d *Direct) Name() string  { return DirectScenario }
func (d *Direct) Value() string { return DirectValue }

// Run inserts Config.InsertCount rows, each through a new connection.
func (d *Direct) Run(ctx context.Context) (Summary, error) {
	query := d.target.Dialect.Insert(d.target.Config.Table)
	s := runLoop(ctx, d.log, d.Name(), d.Value(), d.target.Config.InsertCount, func(ctx context.Context) error {
		return d.insert(ctx, query)
	})
	return s, nil
}

func (d *Direct) insert(ctx context.Context, query string) (err error) {
	conn, err := d.target.Connector.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close connection: %w", cerr)
		}
	}()

	_, err = dialect.Exec(ctx, conn, query, DirectValue)
	return err
}
