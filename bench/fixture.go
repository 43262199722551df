package bench

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrSetup is wrapped by fixture setup failures. A run cannot proceed past it.
var ErrSetup = errors.New("database setup failed")

// Fixture creates the scratch table before a scenario and drops it after.
// Every call opens its own connection and closes it before returning.
type Fixture struct {
	target *Target
	log    *zap.Logger
}

// NewFixture returns a fixture for target. A nil logger discards output.
func NewFixture(target *Target, log *zap.Logger) *Fixture {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fixture{target: target, log: log}
}

// Setup creates the scratch table if it does not exist.
func (f *Fixture) Setup(ctx context.Context) error {
	if err := f.exec(ctx, f.target.Dialect.CreateTable(f.target.Config.Table)); err != nil {
		f.log.Error("database setup failed", zap.String("endpoint", f.target.Config.Endpoint.String()), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrSetup, err)
	}
	f.log.Info("[Start] database setup complete", zap.String("table", f.target.Config.Table))
	return nil
}

// Teardown drops the scratch table if it exists. Failures are logged and
// returned; callers are not expected to act on them.
func (f *Fixture) Teardown(ctx context.Context) error {
	if err := f.exec(ctx, f.target.Dialect.DropTable(f.target.Config.Table)); err != nil {
		f.log.Error("database tear down failed", zap.String("table", f.target.Config.Table), zap.Error(err))
		return fmt.Errorf("teardown: %w", err)
	}
	f.log.Info("[End] database tear down complete", zap.String("table", f.target.Config.Table))
	return nil
}

// Count returns the number of scratch rows holding value.
func (f *Fixture) Count(ctx context.Context, value string) (int, error) {
	db := sql.OpenDB(f.target.Connector)
	defer func() { _ = db.Close() }()

	var n int
	if err := db.QueryRowContext(ctx, f.target.Dialect.CountByValue(f.target.Config.Table), value).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

func (f *Fixture) exec(ctx context.Context, query string) error {
	db := sql.OpenDB(f.target.Connector)
	defer func() { _ = db.Close() }()

	_, err := db.ExecContext(ctx, query)
	return err
}
