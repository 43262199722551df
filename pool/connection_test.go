package pool

import (
	"context"
	"database/sql/driver"
	"errors"
	"sync/atomic"
)

type fakeConnection struct {
	closed  *int32
	invalid bool
}

func (c *fakeConnection) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("not implemented")
}
func (c *fakeConnection) Close() error {
	if c.closed != nil {
		atomic.AddInt32(c.closed, 1)
	}
	return nil
}
func (c *fakeConnection) Begin() (driver.Tx, error) {
	return nil, errors.New("not implemented")
}
func (c *fakeConnection) IsValid() bool {
	return !c.invalid
}

// fakeFactory hands out fakeConnections and counts opens and closes.
type fakeFactory struct {
	opened int32
	closed int32
	err    error
}

func (f *fakeFactory) open(ctx context.Context) (driver.Conn, error) {
	if f.err != nil {
		return nil, f.err
	}
	atomic.AddInt32(&f.opened, 1)
	return &fakeConnection{closed: &f.closed}, nil
}

func (f *fakeFactory) closes() int32 {
	return atomic.LoadInt32(&f.closed)
}
