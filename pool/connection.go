package pool

import (
	"context"
	"database/sql/driver"
	"sync"
	"time"
)

// Conn wraps a physical driver.Conn borrowed from a Pool.
type Conn struct {
	p         *Pool
	createdAt time.Time

	mu sync.Mutex // guards following
	driver.Conn
	closed   bool
	unusable bool

	// guarded by pool's mutex
	inUse bool
}

func (c *Conn) expired(timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	return c.createdAt.Add(timeout).Before(time.Now())
}

// validate reports whether an idle connection can be handed out again.
// Drivers that implement driver.Validator or driver.SessionResetter are asked;
// anything else is trusted.
func (c *Conn) validate(ctx context.Context) bool {
	if v, ok := c.Conn.(driver.Validator); ok && !v.IsValid() {
		return false
	}
	if r, ok := c.Conn.(driver.SessionResetter); ok {
		if err := r.ResetSession(ctx); err != nil {
			return false
		}
	}
	return true
}

func (c *Conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.inUse = false
	c.closed = true
	_ = c.Conn.Close()
}

func (c *Conn) isUnusable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.unusable
}

// MarkUnusable marks the connection not usable any more, to let the pool close it instead of returning it to pool.
func (c *Conn) MarkUnusable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unusable = true
}

// Release releases the connection and puts it back to the connection pool
func (c *Conn) Release() {
	if c.isUnusable() {
		c.p.putConn(c, driver.ErrBadConn)
		return
	}
	c.p.putConn(c, nil)
}
