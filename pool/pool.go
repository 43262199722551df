// Package pool keeps a bounded set of physical database connections
// (database/sql/driver.Conn) for reuse across operations.
package pool

import (
	"context"
	"database/sql/driver"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrPoolClosed is returned when trying to get connection from a closed Pool
var ErrPoolClosed = errors.New("pool is closed")

// ErrTimedOut is returned when Pool has Options.MaxConnections connections open and no connection was released in Options.GetTimeout
var ErrTimedOut = errors.New("timed out in obtaining a connection")

// errBadConn marks a connection that must not be handed out again.
var errBadConn = driver.ErrBadConn

// maxBadConnRetries is how many cached connections Get tries before forcing a new one.
const maxBadConnRetries = 2

// Factory opens a new physical connection. A driver.Connector's Connect method satisfies it.
type Factory func(ctx context.Context) (driver.Conn, error)

// connReuseStrategy determines how Pool.conn returns database connections.
type connReuseStrategy uint8

const (
	// alwaysNewConn forces a new connection to the database.
	alwaysNewConn connReuseStrategy = iota
	// cachedOrNewConn returns a cached connection, if available, else waits
	// for one to become available (if Pool.maxOpen has been reached) or
	// creates a new database connection.
	cachedOrNewConn
)

// connRequest represents one request for a new Conn
// When there are no idle connections available, Pool.conn will create
// a new connRequest and put it on the Pool.connRequests list.
type connRequest struct {
	conn *Conn
	err  error
}

// Pool is a connection pool of underlying database connections.
// It is safe to be used by multiple goroutines
type Pool struct {
	waitDuration int64 // Total time waited for new connections.

	factory Factory

	mu           sync.Mutex
	freeConn     []*Conn
	connRequests map[uint64]chan connRequest
	nextRequest  uint64 // Next key to use in connRequests
	numOpen      int    // number of opened and pending open connections
	maxOpen      int    // max number of open connections, 0 is unbounded
	maxIdle      int    // max number of idle connections

	// Used to signal the need for new connections
	// a goroutine running connectionOpener() reads on this chan and
	// maybeOpenNewConnections sends on the chan (one send per needed connection)
	// The opener exits when stop is called during Pool.Close.
	openerCh  chan struct{}
	stop      context.CancelFunc
	cleanerCh chan struct{} // closed to stop the cleaner when the pool closes

	maxLifeTime   time.Duration // maximum amount of time a Conn may be reused
	cleanInterval time.Duration // how often the cleaner looks for expired idle connections
	maxWaitTime   time.Duration // maximum amount of time to wait for a Conn before throwing error
	closed        bool

	// used for stats
	created           uint64 // Total number of connections opened by the factory.
	waitCount         uint64 // Total number of connections waited for.
	maxIdleClosed     uint64 // Total number of connections closed due to idle.
	maxLifetimeClosed uint64 // Total number of connections closed due to max free limit.
}

// New returns a new pool which needs to be closed by calling Pool.Close.
func New(opts *Options) (*Pool, error) {
	if opts == nil {
		return nil, errors.New("options are required")
	}
	if err := opts.validate(); err != nil {
		return nil, err
	}

	// this needs to be greater than MaxConnections so that we don't block adding into the queue
	connectionRequestQueueSize := opts.MaxConnections + 1

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		factory:       opts.Factory,
		connRequests:  make(map[uint64]chan connRequest),
		maxOpen:       opts.MaxConnections,
		maxIdle:       opts.MaxIdleConnections,
		openerCh:      make(chan struct{}, connectionRequestQueueSize),
		stop:          cancel,
		maxLifeTime:   opts.ConnLifeTime,
		cleanInterval: opts.ConnCleanTime,
		maxWaitTime:   opts.GetTimeout,
	}

	go p.connectionOpener(ctx)

	return p, nil
}

// Get returns a single Conn by either opening a new Conn
// or returning an existing Conn from the Conn pool.
//
// Every Conn must be returned to the pool after use by calling Conn.Release.
// A Conn whose session went bad should be marked with Conn.MarkUnusable first.
func (p *Pool) Get(ctx context.Context) (*Conn, error) {
	var conn *Conn
	var err error

	// try to get a cached connection, if it keeps failing, open a new connection and return
	for i := 0; i < maxBadConnRetries; i++ {
		conn, err = p.conn(ctx, cachedOrNewConn)
		if !errors.Is(err, errBadConn) {
			break
		}
	}
	if errors.Is(err, errBadConn) {
		conn, err = p.conn(ctx, alwaysNewConn)
	}
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// Close closes the pool and all idle connections.
// Connections still in use are closed when they are released.
// A pool cannot be used after it is closed.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.stop()
	if p.cleanerCh != nil {
		close(p.cleanerCh)
		p.cleanerCh = nil
	}
	free := p.freeConn
	p.freeConn = nil
	p.numOpen -= len(free)
	for key, req := range p.connRequests {
		delete(p.connRequests, key)
		close(req)
	}
	p.mu.Unlock()

	for _, c := range free {
		c.close()
	}
}

func (p *Pool) conn(ctx context.Context, strategy connReuseStrategy) (*Conn, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	select {
	default:
	case <-ctx.Done():
		p.mu.Unlock()
		return nil, ctx.Err()
	}
	lifetime := p.maxLifeTime

	// check if there is a free Conn
	numFree := len(p.freeConn)
	if strategy == cachedOrNewConn && numFree > 0 {
		conn := p.freeConn[0]
		copy(p.freeConn, p.freeConn[1:])
		p.freeConn[numFree-1] = nil
		p.freeConn = p.freeConn[:numFree-1]
		conn.inUse = true
		p.mu.Unlock()
		if conn.expired(lifetime) || !conn.validate(ctx) {
			p.discard(conn)
			return nil, errBadConn
		}
		return conn, nil
	}

	// No free connections. Try to open a new one or wait for one to get free.
	if p.maxOpen > 0 && p.numOpen >= p.maxOpen {
		req := make(chan connRequest, 1)
		reqKey := p.nextRequestKeyLocked()
		p.connRequests[reqKey] = req
		p.waitCount++
		p.mu.Unlock()

		waitStart := time.Now()
		timer := time.NewTimer(p.maxWaitTime)
		defer timer.Stop()

		var err error
		select {
		case ret, ok := <-req:
			atomic.AddInt64(&p.waitDuration, int64(time.Since(waitStart)))
			if !ok {
				return nil, ErrPoolClosed
			}
			if ret.err != nil {
				return nil, ret.err
			}
			if ret.conn.expired(lifetime) || !ret.conn.validate(ctx) {
				p.discard(ret.conn)
				return nil, errBadConn
			}
			return ret.conn, nil
		case <-ctx.Done():
			err = ctx.Err()
		case <-timer.C:
			err = ErrTimedOut
		}
		atomic.AddInt64(&p.waitDuration, int64(time.Since(waitStart)))

		// Remove the connRequest and ensure no value has been sent
		// on it after removing.
		p.mu.Lock()
		delete(p.connRequests, reqKey)
		p.mu.Unlock()

		select {
		default:
		case ret, ok := <-req:
			if ok && ret.conn != nil {
				p.putConn(ret.conn, ret.err)
			}
		}
		return nil, err
	}

	// no free connections, and we are allowed to create new ones
	p.numOpen++ // optimistically
	p.mu.Unlock()
	c, err := p.factory(ctx)
	if err != nil {
		p.mu.Lock()
		p.numOpen-- // correct for earlier optimism
		p.maybeOpenNewConnections()
		p.mu.Unlock()
		return nil, err
	}
	p.mu.Lock()
	p.created++
	conn := &Conn{p: p, createdAt: time.Now(), Conn: c, inUse: true}
	p.mu.Unlock()
	return conn, nil
}

// discard drops a connection that was taken out of the pool and will not be returned.
func (p *Pool) discard(conn *Conn) {
	p.mu.Lock()
	conn.inUse = false
	p.numOpen--
	p.maybeOpenNewConnections()
	p.mu.Unlock()
	conn.close()
}

// nextRequestKeyLocked returns the next Conn request key.
// It is assumed that nextRequest will not overflow.
func (p *Pool) nextRequestKeyLocked() uint64 {
	next := p.nextRequest
	p.nextRequest++
	return next
}

// If there are connRequests and the Conn limit hasn't been reached,
// then tell the connectionOpener to open new connections.
func (p *Pool) maybeOpenNewConnections() {
	if p.closed {
		return
	}
	numRequests := len(p.connRequests)
	if p.maxOpen > 0 {
		numCanOpen := p.maxOpen - p.numOpen
		if numRequests > numCanOpen {
			numRequests = numCanOpen
		}
	}
	for numRequests > 0 {
		p.numOpen++ // optimistically
		numRequests--
		p.openerCh <- struct{}{}
	}
}

// putConnLocked will satisfy a connRequest if there is one, or it will
// return the *Conn to the freeConn list if err == nil and the idle
// Conn limit will not be exceeded.
// If err != nil, the value of c is ignored.
// If err == nil, then c must not equal nil.
// If a connRequest was fulfilled or the *Conn was placed in the
// freeConn list, then true is returned, otherwise false is returned.
func (p *Pool) putConnLocked(c *Conn, err error) bool {
	if p.closed {
		return false
	}
	if p.maxOpen > 0 && p.numOpen > p.maxOpen {
		return false
	}
	if len(p.connRequests) > 0 {
		var req chan connRequest
		var reqKey uint64
		for reqKey, req = range p.connRequests {
			break
		}
		delete(p.connRequests, reqKey) // Remove from pending requests.
		if err == nil {
			c.inUse = true
		}
		req <- connRequest{conn: c, err: err}
		return true
	} else if err == nil {
		if p.maxIdle > len(p.freeConn) {
			p.freeConn = append(p.freeConn, c)
			p.startCleanerLocked()
			return true
		}
		p.maxIdleClosed++
	}
	return false
}

// putConn adds a Conn to the free pool.
// err is optionally the last error that occurred on this Conn.
func (p *Pool) putConn(conn *Conn, err error) {
	p.mu.Lock()
	conn.inUse = false

	if errors.Is(err, errBadConn) {
		// Don't reuse bad connections.
		p.numOpen--
		p.maybeOpenNewConnections()
		p.mu.Unlock()
		conn.close()
		return
	}

	// if connection is already closed, decrement the open connections and don't add it back to the pool
	conn.mu.Lock()
	closed := conn.closed
	conn.mu.Unlock()
	if closed {
		p.numOpen--
		p.mu.Unlock()
		return
	}

	added := p.putConnLocked(conn, nil)
	if !added {
		p.numOpen--
		p.mu.Unlock()
		conn.close()
		return
	}
	p.mu.Unlock()
}

// Runs in a separate goroutine, opens new connections when requested.
func (p *Pool) connectionOpener(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.openerCh:
			p.openNewConnection(ctx)
		}
	}
}

func (p *Pool) openNewConnection(ctx context.Context) {
	// maybeOpenNewConnections has already executed numOpen++ before it sent
	// on openerCh. This function must execute numOpen-- if the
	// connection fails or is closed before returning.
	c, err := p.factory(ctx)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		if err == nil {
			_ = c.Close()
		}
		p.numOpen--
		return
	}
	if err != nil {
		p.numOpen--
		p.putConnLocked(nil, err)
		p.maybeOpenNewConnections()
		return
	}
	p.created++
	conn := &Conn{p: p, createdAt: time.Now(), Conn: c}
	if !p.putConnLocked(conn, nil) {
		p.numOpen--
		_ = c.Close()
	}
}

// startCleanerLocked starts connectionCleaner if needed.
func (p *Pool) startCleanerLocked() {
	if p.maxLifeTime > 0 && p.numOpen > 0 && p.cleanerCh == nil {
		p.cleanerCh = make(chan struct{})
		go p.connectionCleaner(p.cleanInterval, p.cleanerCh)
	}
}

func (p *Pool) connectionCleaner(d time.Duration, done <-chan struct{}) {
	t := time.NewTimer(d)
	defer t.Stop()

	for {
		select {
		case <-t.C:
		case <-done: // pool was closed
		}

		p.mu.Lock()
		if p.closed || p.numOpen == 0 || p.maxLifeTime <= 0 {
			if !p.closed {
				p.cleanerCh = nil
			}
			p.mu.Unlock()
			return
		}

		expiredSince := time.Now().Add(-p.maxLifeTime)
		var closing []*Conn
		for i := 0; i < len(p.freeConn); i++ {
			conn := p.freeConn[i]
			if conn.createdAt.Before(expiredSince) {
				closing = append(closing, conn)
				last := len(p.freeConn) - 1
				p.freeConn[i] = p.freeConn[last]
				p.freeConn[last] = nil
				p.freeConn = p.freeConn[:last]
				i--
			}
		}

		p.numOpen -= len(closing)
		p.maxLifetimeClosed += uint64(len(closing))
		p.mu.Unlock()

		for _, conn := range closing {
			conn.close()
		}

		t.Reset(d)
	}
}
