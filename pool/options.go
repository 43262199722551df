package pool

import (
	"errors"
	"time"
)

const (
	defaultGetTimeout   = time.Second * 10
	defaultConnLifeTime = time.Minute * 60
	defaultMaxIdle      = 2
)

// Options to create a new Pool
type Options struct {
	// Factory opens new physical connections
	Factory Factory

	// MaxConnections are the maximum number of open connections, 0 means unbounded
	MaxConnections int

	// GetTimeout is the maximum time Pool will wait to obtain the connection before timing out
	GetTimeout time.Duration

	// MaxIdleConnections are the maximum number of idle connections that should remain the Pool.
	// Zero selects a default of 2, capped at MaxConnections.
	MaxIdleConnections int

	// ConnLifeTime is the total amount of time a connection should be used before closing it
	ConnLifeTime time.Duration

	// ConnCleanTime is how often idle connections are checked against ConnLifeTime
	ConnCleanTime time.Duration
}

func (o *Options) validate() error {
	if o.Factory == nil {
		return errors.New("factory is required")
	}
	if o.MaxConnections < 0 {
		return errors.New("MaxConnections should be >=0")
	}
	if o.MaxIdleConnections < 0 {
		return errors.New("MaxIdleConnections should be >=0")
	}
	if o.MaxIdleConnections == 0 {
		o.MaxIdleConnections = defaultMaxIdle
		if o.MaxConnections > 0 && o.MaxConnections < defaultMaxIdle {
			o.MaxIdleConnections = o.MaxConnections
		}
	}
	if o.MaxConnections > 0 && o.MaxConnections < o.MaxIdleConnections {
		return errors.New("MaxConnections should be >=MaxIdleConnections")
	}
	if o.GetTimeout == 0 {
		o.GetTimeout = defaultGetTimeout
	}
	if o.ConnLifeTime == 0 {
		o.ConnLifeTime = defaultConnLifeTime
	}
	if o.ConnCleanTime == 0 {
		o.ConnCleanTime = o.ConnLifeTime
	}
	return nil
}
