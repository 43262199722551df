// Package dialect describes how to reach each supported database and which SQL
// to speak to it for the scratch table.
package dialect

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
)

// Supported driver names.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// ErrUnknownDriver is returned by Lookup for a driver name with no dialect.
var ErrUnknownDriver = errors.New("unknown driver")

// Endpoint locates a database. For SQLite, Database is the file path and the
// network fields are ignored.
type Endpoint struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	// Params are extra driver-specific connection parameters.
	Params map[string]string
}

// Addr returns host:port.
func (e Endpoint) Addr() string {
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// String renders the endpoint without its password, for logs.
func (e Endpoint) String() string {
	if e.Driver == SQLite {
		return e.Driver + "://" + e.Database
	}
	return fmt.Sprintf("%s://%s@%s/%s", e.Driver, e.User, e.Addr(), e.Database)
}

// Dialect opens physical connections to an Endpoint and renders the scratch
// table statements.
type Dialect interface {
	// Name is the driver name the dialect serves.
	Name() string
	// Connector returns a connector whose Connect opens one physical connection.
	Connector(ep Endpoint) (driver.Connector, error)
	CreateTable(table string) string
	DropTable(table string) string
	// Insert is the single-parameter insert into value_text.
	Insert(table string) string
	// CountByValue counts rows whose value_text equals the single parameter.
	CountByValue(table string) string
}

// Lookup returns the dialect registered for driver.
func Lookup(driverName string) (Dialect, error) {
	switch strings.ToLower(driverName) {
	case Postgres, "pgx", "postgresql":
		return postgresDialect{}, nil
	case MySQL:
		return mysqlDialect{}, nil
	case SQLite, "sqlite3":
		return sqliteDialect{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driverName)
}

// Prepare prepares query on a physical connection.
func Prepare(ctx context.Context, conn driver.Conn, query string) (driver.Stmt, error) {
	if pc, ok := conn.(driver.ConnPrepareContext); ok {
		return pc.PrepareContext(ctx, query)
	}
	return conn.Prepare(query)
}

// Exec prepares query, binds args positionally, executes it and closes the
// statement. Errors that leave the session unusable wrap driver.ErrBadConn.
func Exec(ctx context.Context, conn driver.Conn, query string, args ...driver.Value) (driver.Result, error) {
	stmt, err := Prepare(ctx, conn, query)
	if err != nil {
		return nil, fmt.Errorf("prepare: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	if sc, ok := stmt.(driver.StmtExecContext); ok {
		named := make([]driver.NamedValue, len(args))
		for i, a := range args {
			named[i] = driver.NamedValue{Ordinal: i + 1, Value: a}
		}
		res, err := sc.ExecContext(ctx, named)
		if err != nil {
			return nil, fmt.Errorf("exec: %w", err)
		}
		return res, nil
	}
	res, err := stmt.Exec(args)
	if err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}
	return res, nil
}

// IsBadConn reports whether err means the connection should not be reused.
func IsBadConn(err error) bool {
	return errors.Is(err, driver.ErrBadConn)
}

func quoteIdent(name, q string) string {
	return q + strings.ReplaceAll(name, q, q+q) + q
}
