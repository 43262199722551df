package dialect

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"modernc.org/sqlite"
)

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return SQLite }

func (sqliteDialect) Connector(ep Endpoint) (driver.Connector, error) {
	if ep.Database == "" {
		return nil, errors.New("sqlite: database path is required")
	}
	return &dsnConnector{dsn: SQLiteDSN(ep), driver: &sqlite.Driver{}}, nil
}

func (sqliteDialect) CreateTable(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INTEGER PRIMARY KEY AUTOINCREMENT, value_text VARCHAR(100))", quoteIdent(table, `"`))
}

func (sqliteDialect) DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(table, `"`))
}

func (sqliteDialect) Insert(table string) string {
	return fmt.Sprintf("INSERT INTO %s (value_text) VALUES (?)", quoteIdent(table, `"`))
}

func (sqliteDialect) CountByValue(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE value_text = ?", quoteIdent(table, `"`))
}

// SQLiteDSN renders ep as a file: URI. A busy timeout is always set so that a
// fresh connection waits on a lock held by the previous one instead of failing.
func SQLiteDSN(ep Endpoint) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	keys := make([]string, 0, len(ep.Params))
	for k := range ep.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Add(k, ep.Params[k])
	}
	return "file:" + ep.Database + "?" + q.Encode()
}

// dsnConnector adapts a driver.Driver that only knows Open(name) to driver.Connector.
type dsnConnector struct {
	dsn    string
	driver driver.Driver
}

// Connect checks ctx once. The driver has no context-aware open, and opening
// a local file does not block long enough to need one.
func (c *dsnConnector) Connect(ctx context.Context) (driver.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.driver.Open(c.dsn)
}

func (c *dsnConnector) Driver() driver.Driver { return c.driver }
