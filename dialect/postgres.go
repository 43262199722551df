package dialect

import (
	"database/sql/driver"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

type postgresDialect struct{}

func (postgresDialect) Name() string { return Postgres }

func (postgresDialect) Connector(ep Endpoint) (driver.Connector, error) {
	cfg, err := pgx.ParseConfig(PostgresURL(ep))
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	return stdlib.GetConnector(*cfg), nil
}

func (postgresDialect) CreateTable(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id SERIAL PRIMARY KEY, value_text VARCHAR(100))", quoteIdent(table, `"`))
}

func (postgresDialect) DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(table, `"`))
}

func (postgresDialect) Insert(table string) string {
	return fmt.Sprintf("INSERT INTO %s (value_text) VALUES ($1)", quoteIdent(table, `"`))
}

func (postgresDialect) CountByValue(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE value_text = $1", quoteIdent(table, `"`))
}

// PostgresURL renders ep as a postgres:// connection string. sslmode defaults
// to disable for the local endpoint.
func PostgresURL(ep Endpoint) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   ep.Host,
		Path:   "/" + ep.Database,
	}
	if ep.Port != 0 {
		u.Host = ep.Host + ":" + strconv.Itoa(ep.Port)
	}
	if ep.Password != "" {
		u.User = url.UserPassword(ep.User, ep.Password)
	} else if ep.User != "" {
		u.User = url.User(ep.User)
	}
	q := url.Values{}
	q.Set("sslmode", "disable")
	for k, v := range ep.Params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}
