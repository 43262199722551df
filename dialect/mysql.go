package dialect

import (
	"database/sql/driver"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return MySQL }

func (mysqlDialect) Connector(ep Endpoint) (driver.Connector, error) {
	connector, err := mysql.NewConnector(MySQLConfig(ep))
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	return connector, nil
}

func (mysqlDialect) CreateTable(table string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id INT AUTO_INCREMENT PRIMARY KEY, value_text VARCHAR(100))", quoteIdent(table, "`"))
}

func (mysqlDialect) DropTable(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(table, "`"))
}

func (mysqlDialect) Insert(table string) string {
	return fmt.Sprintf("INSERT INTO %s (value_text) VALUES (?)", quoteIdent(table, "`"))
}

func (mysqlDialect) CountByValue(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE value_text = ?", quoteIdent(table, "`"))
}

// MySQLConfig converts ep into a go-sql-driver config over TCP.
func MySQLConfig(ep Endpoint) *mysql.Config {
	cfg := mysql.NewConfig()
	cfg.User = ep.User
	cfg.Passwd = ep.Password
	cfg.Net = "tcp"
	cfg.Addr = ep.Addr()
	cfg.DBName = ep.Database
	if len(ep.Params) > 0 {
		cfg.Params = make(map[string]string, len(ep.Params))
		for k, v := range ep.Params {
			cfg.Params[k] = v
		}
	}
	return cfg
}
