package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// DSN returns a MySQL-compatible data source name. A configured
// connection string is used directly, normalized so rows scan with
// parsed timestamps; otherwise one is built from the discrete fields.
func (d *DatabaseConfig) DSN() string {
	if dsn := strings.TrimSpace(d.ConnectionString); dsn != "" {
		if !strings.Contains(dsn, "parseTime") {
			if strings.Contains(dsn, "?") {
				dsn += "&parseTime=true"
			} else {
				dsn += "?parseTime=true"
			}
		}
		return dsn
	}

	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = fmt.Sprintf("%s:%d", d.Host, d.Port)
	cfg.DBName = d.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

// EffectiveDatabaseName returns the database the CLI will run against,
// favoring an explicit database.database over the DSN's path component.
func (d *DatabaseConfig) EffectiveDatabaseName() (string, error) {
	if name := strings.TrimSpace(d.Database); name != "" {
		return name, nil
	}
	dsn := strings.TrimSpace(d.ConnectionString)
	if dsn == "" {
		return "", fmt.Errorf("no database name configured")
	}
	parsed, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("database.dsn is invalid: %w", err)
	}
	if parsed.DBName == "" {
		return "", fmt.Errorf("database.dsn does not name a database")
	}
	return parsed.DBName, nil
}
