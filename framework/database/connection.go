// Package database manages named sqlx connections and loads models for
// route-model binding.
package database

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/km-arc/h3ravel/framework/config"
)

// ConnectionConfig describes one named connection.
type ConnectionConfig struct {
	Driver string // sql driver name: mysql | postgres | sqlite3
	DSN    string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DriverName maps a DB_CONNECTION value to the registered sql driver.
func DriverName(connection string) (string, error) {
	switch strings.ToLower(connection) {
	case "mysql", "mariadb":
		return "mysql", nil
	case "pgsql", "postgres", "postgresql":
		return "postgres", nil
	case "sqlite", "sqlite3":
		return "sqlite3", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedDriver, connection)
}

// FromConfig builds the default connection from DB_* settings. Relative
// sqlite paths are resolved against basePath.
func FromConfig(cfg config.DBConfig, basePath string) (ConnectionConfig, error) {
	driver, err := DriverName(cfg.Driver)
	if err != nil {
		return ConnectionConfig{}, err
	}

	cc := poolDefaults(driver)
	if cfg.URL != "" {
		cc.DSN = cfg.URL
		return cc, nil
	}

	switch driver {
	case "mysql":
		mc := mysql.NewConfig()
		mc.User = cfg.Username
		mc.Passwd = cfg.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
		mc.DBName = cfg.Database
		mc.ParseTime = true
		cc.DSN = mc.FormatDSN()
	case "postgres":
		port := cfg.Port
		if port == "" || port == "3306" {
			port = "5432"
		}
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.Username, cfg.Password),
			Host:     net.JoinHostPort(cfg.Host, port),
			Path:     "/" + cfg.Database,
			RawQuery: "sslmode=disable",
		}
		cc.DSN = u.String()
	case "sqlite3":
		path := cfg.Database
		if path != ":memory:" && !filepath.IsAbs(path) && basePath != "" {
			path = filepath.Join(basePath, path)
		}
		cc.DSN = path
	}
	return cc, nil
}

// Pool sizes follow what each engine handles well; sqlite wants a single
// writer.
func poolDefaults(driver string) ConnectionConfig {
	switch driver {
	case "mysql":
		return ConnectionConfig{Driver: driver, MaxOpenConns: 50, MaxIdleConns: 20, ConnMaxLifetime: time.Hour, ConnMaxIdleTime: 30 * time.Minute}
	case "postgres":
		return ConnectionConfig{Driver: driver, MaxOpenConns: 40, MaxIdleConns: 15, ConnMaxLifetime: 45 * time.Minute, ConnMaxIdleTime: 20 * time.Minute}
	default:
		return ConnectionConfig{Driver: driver, MaxOpenConns: 1, MaxIdleConns: 1, ConnMaxLifetime: 24 * time.Hour, ConnMaxIdleTime: 2 * time.Hour}
	}
}

// Open connects and pings.
func Open(ctx context.Context, cc ConnectionConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open(cc.Driver, cc.DSN)
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", cc.Driver, err)
	}
	configurePool(db, cc)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database: ping %s: %w", cc.Driver, err)
	}
	return db, nil
}

func configurePool(db *sqlx.DB, cc ConnectionConfig) {
	if cc.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cc.MaxOpenConns)
	}
	if cc.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cc.MaxIdleConns)
	}
	if cc.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cc.ConnMaxLifetime)
	}
	if cc.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cc.ConnMaxIdleTime)
	}
}
