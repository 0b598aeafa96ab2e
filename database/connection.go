package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"

	"payments-authorizenet/logger"
)

type DatabaseConfig struct {
	Host     string
	User     string
	Password string
	DBName   string
}

// DSN builds the go-sql-driver DSN.
func (c DatabaseConfig) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = c.Host
	cfg.DBName = c.DBName
	cfg.ParseTime = true
	// RowsAffected must count matched rows, or re-saving an unchanged
	// payment looks like a missing one.
	cfg.ClientFoundRows = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN()
}

type Connection struct {
	db  *sql.DB
	log *slog.Logger
}

func NewConnection(config DatabaseConfig) (*Connection, error) {
	db, err := sql.Open("mysql", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	conn := &Connection{db: db, log: logger.WithComponent("database")}

	if err := conn.ensureConnection(); err != nil {
		db.Close()
		return nil, err
	}

	return conn, nil
}

func (c *Connection) ensureConnection() error {
	for retries := 0; retries < 3; retries++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := c.db.PingContext(ctx)
		cancel()

		if err == nil {
			return nil
		}

		c.log.Warn("database ping failed", "attempt", retries+1, "error", err)
		time.Sleep(time.Second * time.Duration(retries+1))
	}
	return errors.New("failed to establish database connection after 3 attempts")
}

const schema = `
CREATE TABLE IF NOT EXISTS payments (
    id                 BIGINT AUTO_INCREMENT PRIMARY KEY,
    token              CHAR(36) NOT NULL UNIQUE,
    variant            VARCHAR(64) NOT NULL,
    status             VARCHAR(16) NOT NULL,
    total              DECIMAL(9,2) NOT NULL,
    currency           CHAR(3) NOT NULL DEFAULT 'USD',
    description        VARCHAR(255) NOT NULL DEFAULT '',
    billing_first_name VARCHAR(256) NOT NULL DEFAULT '',
    billing_last_name  VARCHAR(256) NOT NULL DEFAULT '',
    transaction_id     VARCHAR(255) NOT NULL DEFAULT '',
    captured_amount    DECIMAL(9,2) NOT NULL DEFAULT 0,
    message            TEXT,
    success_url        VARCHAR(2048) NOT NULL DEFAULT '',
    failure_url        VARCHAR(2048) NOT NULL DEFAULT '',
    created_at         DATETIME NOT NULL,
    updated_at         DATETIME NOT NULL
)`

func (c *Connection) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create payments table: %w", err)
	}
	return nil
}

func (c *Connection) Close() error {
	return c.db.Close()
}

func (c *Connection) Ping(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
