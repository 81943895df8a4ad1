// Package db checks compiled workloads against a MySQL-compatible server. It
// only asks for plans: no data is loaded and nothing is timed.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"

	"gmark/internal/config"
	"gmark/internal/sqlgen"
	"gmark/internal/util"
)

// Open validates the DSN and returns a connection pool. No connection is made
// until first use.
func Open(dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse dsn")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	conn, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(2)
	conn.SetMaxIdleConns(2)
	return conn, nil
}

// DatabaseName returns the schema named in the DSN path.
func DatabaseName(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", errors.Wrap(err, "parse dsn")
	}
	return cfg.DBName, nil
}

// EnsureDatabase creates the database named in the DSN if it does not exist.
func EnsureDatabase(ctx context.Context, dsn string) error {
	dbName, err := DatabaseName(dsn)
	if err != nil || dbName == "" {
		return err
	}
	exec, err := Open(config.AdminDSN(dsn))
	if err != nil {
		return err
	}
	defer util.CloseWithErr(exec, "db exec")
	_, err = exec.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", dbName))
	return err
}

// EdgeTableDDL returns the statement creating the edge relation described by opts.
func EdgeTableDDL(opts sqlgen.Options) string {
	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s BIGINT NOT NULL, %s BIGINT NOT NULL, %s INT NOT NULL, KEY idx_label (%s, %s, %s))",
		opts.Table, opts.SourceColumn, opts.TargetColumn, opts.LabelColumn,
		opts.LabelColumn, opts.SourceColumn, opts.TargetColumn,
	)
}

// Explainer runs EXPLAIN for compiled statements against an empty edge table.
type Explainer struct {
	conn    *sql.DB
	timeout time.Duration
}

// NewExplainer creates the edge table if needed and returns an Explainer.
func NewExplainer(ctx context.Context, conn *sql.DB, opts sqlgen.Options, timeout time.Duration) (*Explainer, error) {
	if _, err := conn.ExecContext(ctx, EdgeTableDDL(opts)); err != nil {
		return nil, errors.Wrap(err, "create edge table")
	}
	return &Explainer{conn: conn, timeout: timeout}, nil
}

// Explain returns the number of plan rows the server reports for stmt.
func (e *Explainer) Explain(ctx context.Context, stmt string) (int, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}
	rows, err := e.conn.QueryContext(ctx, "EXPLAIN "+stmt)
	if err != nil {
		return 0, err
	}
	defer util.CloseWithErr(rows, "explain rows")
	n := 0
	for rows.Next() {
		n++
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return n, nil
}

// ErrorCode extracts the server error number, if err came from the server.
func ErrorCode(err error) (uint16, bool) {
	if err == nil {
		return 0, false
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number, true
	}
	return 0, false
}
