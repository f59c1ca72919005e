package progstor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/multierr"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS programs (
	pid        TEXT PRIMARY KEY,
	code       TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

type SQLiteRepo struct {
	db *sql.DB
}

var _ Repo = (*SQLiteRepo)(nil)

func NewSQLiteRepo(path string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to create schema: %w", err), db.Close())
	}
	r := &SQLiteRepo{db: db}
	if err := seedDefault(context.Background(), r); err != nil {
		return nil, multierr.Append(fmt.Errorf("failed to seed starter program: %w", err), db.Close())
	}
	return r, nil
}

func (r *SQLiteRepo) Default() Pid {
	return DefaultPid
}

func (r *SQLiteRepo) Load(ctx context.Context, pid Pid) (string, error) {
	var code string
	err := r.db.QueryRowContext(ctx, `SELECT code FROM programs WHERE pid = ?`, string(pid)).Scan(&code)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return code, nil
}

func (r *SQLiteRepo) Store(ctx context.Context, pid Pid, code string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO programs (pid, code) VALUES (?, ?)
		 ON CONFLICT(pid) DO UPDATE SET code = excluded.code, updated_at = CURRENT_TIMESTAMP`,
		string(pid), code)
	return err
}

func (r *SQLiteRepo) Search(ctx context.Context, query string) ([]Pid, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT pid FROM programs WHERE instr(pid, ?) > 0`, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var all []Pid
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return nil, err
		}
		all = append(all, Pid(pid))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return matchPids(all, query), nil
}

func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}
