// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed sql/schema.sql
var schemaSQL string

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/get-latest-readings.sql
var getLatestReadingsSQL string

// SQLite keeps a local history of readings. Each process run writes under
// its own session id.
type SQLite struct {
	db      *sql.DB
	session string
	log     *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db migrate: %w", err)
	}

	s := &SQLite{db: db, session: uuid.NewString(), log: logger}
	logger.Info("sqlite history opened", "path", path, "session", s.session)
	return s, nil
}

func buildDSN(path string) (string, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	params := "_busy_timeout=5000&_journal_mode=WAL"
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + params, nil
	}
	return fmt.Sprintf("file:%s?%s", path, params), nil
}

func (s *SQLite) Name() string { return "sqlite" }

// Session returns the id rows from this process are tagged with.
func (s *SQLite) Session() string { return s.session }

func (s *SQLite) Write(ctx context.Context, r Reading) error {
	_, err := s.db.ExecContext(ctx, insertReadingSQL,
		s.session, string(r.Kind), r.Value, nullFloat(r.Min), nullFloat(r.Max), r.At.UTC())
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// Latest returns up to limit readings of kind, newest first.
func (s *SQLite) Latest(ctx context.Context, kind Kind, limit int) ([]Reading, error) {
	rows, err := s.db.QueryContext(ctx, getLatestReadingsSQL, string(kind), limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.log.Error("close readings rows", "error", err)
		}
	}()

	var out []Reading
	for rows.Next() {
		var (
			r        Reading
			kindText string
			lo, hi   sql.NullFloat64
		)
		if err := rows.Scan(&kindText, &r.Value, &lo, &hi, &r.At); err != nil {
			return nil, err
		}
		r.Kind = Kind(kindText)
		if lo.Valid {
			r.Min = &lo.Float64
		}
		if hi.Valid {
			r.Max = &hi.Float64
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
