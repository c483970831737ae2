// Package storage keeps a local SQLite journal of raised alerts.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/LeonardoBeccarini/agrimonitor/internal/advisor"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// AlertRecord is one journaled alert.
type AlertRecord struct {
	ID          string           `json:"id"`
	FarmID      string           `json:"farm_id"`
	ReadingTime time.Time        `json:"reading_time"`
	Code        string           `json:"code"`
	Severity    advisor.Severity `json:"severity"`
	Message     string           `json:"message"`
	CreatedAt   time.Time        `json:"created_at"`
}

// Journal wraps the SQLite connection.
type Journal struct {
	conn  *sql.DB
	now   func() time.Time
	newID func() string
}

// Open opens or creates the journal at path and applies the schema.
func Open(path string) (*Journal, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// sqlite: un solo writer alla volta
	conn.SetMaxOpenConns(1)

	j := &Journal{
		conn:  conn,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return j, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.conn.Close()
}

// Ping checks the connection.
func (j *Journal) Ping(ctx context.Context) error {
	return j.conn.PingContext(ctx)
}

// times are unix nanoseconds so ordering and range filters stay numeric
func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS alerts (
		id TEXT PRIMARY KEY,
		farm_id TEXT NOT NULL,
		reading_time INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		code TEXT NOT NULL,
		severity TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_alerts_farm_time ON alerts(farm_id, reading_time);
	`
	_, err := j.conn.Exec(schema)
	return err
}

// SaveAlerts journals the alerts raised by one reading, atomically.
func (j *Journal) SaveAlerts(ctx context.Context, farmID string, readingTime time.Time, alerts []advisor.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	tx, err := j.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO alerts(id, farm_id, reading_time, seq, code, severity, message, created_at)
		VALUES(?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	created := j.now().UnixNano()
	for i, a := range alerts {
		if _, err := stmt.ExecContext(ctx,
			j.newID(), farmID, readingTime.UTC().UnixNano(), i,
			a.Code, a.Severity.String(), a.Message, created,
		); err != nil {
			return fmt.Errorf("insert alert %s: %w", a.Code, err)
		}
	}
	return tx.Commit()
}

// ListAlerts returns journaled alerts newest first. An empty farmID means
// every farm, a zero since means no lower bound and limit <= 0 means no limit.
func (j *Journal) ListAlerts(ctx context.Context, farmID string, since time.Time, limit int) ([]AlertRecord, error) {
	var (
		where []string
		args  []any
	)
	if farmID != "" {
		where = append(where, "farm_id = ?")
		args = append(args, farmID)
	}
	if !since.IsZero() {
		where = append(where, "reading_time >= ?")
		args = append(args, since.UTC().UnixNano())
	}
	q := `SELECT id, farm_id, reading_time, code, severity, message, created_at FROM alerts`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY reading_time DESC, created_at DESC, seq ASC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := j.conn.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	defer rows.Close()

	out := make([]AlertRecord, 0)
	for rows.Next() {
		rec, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetAlert returns one record by id.
func (j *Journal) GetAlert(ctx context.Context, id string) (AlertRecord, error) {
	row := j.conn.QueryRowContext(ctx,
		`SELECT id, farm_id, reading_time, code, severity, message, created_at FROM alerts WHERE id = ?`, id)
	rec, err := scanAlert(row)
	if errors.Is(err, sql.ErrNoRows) {
		return AlertRecord{}, fmt.Errorf("alert %s: %w", id, ErrNotFound)
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAlert(s scanner) (AlertRecord, error) {
	var (
		rec                  AlertRecord
		readingAt, createdAt int64
		sev                  string
	)
	if err := s.Scan(&rec.ID, &rec.FarmID, &readingAt, &rec.Code, &sev, &rec.Message, &createdAt); err != nil {
		return AlertRecord{}, err
	}
	parsed, err := advisor.ParseSeverity(sev)
	if err != nil {
		return AlertRecord{}, fmt.Errorf("alert %s: %w", rec.ID, err)
	}
	rec.Severity = parsed
	rec.ReadingTime = time.Unix(0, readingAt).UTC()
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return rec, nil
}
