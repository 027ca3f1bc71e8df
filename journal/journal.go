package journal

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/wippyai/opcall/invoke"
)

//go:embed schema.sql
var schemaSQL string

const currentSchemaVersion = 1

// Journal is a sqlite log of invoker calls. It is an invoke.Observer.
type Journal struct {
	db *sql.DB
}

var _ invoke.Observer = (*Journal)(nil)

// Open creates or opens the journal at path. ":memory:" gives a private
// in-memory journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect journal: %w", err)
	}

	// sqlite has one writer; one connection also keeps :memory: databases
	// from splitting across connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("journal pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		db.Close()
		return nil, fmt.Errorf("journal schema version: %w", err)
	}

	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// OnCall records rec, logging rather than returning a failure.
func (j *Journal) OnCall(rec invoke.Record) {
	if err := j.Record(context.Background(), rec); err != nil {
		Logger().Warn("journal write failed", zap.String("operation", rec.Operation), zap.Error(err))
	}
}

// Record writes rec. Records without an id get a fresh one; writing the
// same id twice keeps the first.
func (j *Journal) Record(ctx context.Context, rec invoke.Record) error {
	if rec.ID == uuid.Nil {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("record id: %w", err)
		}
		rec.ID = id
	}

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO calls
		(id, operation, options, started_at, duration_ns, inputs, named, shape, advisories, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		rec.ID.String(),
		rec.Operation,
		rec.Options,
		rec.Started.UnixNano(),
		int64(rec.Duration),
		rec.Inputs,
		rec.Named,
		int(rec.Shape),
		rec.Advisories,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("record call: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]invoke.Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, operation, options, started_at, duration_ns, inputs, named, shape, advisories, error
		FROM calls
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	defer rows.Close()

	var out []invoke.Record
	for rows.Next() {
		var (
			rec      invoke.Record
			id       string
			started  int64
			duration int64
			shape    int
		)
		if err := rows.Scan(&id, &rec.Operation, &rec.Options, &started, &duration,
			&rec.Inputs, &rec.Named, &shape, &rec.Advisories, &rec.Error); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("call id %q: %w", id, err)
		}
		rec.Started = time.Unix(0, started)
		rec.Duration = time.Duration(duration)
		rec.Shape = invoke.Shape(shape)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read recent: %w", err)
	}
	return out, nil
}

// Count returns how many calls are recorded; failed only counts calls that
// returned an error.
func (j *Journal) Count(ctx context.Context, failed bool) (int, error) {
	q := "SELECT COUNT(*) FROM calls"
	if failed {
		q += " WHERE error != ''"
	}
	var n int
	if err := j.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("count calls: %w", err)
	}
	return n, nil
}
