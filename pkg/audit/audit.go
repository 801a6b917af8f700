// Package audit implements an optional Postgres-backed execution and
// service audit log: one row per ExecuteBlueprint/Resume call and one
// row per lifecycle service state transition. Plain database/sql with
// lib/pq as the driver, parameterized queries, no ORM.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"weave/pkg/value"
)

// Record is one logged blueprint execution attempt.
type Record struct {
	ID             string
	BlueprintID    string
	ExecutionID    string
	TriggerKind    string
	TriggerName    string
	Status         string
	ContinuationID string
	Error          string
	StartedAt      time.Time
	FinishedAt     time.Time
}

// ServiceEvent is one logged lifecycle state transition.
type ServiceEvent struct {
	ID          string
	ServiceID   string
	FromState   string
	ToState     string
	Reason      string
	OccurredAt  time.Time
}

// Store is the audit log's storage interface: a Postgres-backed
// implementation is provided below, but callers needing to run
// without a database (e.g. a dev/test build) can substitute a no-op.
type Store interface {
	RecordExecution(ctx context.Context, r Record) error
	RecordServiceTransition(ctx context.Context, e ServiceEvent) error
	RecentExecutions(ctx context.Context, blueprintID string, limit int) ([]Record, error)
}

// PostgresStore implements Store against the schema declared in the
// Schema constant: ExecContext/QueryContext calls, no ORM.
type PostgresStore struct {
	db *sql.DB
}

func Open(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (s *PostgresStore) Close() error { return s.db.Close() }

// Schema is the DDL the store expects. Migrations are out of scope —
// the host is expected to apply this (or an equivalent) before first
// use; this package assumes a pre-provisioned schema rather than
// embedding a migration runner.
const Schema = `
CREATE TABLE IF NOT EXISTS execution_audit (
	id              TEXT PRIMARY KEY,
	blueprint_id    TEXT NOT NULL,
	execution_id    TEXT NOT NULL,
	trigger_kind    TEXT NOT NULL,
	trigger_name    TEXT NOT NULL,
	status          TEXT NOT NULL,
	continuation_id TEXT,
	error           TEXT,
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS service_transition_audit (
	id           TEXT PRIMARY KEY,
	service_id   TEXT NOT NULL,
	from_state   TEXT NOT NULL,
	to_state     TEXT NOT NULL,
	reason       TEXT,
	occurred_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS execution_audit_blueprint_idx ON execution_audit (blueprint_id, started_at DESC);
`

func (s *PostgresStore) RecordExecution(ctx context.Context, r Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO execution_audit (
			id, blueprint_id, execution_id, trigger_kind, trigger_name,
			status, continuation_id, error, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.ID, r.BlueprintID, r.ExecutionID, r.TriggerKind, r.TriggerName,
		r.Status, nullIfEmpty(r.ContinuationID), nullIfEmpty(r.Error), r.StartedAt, r.FinishedAt)
	if err != nil {
		return fmt.Errorf("audit: record execution: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordServiceTransition(ctx context.Context, e ServiceEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO service_transition_audit (id, service_id, from_state, to_state, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.ServiceID, e.FromState, e.ToState, nullIfEmpty(e.Reason), e.OccurredAt)
	if err != nil {
		return fmt.Errorf("audit: record service transition: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentExecutions(ctx context.Context, blueprintID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, blueprint_id, execution_id, trigger_kind, trigger_name,
		       status, COALESCE(continuation_id, ''), COALESCE(error, ''), started_at, finished_at
		FROM execution_audit
		WHERE blueprint_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`, blueprintID, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: recent executions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.ID, &r.BlueprintID, &r.ExecutionID, &r.TriggerKind, &r.TriggerName,
			&r.Status, &r.ContinuationID, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("audit: scan execution: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// DescribeOutputs renders a node output value map into a compact,
// loggable string — used by callers building a Record.Error or debug
// field from an execution's final outputs without pulling in a full
// JSON encoder at the call site.
func DescribeOutputs(values map[string]value.Value) string {
	if len(values) == 0 {
		return "{}"
	}
	out := "{"
	first := true
	for k, v := range values {
		if !first {
			out += ", "
		}
		first = false
		s, err := v.AsString()
		if err != nil {
			s = v.TypeName()
		}
		out += k + "=" + s
	}
	return out + "}"
}
