package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sink persists audit entries. Writes are append-only; a sink never mutates
// or deletes an entry on behalf of the recorder.
type Sink interface {
	Name() string
	Write(ctx context.Context, e Entry) error
}

// SearchCriteria filters compliance queries. Zero fields match everything.
type SearchCriteria struct {
	From      time.Time
	To        time.Time
	TenantID  string
	EventType string
	RiskLevel string
	ActorHash string
	Limit     int
}

// Searcher is implemented by sinks that support compliance queries.
type Searcher interface {
	Search(ctx context.Context, c SearchCriteria) ([]Entry, error)
}

// PGSink writes entries to PostgreSQL and serves compliance searches.
type PGSink struct {
	pool *pgxpool.Pool
}

// NewPGSink constructs a PostgreSQL sink.
func NewPGSink(pool *pgxpool.Pool) *PGSink {
	return &PGSink{pool: pool}
}

// Name identifies the sink in failure reports.
func (s *PGSink) Name() string { return "postgres" }

// Write inserts the entry.
func (s *PGSink) Write(ctx context.Context, e Entry) error {
	detail, err := json.Marshal(e.Detail)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO audit_entries
		 (id, occurred_at, event_type, event_category, risk_level, actor_hash, tenant_id, session_id, ip_hash, resource, outcome, compliance_flags, retention_days, detail)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		e.ID, e.Timestamp, e.EventType, e.EventCategory, e.RiskLevel, e.ActorHash, e.TenantID,
		e.SessionID, e.IPHash, e.Resource, e.Outcome, e.ComplianceFlags, e.RetentionDays, detail)
	return err
}

// Search runs a filtered compliance query, newest first.
func (s *PGSink) Search(ctx context.Context, c SearchCriteria) ([]Entry, error) {
	limit := c.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, occurred_at, event_type, event_category, risk_level, actor_hash, tenant_id, session_id, ip_hash, resource, outcome, compliance_flags, retention_days, detail
		 FROM audit_entries
		 WHERE ($1::timestamptz IS NULL OR occurred_at >= $1)
		   AND ($2::timestamptz IS NULL OR occurred_at <= $2)
		   AND ($3 = '' OR tenant_id = $3)
		   AND ($4 = '' OR event_type = $4)
		   AND ($5 = '' OR risk_level = $5)
		   AND ($6 = '' OR actor_hash = $6)
		 ORDER BY occurred_at DESC
		 LIMIT $7`,
		nullableTime(c.From), nullableTime(c.To), c.TenantID, c.EventType, c.RiskLevel, c.ActorHash, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var detail []byte
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.EventType, &e.EventCategory, &e.RiskLevel,
			&e.ActorHash, &e.TenantID, &e.SessionID, &e.IPHash, &e.Resource, &e.Outcome,
			&e.ComplianceFlags, &e.RetentionDays, &detail); err != nil {
			return nil, err
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				return nil, err
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var (
	_ Sink     = (*PGSink)(nil)
	_ Searcher = (*PGSink)(nil)
)

// FileSink appends JSON lines to a dated file, one entry per line. It is the
// durable secondary copy; rotation is by day.
type FileSink struct {
	dir string

	mu      sync.Mutex
	day     string
	current *os.File
}

// NewFileSink constructs a FileSink writing under dir.
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("audit: create log dir: %w", err)
	}
	return &FileSink{dir: dir}, nil
}

// Name identifies the sink in failure reports.
func (s *FileSink) Name() string { return "file" }

// Write appends the entry as a JSON line.
func (s *FileSink) Write(ctx context.Context, e Entry) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	day := e.Timestamp.UTC().Format("2006-01-02")
	if s.current == nil || s.day != day {
		if s.current != nil {
			_ = s.current.Close()
		}
		f, err := os.OpenFile(filepath.Join(s.dir, "audit-"+day+".jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return err
		}
		s.current = f
		s.day = day
	}
	if _, err := s.current.Write(append(payload, '\n')); err != nil {
		return err
	}
	return nil
}

// Close releases the open log file.
func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	err := s.current.Close()
	s.current = nil
	return err
}

var _ Sink = (*FileSink)(nil)
