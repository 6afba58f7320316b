// Package caselog persists the intake conversation trail and risk events on
// a dedicated SQLite file, kept apart from the negotiation store so chat
// volume never contends with ledger transactions.
package caselog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"reclamai/internal/logger"

	_ "modernc.org/sqlite"
)

type CaseLogStore struct {
	mu   sync.Mutex
	db   *sql.DB
	path string
}

// MessageRecord is one turn of the intake conversation.
type MessageRecord struct {
	ID        int64  `json:"id"`
	CaseID    string `json:"case_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"ts"`
}

// EventRecord captures engine-side milestones for a case: risk flags,
// session transitions, guardrail rejections.
type EventRecord struct {
	ID        int64  `json:"id"`
	CaseID    string `json:"case_id"`
	Kind      string `json:"kind"`
	Detail    string `json:"detail"`
	Timestamp int64  `json:"ts"`
}

func NewCaseLogStore(path string) (*CaseLogStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("caselog path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path))
	if err != nil {
		return nil, err
	}
	s := &CaseLogStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *CaseLogStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS case_messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			ts INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_case_messages_case ON case_messages(case_id, ts)`,
		`CREATE TABLE IF NOT EXISTS case_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			detail TEXT,
			ts INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_case_events_case ON case_events(case_id, ts)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("caselog migrate: %w", err)
		}
	}
	return nil
}

func (s *CaseLogStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AppendMessage records one conversation turn.
func (s *CaseLogStore) AppendMessage(ctx context.Context, caseID, role, content string) error {
	if s == nil || s.db == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO case_messages (case_id, role, content, ts) VALUES (?, ?, ?, ?)`,
		caseID, role, content, time.Now().Unix())
	if err != nil {
		logger.Errorf("caselog: append message failed case=%s err=%v", caseID, err)
	}
	return err
}

// History returns the case's conversation in chronological order.
func (s *CaseLogStore) History(ctx context.Context, caseID string, limit int) ([]MessageRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 200
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, case_id, role, content, ts FROM case_messages
		 WHERE case_id = ? ORDER BY ts ASC, id ASC LIMIT ?`, caseID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MessageRecord
	for rows.Next() {
		var m MessageRecord
		if err := rows.Scan(&m.ID, &m.CaseID, &m.Role, &m.Content, &m.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AppendEvent records a milestone. Failures are logged, never surfaced: the
// event trail is diagnostic, not load-bearing.
func (s *CaseLogStore) AppendEvent(ctx context.Context, caseID, kind, detail string) {
	if s == nil || s.db == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO case_events (case_id, kind, detail, ts) VALUES (?, ?, ?, ?)`,
		caseID, kind, detail, time.Now().Unix()); err != nil {
		logger.Errorf("caselog: append event failed case=%s kind=%s err=%v", caseID, kind, err)
	}
}

// Events returns the case's event trail, newest first.
func (s *CaseLogStore) Events(ctx context.Context, caseID string, limit int) ([]EventRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, case_id, kind, detail, ts FROM case_events
		 WHERE case_id = ? ORDER BY ts DESC, id DESC LIMIT ?`, caseID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EventRecord
	for rows.Next() {
		var e EventRecord
		var detail sql.NullString
		if err := rows.Scan(&e.ID, &e.CaseID, &e.Kind, &detail, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Detail = detail.String
		out = append(out, e)
	}
	return out, rows.Err()
}
