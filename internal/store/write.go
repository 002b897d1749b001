package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/a11yoracle/internal/notify"
)

// Stream names one side of a step.
type Stream string

const (
	StreamExpected Stream = "expected"
	StreamCaptured Stream = "captured"
)

// Session is one scenario run against one target process.
type Session struct {
	ID        string
	Scenario  string
	Token     string
	ProcessID int
	StartedAt time.Time
	Finished  bool
	Pass      bool
	Failure   string
	Digest    string
}

// Step is one executed step with both of its streams.
type Step struct {
	Index    int
	Name     string
	Pass     bool
	Failure  string
	Expected []notify.Record
	Captured []notify.Record
}

// CreateSession inserts a new, unfinished session.
// Duplicate ids are silently ignored for idempotency.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, scenario, token, process_id, started_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		sess.ID,
		sess.Scenario,
		sess.Token,
		sess.ProcessID,
		sess.StartedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// WriteStep stores a step and both of its streams in one transaction.
//
// The session must exist (foreign key constraint). Writing the same step
// index twice fails.
func (s *Store) WriteStep(ctx context.Context, sessionID string, step Step) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write step: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO steps (session_id, idx, name, pass, failure)
		VALUES (?, ?, ?, ?, ?)
	`, sessionID, step.Index, step.Name, step.Pass, step.Failure)
	if err != nil {
		return fmt.Errorf("write step %d: %w", step.Index, err)
	}

	if err = insertRecords(ctx, tx, sessionID, step.Index, StreamExpected, step.Expected); err != nil {
		return err
	}
	if err = insertRecords(ctx, tx, sessionID, step.Index, StreamCaptured, step.Captured); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("write step %d: commit: %w", step.Index, err)
	}
	return nil
}

func insertRecords(ctx context.Context, tx *sql.Tx, sessionID string, step int, stream Stream, recs []notify.Record) error {
	if len(recs) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records
		(session_id, step, stream, seq, kind, p0, p1, p2, p3, process_id, child_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare %s records: %w", stream, err)
	}
	defer stmt.Close()

	for seq, r := range recs {
		if !r.Kind().Valid() {
			return fmt.Errorf("write %s record %d: invalid kind %d", stream, seq, int(r.Kind()))
		}
		p := r.Params()
		if _, err := stmt.ExecContext(ctx,
			sessionID, step, string(stream), seq, r.Kind().String(),
			p[0], p[1], p[2], p[3], r.ProcessID(), r.ChildID(),
		); err != nil {
			return fmt.Errorf("write %s record %d: %w", stream, seq, err)
		}
	}
	return nil
}

// FinishSession records the session outcome.
func (s *Store) FinishSession(ctx context.Context, id string, pass bool, failure, digest string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET finished = 1, pass = ?, failure = ?, digest = ?
		WHERE id = ?
	`, pass, failure, digest, id)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish session %s: %w", id, ErrSessionNotFound)
	}
	return nil
}
