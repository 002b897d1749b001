package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/a11yoracle/internal/notify"
)

const sessionColumns = `id, scenario, token, process_id, started_at, finished, pass, failure, digest`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var (
		sess      Session
		startedAt int64
	)
	if err := row.Scan(
		&sess.ID, &sess.Scenario, &sess.Token, &sess.ProcessID, &startedAt,
		&sess.Finished, &sess.Pass, &sess.Failure, &sess.Digest,
	); err != nil {
		return Session{}, err
	}
	sess.StartedAt = time.UnixMilli(startedAt).UTC()
	return sess, nil
}

// ReadSession returns the session with the given id.
// Returns ErrSessionNotFound if it does not exist.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("read session %s: %w", id, ErrSessionNotFound)
	}
	if err != nil {
		return Session{}, fmt.Errorf("read session %s: %w", id, err)
	}
	return sess, nil
}

// ListSessions returns every session, oldest first. A non-empty scenario
// filters by scenario name.
//
// Returns an empty slice (not nil) if there are none.
func (s *Store) ListSessions(ctx context.Context, scenario string) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	var args []any
	if scenario != "" {
		query += ` WHERE scenario = ?`
		args = append(args, scenario)
	}
	query += ` ORDER BY started_at ASC, id COLLATE BINARY ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadSteps returns a session's steps in execution order, each with both
// streams in seq order.
func (s *Store) ReadSteps(ctx context.Context, sessionID string) ([]Step, error) {
	if _, err := s.ReadSession(ctx, sessionID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT idx, name, pass, failure
		FROM steps
		WHERE session_id = ?
		ORDER BY idx ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}

	steps := []Step{}
	for rows.Next() {
		var st Step
		if err := rows.Scan(&st.Index, &st.Name, &st.Pass, &st.Failure); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan step: %w", err)
		}
		steps = append(steps, st)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	rows.Close()

	// Single connection: the steps cursor must be closed before the next query.
	for i := range steps {
		if steps[i].Expected, err = s.ReadStream(ctx, sessionID, steps[i].Index, StreamExpected); err != nil {
			return nil, err
		}
		if steps[i].Captured, err = s.ReadStream(ctx, sessionID, steps[i].Index, StreamCaptured); err != nil {
			return nil, err
		}
	}
	return steps, nil
}

// ReadStream returns one stream of one step in seq order.
// Returns an empty slice (not nil) if the stream has no records.
func (s *Store) ReadStream(ctx context.Context, sessionID string, step int, stream Stream) ([]notify.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, p0, p1, p2, p3, process_id, child_id
		FROM records
		WHERE session_id = ? AND step = ? AND stream = ?
		ORDER BY seq ASC
	`, sessionID, step, string(stream))
	if err != nil {
		return nil, fmt.Errorf("query %s records: %w", stream, err)
	}
	defer rows.Close()

	recs := []notify.Record{}
	for rows.Next() {
		var (
			kindName       string
			p0, p1, p2, p3 int
			pid, child     int
		)
		if err := rows.Scan(&kindName, &p0, &p1, &p2, &p3, &pid, &child); err != nil {
			return nil, fmt.Errorf("scan %s record: %w", stream, err)
		}
		kind, err := notify.ParseKind(kindName)
		if err != nil {
			return nil, fmt.Errorf("scan %s record: %w", stream, err)
		}
		recs = append(recs, notify.New(kind, p0, p1, p2, p3).WithIdentifiers(pid, child))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s records: %w", stream, err)
	}
	return recs, nil
}
