package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// timeLayout is fixed-width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const queryColumns = `id, created_at, session_id, user_id, workflow, question, answer, links,
	model, latency_ms, success, failure_kind, ip_address, user_agent,
	thumbs_up, thumbs_down, feedback`

// SaveQuery inserts q. A blank ID is filled with a new ULID and a zero
// CreatedAt with the current time; both are written back to q.
func (s *Store) SaveQuery(q *Query) error {
	if q.ID == "" {
		q.ID = s.NewID()
	}
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	if q.Workflow == "" {
		q.Workflow = "chat"
	}
	links := q.Links
	if links == nil {
		links = []string{}
	}
	linksJSON, err := json.Marshal(links)
	if err != nil {
		return fmt.Errorf("encoding links: %w", err)
	}

	_, err = s.db.Exec(`INSERT INTO queries (`+queryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.CreatedAt.UTC().Format(timeLayout), q.SessionID, q.UserID, q.Workflow,
		q.Question, q.Answer, string(linksJSON), q.Model, q.LatencyMS, boolInt(q.Success),
		q.FailureKind, q.IPAddress, q.UserAgent, boolInt(q.ThumbsUp), boolInt(q.ThumbsDown), q.Feedback,
	)
	if err != nil {
		return fmt.Errorf("inserting query: %w", err)
	}
	return nil
}

// GetQuery returns the query with the given id or ErrNotFound.
func (s *Store) GetQuery(id string) (Query, error) {
	row := s.db.QueryRow(`SELECT `+queryColumns+` FROM queries WHERE id = ?`, id)
	q, err := scanQuery(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Query{}, ErrNotFound
	}
	return q, err
}

// ListQueries returns queries newest first. A non-positive limit means 50.
func (s *Store) ListQueries(limit, offset int) ([]Query, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(`SELECT `+queryColumns+` FROM queries
		ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing queries: %w", err)
	}
	defer rows.Close()

	out := []Query{}
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// SessionQueries returns every query of a session, oldest first.
func (s *Store) SessionQueries(sessionID string) ([]Query, error) {
	rows, err := s.db.Query(`SELECT `+queryColumns+` FROM queries
		WHERE session_id = ? ORDER BY created_at ASC, id ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("listing session queries: %w", err)
	}
	defer rows.Close()

	out := []Query{}
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// UpdateFeedback records a rating on an existing query.
func (s *Store) UpdateFeedback(id string, fb Feedback) error {
	res, err := s.db.Exec(`UPDATE queries SET thumbs_up = ?, thumbs_down = ?, feedback = ? WHERE id = ?`,
		boolInt(fb.ThumbsUp), boolInt(fb.ThumbsDown), fb.Note, id)
	if err != nil {
		return fmt.Errorf("updating feedback: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteQuery removes a query. Deleting a missing id returns ErrNotFound.
func (s *Store) DeleteQuery(id string) error {
	res, err := s.db.Exec(`DELETE FROM queries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting query: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountQueries returns the number of stored queries.
func (s *Store) CountQueries() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM queries`).Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanQuery(sc scanner) (Query, error) {
	var q Query
	var createdAt, links string
	var success, thumbsUp, thumbsDown int
	err := sc.Scan(&q.ID, &createdAt, &q.SessionID, &q.UserID, &q.Workflow, &q.Question, &q.Answer, &links,
		&q.Model, &q.LatencyMS, &success, &q.FailureKind, &q.IPAddress, &q.UserAgent,
		&thumbsUp, &thumbsDown, &q.Feedback)
	if err != nil {
		return Query{}, err
	}
	q.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return Query{}, fmt.Errorf("parsing created_at %q: %w", createdAt, err)
	}
	if err := json.Unmarshal([]byte(links), &q.Links); err != nil {
		return Query{}, fmt.Errorf("decoding links: %w", err)
	}
	if q.Links == nil {
		q.Links = []string{}
	}
	q.Success = success != 0
	q.ThumbsUp = thumbsUp != 0
	q.ThumbsDown = thumbsDown != 0
	return q, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
