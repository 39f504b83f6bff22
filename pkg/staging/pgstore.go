package staging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PGStore persists each session as one jsonb row.
type PGStore struct {
	conn PGConn
}

// PGConn matches *pgxpool.Pool and *pgx.Conn.
type PGConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func NewPGStore(conn PGConn) *PGStore {
	return &PGStore{conn: conn}
}

func (p *PGStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	var data []byte
	err := p.conn.QueryRow(ctx,
		`SELECT data FROM staging_sessions WHERE id = $1`, sessionID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", sessionID, err)
	}
	return &session, nil
}

func (p *PGStore) Save(ctx context.Context, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	rows, err := p.conn.Query(ctx, `
		INSERT INTO staging_sessions (id, status, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		session.SessionID, string(session.Status), data, session.CreatedAt, session.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	rows.Close()
	return rows.Err()
}

func (p *PGStore) Delete(ctx context.Context, sessionID string) error {
	rows, err := p.conn.Query(ctx, `DELETE FROM staging_sessions WHERE id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	rows.Close()
	return rows.Err()
}

func (p *PGStore) List(ctx context.Context) ([]*Session, error) {
	rows, err := p.conn.Query(ctx,
		`SELECT data FROM staging_sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		var session Session
		if err := json.Unmarshal(data, &session); err != nil {
			continue
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}
