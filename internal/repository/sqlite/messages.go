package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/set-night/omegachat/internal/domain"
	"github.com/set-night/omegachat/internal/repository"
)

const messageColumns = `id, session_id, role, content, thinking_ms, token_count, created_at`

// AppendMessage inserts the message and bumps the session's updated_at atomically.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, in domain.NewMessage) (*domain.Message, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var msg *domain.Message
	err := s.withTx(ctx, "append message", func(tx *sql.Tx) error {
		if _, err := touchSession(ctx, tx, sessionID); err != nil {
			return err
		}

		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO messages (session_id, role, content, thinking_ms, token_count, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			sessionID, string(in.Role), in.Content, nullInt64(in.ThinkingMs), nullInt(in.TokenCount), toNanos(now),
		)
		if err != nil {
			return repository.StorageError("insert message", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return repository.StorageError("insert message", err)
		}

		msg = &domain.Message{
			ID:         id,
			SessionID:  sessionID,
			Role:       in.Role,
			Content:    in.Content,
			ThinkingMs: in.ThinkingMs,
			TokenCount: in.TokenCount,
			CreatedAt:  now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// ListMessages returns the session's messages oldest first. A positive limit
// keeps only the newest limit rows.
func (s *Store) ListMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, `
			SELECT `+messageColumns+` FROM (
				SELECT `+messageColumns+` FROM messages
				WHERE session_id = ? ORDER BY id DESC LIMIT ?
			) ORDER BY id ASC`, sessionID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT `+messageColumns+` FROM messages WHERE session_id = ? ORDER BY id ASC`, sessionID)
	}
	if err != nil {
		return nil, repository.StorageError("list messages", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		var (
			m          domain.Message
			role       string
			thinkingMs sql.NullInt64
			tokens     sql.NullInt64
			createdAt  int64
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &role, &m.Content, &thinkingMs, &tokens, &createdAt); err != nil {
			return nil, repository.StorageError("scan message", err)
		}
		m.Role = domain.Role(role)
		if thinkingMs.Valid {
			v := thinkingMs.Int64
			m.ThinkingMs = &v
		}
		if tokens.Valid {
			v := int(tokens.Int64)
			m.TokenCount = &v
		}
		m.CreatedAt = fromNanos(createdAt)
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.StorageError("list messages", err)
	}
	return msgs, nil
}

// ClearMessages drops the session's history. Learnings are not touched.
func (s *Store) ClearMessages(ctx context.Context, sessionID string) error {
	return s.withTx(ctx, "clear messages", func(tx *sql.Tx) error {
		if _, err := touchSession(ctx, tx, sessionID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
			return repository.StorageError("clear messages", err)
		}
		return nil
	})
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
