package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/omegachat/internal/domain"
	"github.com/set-night/omegachat/internal/repository"
)

const sessionColumns = `id, name, model, system_prompt, temperature, max_tokens,
	thinking_mode, thinking_budget, auto_named, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) CreateSession(ctx context.Context, in domain.NewSession) (*domain.Session, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in = in.WithDefaults(domain.DefaultTemperature)

	now := time.Now().UTC()
	sess := &domain.Session{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(in.Name),
		Model:          in.Model,
		SystemPrompt:   in.SystemPrompt,
		Temperature:    *in.Temperature,
		MaxTokens:      in.MaxTokens,
		ThinkingMode:   in.ThinkingMode,
		ThinkingBudget: *in.ThinkingBudget,
		AutoNamed:      in.AutoNamed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Name, sess.Model, sess.SystemPrompt, sess.Temperature, sess.MaxTokens,
		string(sess.ThinkingMode), sess.ThinkingBudget, sess.AutoNamed, toNanos(now), toNanos(now),
	)
	if err != nil {
		return nil, repository.StorageError("create session", err)
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	return scanSessionRow(row, "get session")
}

func (s *Store) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`,
			(SELECT COUNT(*) FROM messages m WHERE m.session_id = sessions.id)
		FROM sessions
		ORDER BY updated_at DESC, created_at DESC`)
	if err != nil {
		return nil, repository.StorageError("list sessions", err)
	}
	defer rows.Close()

	var sessions []domain.SessionSummary
	for rows.Next() {
		var sum domain.SessionSummary
		if err := scanSession(rows, &sum.Session, &sum.MessageCount); err != nil {
			return nil, repository.StorageError("scan session", err)
		}
		sessions = append(sessions, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.StorageError("list sessions", err)
	}
	return sessions, nil
}

func (s *Store) UpdateSession(ctx context.Context, id string, patch domain.SessionPatch) (*domain.Session, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var updated *domain.Session
	err := s.withTx(ctx, "update session", func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
		sess, err := scanSessionRow(row, "get session")
		if err != nil {
			return err
		}
		patch.Apply(sess)

		var updatedAt int64
		err = tx.QueryRowContext(ctx, `
			UPDATE sessions SET
				name = ?, model = ?, system_prompt = ?, temperature = ?, max_tokens = ?,
				thinking_mode = ?, thinking_budget = ?, auto_named = ?,
				updated_at = MAX(?, updated_at + 1)
			WHERE id = ?
			RETURNING updated_at`,
			sess.Name, sess.Model, sess.SystemPrompt, sess.Temperature, sess.MaxTokens,
			string(sess.ThinkingMode), sess.ThinkingBudget, sess.AutoNamed,
			toNanos(time.Now()), id,
		).Scan(&updatedAt)
		if err != nil {
			return repository.StorageError("update session", err)
		}
		sess.UpdatedAt = fromNanos(updatedAt)
		updated = sess
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteSession removes the session and its messages in one transaction.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.withTx(ctx, "delete session", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, id); err != nil {
			return repository.StorageError("delete messages", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
		if err != nil {
			return repository.StorageError("delete session", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return repository.StorageError("delete session", err)
		}
		if n == 0 {
			return domain.ErrSessionNotFound
		}
		return nil
	})
}

// touchSession bumps updated_at so it strictly advances.
func touchSession(ctx context.Context, tx *sql.Tx, id string) (time.Time, error) {
	var updatedAt int64
	err := tx.QueryRowContext(ctx,
		`UPDATE sessions SET updated_at = MAX(?, updated_at + 1) WHERE id = ? RETURNING updated_at`,
		toNanos(time.Now()), id,
	).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return time.Time{}, repository.StorageError("touch session", err)
	}
	return fromNanos(updatedAt), nil
}

func scanSessionRow(row *sql.Row, op string) (*domain.Session, error) {
	var sess domain.Session
	if err := scanSession(row, &sess); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, repository.StorageError(op, err)
	}
	return &sess, nil
}

func scanSession(row rowScanner, sess *domain.Session, extra ...any) error {
	var (
		mode               string
		createdAt, updated int64
	)
	dest := append([]any{
		&sess.ID, &sess.Name, &sess.Model, &sess.SystemPrompt, &sess.Temperature, &sess.MaxTokens,
		&mode, &sess.ThinkingBudget, &sess.AutoNamed, &createdAt, &updated,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	sess.ThinkingMode = domain.ThinkingMode(mode)
	sess.CreatedAt = fromNanos(createdAt)
	sess.UpdatedAt = fromNanos(updated)
	return nil
}
