package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/set-night/omegachat/internal/domain"
	"github.com/set-night/omegachat/internal/repository"
	"github.com/shopspring/decimal"
)

const (
	sessionColumns = `id, name, model, system_prompt, temperature, max_tokens,
		thinking_mode, thinking_budget, auto_named, created_at, updated_at`
	messageColumns  = `id, session_id, role, content, thinking_ms, token_count, created_at`
	learningColumns = `id, COALESCE(session_id, ''), original, correction, context, model, summary,
		applied_count, score, created_at`
)

// Store is the Postgres implementation of the chat store. Writes to one
// session are serialized by a row lock on the session.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	s.db.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Store) CreateSession(ctx context.Context, in domain.NewSession) (*domain.Session, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	in = in.WithDefaults(domain.DefaultTemperature)

	row := s.db.QueryRow(ctx, `
		INSERT INTO sessions (id, name, model, system_prompt, temperature, max_tokens,
			thinking_mode, thinking_budget, auto_named)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+sessionColumns,
		uuid.NewString(), strings.TrimSpace(in.Name), in.Model, in.SystemPrompt,
		decimal.NewFromFloat(*in.Temperature), in.MaxTokens, string(in.ThinkingMode),
		*in.ThinkingBudget, in.AutoNamed,
	)
	sess, err := scanSession(row)
	if err != nil {
		return nil, repository.StorageError("create session", err)
	}
	return sess, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := scanSession(s.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, repository.StorageError("get session", err)
	}
	return sess, nil
}

func (s *Store) ListSessions(ctx context.Context) ([]domain.SessionSummary, error) {
	rows, err := s.db.Query(ctx, `
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
		var count int64
		sess, err := scanSession(rows, &count)
		if err != nil {
			return nil, repository.StorageError("scan session", err)
		}
		sessions = append(sessions, domain.SessionSummary{Session: *sess, MessageCount: int(count)})
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
	err := s.withTx(ctx, "update session", func(tx pgx.Tx) error {
		sess, err := scanSession(tx.QueryRow(ctx,
			`SELECT `+sessionColumns+` FROM sessions WHERE id = $1 FOR UPDATE`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrSessionNotFound
		}
		if err != nil {
			return repository.StorageError("lock session", err)
		}
		patch.Apply(sess)

		updated, err = scanSession(tx.QueryRow(ctx, `
			UPDATE sessions SET
				name = $2, model = $3, system_prompt = $4, temperature = $5, max_tokens = $6,
				thinking_mode = $7, thinking_budget = $8, auto_named = $9,
				updated_at = GREATEST(NOW(), updated_at + INTERVAL '1 microsecond')
			WHERE id = $1
			RETURNING `+sessionColumns,
			id, sess.Name, sess.Model, sess.SystemPrompt, decimal.NewFromFloat(sess.Temperature),
			sess.MaxTokens, string(sess.ThinkingMode), sess.ThinkingBudget, sess.AutoNamed,
		))
		if err != nil {
			return repository.StorageError("update session", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	return s.withTx(ctx, "delete session", func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE session_id = $1`, id); err != nil {
			return repository.StorageError("delete messages", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
		if err != nil {
			return repository.StorageError("delete session", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrSessionNotFound
		}
		return nil
	})
}

func (s *Store) AppendMessage(ctx context.Context, sessionID string, in domain.NewMessage) (*domain.Message, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var msg *domain.Message
	err := s.withTx(ctx, "append message", func(tx pgx.Tx) error {
		if err := touchSession(ctx, tx, sessionID); err != nil {
			return err
		}
		m, err := scanMessage(tx.QueryRow(ctx, `
			INSERT INTO messages (session_id, role, content, thinking_ms, token_count)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+messageColumns,
			sessionID, string(in.Role), in.Content, in.ThinkingMs, in.TokenCount,
		))
		if err != nil {
			return repository.StorageError("insert message", err)
		}
		msg = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *Store) ListMessages(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.Query(ctx, `
			SELECT `+messageColumns+` FROM (
				SELECT `+messageColumns+` FROM messages
				WHERE session_id = $1 ORDER BY id DESC LIMIT $2
			) recent ORDER BY id ASC`, sessionID, limit)
	} else {
		rows, err = s.db.Query(ctx,
			`SELECT `+messageColumns+` FROM messages WHERE session_id = $1 ORDER BY id ASC`, sessionID)
	}
	if err != nil {
		return nil, repository.StorageError("list messages", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, repository.StorageError("scan message", err)
		}
		msgs = append(msgs, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.StorageError("list messages", err)
	}
	return msgs, nil
}

func (s *Store) ClearMessages(ctx context.Context, sessionID string) error {
	return s.withTx(ctx, "clear messages", func(tx pgx.Tx) error {
		if err := touchSession(ctx, tx, sessionID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE session_id = $1`, sessionID); err != nil {
			return repository.StorageError("clear messages", err)
		}
		return nil
	})
}

func (s *Store) RecordLearning(ctx context.Context, in domain.NewLearning) (*domain.Learning, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	var sessionID *string
	if in.SessionID != "" {
		sessionID = &in.SessionID
	}
	l, err := scanLearning(s.db.QueryRow(ctx, `
		INSERT INTO learnings (session_id, original, correction, context, model, summary)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+learningColumns,
		sessionID, strings.TrimSpace(in.Original), strings.TrimSpace(in.Correction), in.Context, in.Model,
		domain.SummarizeLearning(in.Original, in.Correction),
	))
	if err != nil {
		return nil, repository.StorageError("record learning", err)
	}
	return l, nil
}

func (s *Store) ListLearnings(ctx context.Context) ([]domain.Learning, error) {
	rows, err := s.db.Query(ctx, `SELECT `+learningColumns+` FROM learnings ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, repository.StorageError("list learnings", err)
	}
	return collectLearnings(rows)
}

func (s *Store) RelevantLearnings(ctx context.Context, model string, limit int) ([]domain.Learning, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.Query(ctx, `
		SELECT `+learningColumns+` FROM learnings
		WHERE model = '' OR model = $1
		ORDER BY score DESC, created_at DESC, id DESC
		LIMIT $2`, model, limit)
	if err != nil {
		return nil, repository.StorageError("relevant learnings", err)
	}
	return collectLearnings(rows)
}

func (s *Store) MarkLearningsApplied(ctx context.Context, sessionID string, ids []int64, success bool) error {
	if len(ids) == 0 {
		return nil
	}
	delta := decimal.NewFromFloat(domain.ScoreStep)
	if !success {
		delta = delta.Neg()
	}

	return s.withTx(ctx, "mark learnings applied", func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, id := range ids {
			batch.Queue(`INSERT INTO learning_applications (learning_id, session_id, success) VALUES ($1, $2, $3)`,
				id, sessionID, success)
			batch.Queue(`UPDATE learnings SET applied_count = applied_count + 1, score = score + $2 WHERE id = $1`,
				id, delta)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return repository.StorageError("apply learnings", err)
		}
		return nil
	})
}

func (s *Store) LearningLogs(ctx context.Context, limit int) ([]domain.LearningLog, error) {
	query := `
		SELECT l.id, COALESCE(l.session_id, ''), l.original, l.correction, l.context, l.model, l.summary,
			l.applied_count, l.score, l.created_at,
			COUNT(a.id), COUNT(a.id) FILTER (WHERE a.success)
		FROM learnings l
		LEFT JOIN learning_applications a ON a.learning_id = l.id
		GROUP BY l.id
		ORDER BY l.created_at DESC, l.id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, repository.StorageError("learning logs", err)
	}
	defer rows.Close()

	var logs []domain.LearningLog
	for rows.Next() {
		var applications, successes int64
		l, err := scanLearning(rows, &applications, &successes)
		if err != nil {
			return nil, repository.StorageError("scan learning log", err)
		}
		logs = append(logs, domain.LearningLog{Learning: *l, Applications: int(applications), Successes: int(successes)})
	}
	if err := rows.Err(); err != nil {
		return nil, repository.StorageError("learning logs", err)
	}
	return logs, nil
}

func (s *Store) withTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return repository.StorageError(op, err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return repository.StorageError(op, err)
	}
	return nil
}

// touchSession locks the session row and bumps updated_at.
func touchSession(ctx context.Context, tx pgx.Tx, id string) error {
	tag, err := tx.Exec(ctx, `
		UPDATE sessions SET updated_at = GREATEST(NOW(), updated_at + INTERVAL '1 microsecond')
		WHERE id = $1`, id)
	if err != nil {
		return repository.StorageError("touch session", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func scanSession(row pgx.Row, extra ...any) (*domain.Session, error) {
	var (
		sess        domain.Session
		temperature decimal.Decimal
		mode        string
	)
	dest := append([]any{
		&sess.ID, &sess.Name, &sess.Model, &sess.SystemPrompt, &temperature, &sess.MaxTokens,
		&mode, &sess.ThinkingBudget, &sess.AutoNamed, &sess.CreatedAt, &sess.UpdatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	sess.Temperature = temperature.InexactFloat64()
	sess.ThinkingMode = domain.ThinkingMode(mode)
	sess.CreatedAt = sess.CreatedAt.UTC()
	sess.UpdatedAt = sess.UpdatedAt.UTC()
	return &sess, nil
}

func scanMessage(row pgx.Row) (*domain.Message, error) {
	var (
		m    domain.Message
		role string
	)
	if err := row.Scan(&m.ID, &m.SessionID, &role, &m.Content, &m.ThinkingMs, &m.TokenCount, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Role = domain.Role(role)
	m.CreatedAt = m.CreatedAt.UTC()
	return &m, nil
}

func scanLearning(row pgx.Row, extra ...any) (*domain.Learning, error) {
	var (
		l     domain.Learning
		score decimal.Decimal
	)
	dest := append([]any{
		&l.ID, &l.SessionID, &l.Original, &l.Correction, &l.Context, &l.Model, &l.Summary,
		&l.AppliedCount, &score, &l.CreatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	l.Score = score.InexactFloat64()
	l.CreatedAt = l.CreatedAt.UTC()
	return &l, nil
}

func collectLearnings(rows pgx.Rows) ([]domain.Learning, error) {
	defer rows.Close()

	var learnings []domain.Learning
	for rows.Next() {
		l, err := scanLearning(rows)
		if err != nil {
			return nil, repository.StorageError("scan learning", err)
		}
		learnings = append(learnings, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.StorageError("list learnings", err)
	}
	return learnings, nil
}
