package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/set-night/omegachat/internal/domain"
	"github.com/set-night/omegachat/internal/repository"
)

const learningColumns = `id, session_id, original, correction, context, model, summary,
	applied_count, score, created_at`

func (s *Store) RecordLearning(ctx context.Context, in domain.NewLearning) (*domain.Learning, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	l := &domain.Learning{
		SessionID:  in.SessionID,
		Original:   strings.TrimSpace(in.Original),
		Correction: strings.TrimSpace(in.Correction),
		Context:    in.Context,
		Model:      in.Model,
		Summary:    domain.SummarizeLearning(in.Original, in.Correction),
		CreatedAt:  now,
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO learnings (session_id, original, correction, context, model, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		nullString(l.SessionID), l.Original, l.Correction, l.Context, l.Model, l.Summary, toNanos(now),
	)
	if err != nil {
		return nil, repository.StorageError("record learning", err)
	}
	if l.ID, err = res.LastInsertId(); err != nil {
		return nil, repository.StorageError("record learning", err)
	}
	return l, nil
}

// ListLearnings returns every learning in creation order.
func (s *Store) ListLearnings(ctx context.Context) ([]domain.Learning, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+learningColumns+` FROM learnings ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, repository.StorageError("list learnings", err)
	}
	return collectLearnings(rows)
}

// RelevantLearnings returns learnings recorded for model or for no model,
// best scored first.
func (s *Store) RelevantLearnings(ctx context.Context, model string, limit int) ([]domain.Learning, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+learningColumns+` FROM learnings
		WHERE model = '' OR model = ?
		ORDER BY score DESC, created_at DESC, id DESC
		LIMIT ?`, model, limit)
	if err != nil {
		return nil, repository.StorageError("relevant learnings", err)
	}
	return collectLearnings(rows)
}

// MarkLearningsApplied logs one application per learning and moves its score.
func (s *Store) MarkLearningsApplied(ctx context.Context, sessionID string, ids []int64, success bool) error {
	if len(ids) == 0 {
		return nil
	}
	delta := domain.ScoreStep
	if !success {
		delta = -delta
	}
	now := toNanos(time.Now())

	return s.withTx(ctx, "mark learnings applied", func(tx *sql.Tx) error {
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO learning_applications (learning_id, session_id, success, applied_at)
				VALUES (?, ?, ?, ?)`, id, sessionID, success, now); err != nil {
				return repository.StorageError("insert learning application", err)
			}
			if _, err := tx.ExecContext(ctx, `
				UPDATE learnings SET applied_count = applied_count + 1, score = score + ?
				WHERE id = ?`, delta, id); err != nil {
				return repository.StorageError("update learning score", err)
			}
		}
		return nil
	})
}

// LearningLogs returns the newest learnings with their application totals.
func (s *Store) LearningLogs(ctx context.Context, limit int) ([]domain.LearningLog, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT l.id, l.session_id, l.original, l.correction, l.context, l.model, l.summary,
			l.applied_count, l.score, l.created_at,
			COUNT(a.id), COALESCE(SUM(a.success), 0)
		FROM learnings l
		LEFT JOIN learning_applications a ON a.learning_id = l.id
		GROUP BY l.id
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, repository.StorageError("learning logs", err)
	}
	defer rows.Close()

	var logs []domain.LearningLog
	for rows.Next() {
		var entry domain.LearningLog
		if err := scanLearning(rows, &entry.Learning, &entry.Applications, &entry.Successes); err != nil {
			return nil, repository.StorageError("scan learning log", err)
		}
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.StorageError("learning logs", err)
	}
	return logs, nil
}

func collectLearnings(rows *sql.Rows) ([]domain.Learning, error) {
	defer rows.Close()

	var learnings []domain.Learning
	for rows.Next() {
		var l domain.Learning
		if err := scanLearning(rows, &l); err != nil {
			return nil, repository.StorageError("scan learning", err)
		}
		learnings = append(learnings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, repository.StorageError("list learnings", err)
	}
	return learnings, nil
}

func scanLearning(row rowScanner, l *domain.Learning, extra ...any) error {
	var (
		sessionID sql.NullString
		createdAt int64
	)
	dest := append([]any{
		&l.ID, &sessionID, &l.Original, &l.Correction, &l.Context, &l.Model, &l.Summary,
		&l.AppliedCount, &l.Score, &createdAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}
	l.SessionID = sessionID.String
	l.CreatedAt = fromNanos(createdAt)
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
