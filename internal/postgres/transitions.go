package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ramiqadoumi/go-resume-flow/internal/domain"
)

// TransitionLog is the audit trail of task status changes.
type TransitionLog interface {
	RecordTransition(ctx context.Context, tr *domain.Transition) error
	History(ctx context.Context, taskID string) ([]*domain.Transition, error)
}

type transitionLog struct {
	pool *pgxpool.Pool
}

// NewTransitionLog wraps a pgxpool with the TransitionLog interface.
func NewTransitionLog(pool *pgxpool.Pool) TransitionLog {
	return &transitionLog{pool: pool}
}

func (l *transitionLog) RecordTransition(ctx context.Context, tr *domain.Transition) error {
	if tr.ID == "" {
		tr.ID = uuid.New().String()
	}
	if tr.At.IsZero() {
		tr.At = time.Now().UTC()
	}
	_, err := l.pool.Exec(ctx, `
		INSERT INTO task_transitions
			(id, task_id, job_id, from_status, to_status, retry_count, error, at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		tr.ID, tr.TaskID, tr.JobID, string(tr.From), string(tr.To),
		tr.RetryCount, tr.Error, tr.At,
	)
	if err != nil {
		return fmt.Errorf("record transition for task %s: %w", tr.TaskID, err)
	}
	return nil
}

func (l *transitionLog) History(ctx context.Context, taskID string) ([]*domain.Transition, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, task_id, job_id, from_status, to_status, retry_count, error, at
		FROM task_transitions
		WHERE task_id = $1
		ORDER BY at ASC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list transitions for task %s: %w", taskID, err)
	}
	defer rows.Close()

	history := []*domain.Transition{}
	for rows.Next() {
		var tr domain.Transition
		var from, to string
		if err := rows.Scan(&tr.ID, &tr.TaskID, &tr.JobID, &from, &to, &tr.RetryCount, &tr.Error, &tr.At); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.From = domain.Status(from)
		tr.To = domain.Status(to)
		history = append(history, &tr)
	}
	return history, rows.Err()
}
