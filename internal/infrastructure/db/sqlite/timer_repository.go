package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/tickwise/timetrack/internal/core/domain"
)

// TimerRepository stores active timers. The UNIQUE(user_id) constraint is the
// one-timer-per-user guarantee.
type TimerRepository struct {
	db *sql.DB
}

func (r *TimerRepository) FindByUser(ctx context.Context, userID string) (*domain.ActiveTimer, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, project_id, task_id, description, start_time
		FROM active_timers
		WHERE user_id = ?
		ORDER BY start_time DESC
		LIMIT 1`, userID)

	var (
		t     domain.ActiveTimer
		task  sql.NullString
		desc  sql.NullString
		start int64
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.ProjectID, &task, &desc, &start); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoActiveTimer
		}
		return nil, err
	}
	t.TaskID = stringPtr(task)
	t.Description = stringPtr(desc)
	t.StartTime = fromNanos(start)
	return &t, nil
}

func (r *TimerRepository) Insert(ctx context.Context, t *domain.ActiveTimer) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO active_timers (id, user_id, project_id, task_id, description, start_time)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.ProjectID, nullString(t.TaskID), nullString(t.Description), toNanos(t.StartTime))
	if isUniqueViolation(err) {
		return domain.ErrTimerRunning
	}
	return err
}

func (r *TimerRepository) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM active_timers WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNoActiveTimer
	}
	return nil
}
