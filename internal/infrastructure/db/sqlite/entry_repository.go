package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
)

const entryColumns = `id, user_id, project_id, task_id, description, start_time, end_time,
	duration_seconds, billable, created_at, updated_at`

type EntryRepository struct {
	db *sql.DB
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEntry(ctx context.Context, ex execer, e *domain.TimeEntry) error {
	_, err := ex.ExecContext(ctx, `INSERT INTO time_entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.ProjectID, nullString(e.TaskID), nullString(e.Description),
		toNanos(e.StartTime), toNanos(e.EndTime), e.DurationSeconds, nullBool(e.Billable),
		toNanos(e.CreatedAt), toNanos(e.UpdatedAt))
	return err
}

func (r *EntryRepository) Insert(ctx context.Context, e *domain.TimeEntry) error {
	return insertEntry(ctx, r.db, e)
}

// InsertMany writes the batch in one transaction.
func (r *EntryRepository) InsertMany(ctx context.Context, entries []*domain.TimeEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	for i, e := range entries {
		if err := insertEntry(ctx, tx, e); err != nil {
			return fmt.Errorf("insert batch row %d: %w", i+1, err)
		}
	}
	return tx.Commit()
}

func (r *EntryRepository) FindByID(ctx context.Context, id, userID string) (*domain.TimeEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE id = ? AND user_id = ?`, id, userID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrEntryNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EntryRepository) Update(ctx context.Context, e *domain.TimeEntry) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE time_entries
		SET project_id = ?, task_id = ?, description = ?, start_time = ?, end_time = ?,
			duration_seconds = ?, billable = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		e.ProjectID, nullString(e.TaskID), nullString(e.Description), toNanos(e.StartTime), toNanos(e.EndTime),
		e.DurationSeconds, nullBool(e.Billable), toNanos(e.UpdatedAt), e.ID, e.UserID)
	return affectedOrNotFound(res, err)
}

func (r *EntryRepository) Delete(ctx context.Context, id, userID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM time_entries WHERE id = ? AND user_id = ?`, id, userID)
	return affectedOrNotFound(res, err)
}

// ListByUser returns the user's entries, newest first.
func (r *EntryRepository) ListByUser(ctx context.Context, userID string, q ports.EntryQuery) ([]domain.TimeEntry, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if !q.From.IsZero() {
		where = append(where, "start_time >= ?")
		args = append(args, toNanos(q.From))
	}
	if !q.To.IsZero() {
		where = append(where, "start_time <= ?")
		args = append(args, toNanos(q.To))
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+entryColumns+` FROM time_entries
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY start_time DESC, id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []domain.TimeEntry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (domain.TimeEntry, error) {
	var (
		e                            domain.TimeEntry
		task, desc                   sql.NullString
		billable                     sql.NullBool
		start, end, created, updated int64
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.ProjectID, &task, &desc, &start, &end,
		&e.DurationSeconds, &billable, &created, &updated); err != nil {
		return domain.TimeEntry{}, err
	}
	e.TaskID = stringPtr(task)
	e.Description = stringPtr(desc)
	e.Billable = boolPtr(billable)
	e.StartTime = fromNanos(start)
	e.EndTime = fromNanos(end)
	e.CreatedAt = fromNanos(created)
	e.UpdatedAt = fromNanos(updated)
	return e, nil
}

func affectedOrNotFound(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrEntryNotFound
	}
	return nil
}
