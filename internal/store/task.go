package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/model"
)

type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	var t model.Task
	var dueDate sql.NullTime
	var completed int

	err := scanner.Scan(
		&t.ID, &t.OwnerID, &t.Title, &t.Description, &dueDate,
		&completed, &t.Priority, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Completed = completed != 0
	if dueDate.Valid {
		t.DueDate = &dueDate.Time
	}
	return &t, nil
}

const taskCols = `id, owner_id, title, description, due_date, completed, priority, created_at`

// List returns the owner's tasks, newest first.
func (s *TaskStore) List(ctx context.Context, owner string) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (s *TaskStore) Create(ctx context.Context, owner string, t model.Task) error {
	if err := t.Validate(); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}

	var due sql.NullTime
	if t.DueDate != nil {
		due = sql.NullTime{Time: t.DueDate.UTC(), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, owner_id, title, description, due_date, completed, priority, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		newID(), owner, t.Title, t.Description, due, boolInt(t.Completed), t.Priority, now(),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Update applies the patch to the owner's task. Matching no row is not an
// error.
func (s *TaskStore) Update(ctx context.Context, owner, id string, p model.TaskPatch) error {
	var a assignments
	if p.Title != nil {
		a.set("title", *p.Title)
	}
	if p.Description != nil {
		a.set("description", *p.Description)
	}
	switch {
	case p.ClearDueDate:
		a.set("due_date", nil)
	case p.DueDate != nil:
		a.set("due_date", p.DueDate.UTC())
	}
	if p.Completed != nil {
		a.set("completed", boolInt(*p.Completed))
	}
	if p.Priority != nil {
		a.set("priority", *p.Priority)
	}
	if a.empty() {
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET `+a.clause()+` WHERE id = ? AND owner_id = ?`,
		append(a.args, id, owner)...,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return nil
}

func (s *TaskStore) Delete(ctx context.Context, owner, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}
