package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/model"
)

type RoutineStore struct {
	db *sql.DB
}

func NewRoutineStore(db *sql.DB) *RoutineStore {
	return &RoutineStore{db: db}
}

func scanRoutine(scanner interface{ Scan(...any) error }) (*model.Routine, error) {
	var r model.Routine
	var days string
	var active int

	err := scanner.Scan(
		&r.ID, &r.OwnerID, &r.Title, &r.Description, &r.Frequency,
		&days, &r.TimeOfDay, &active, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Active = active != 0
	if err := json.Unmarshal([]byte(days), &r.DaysOfWeek); err != nil {
		return nil, fmt.Errorf("decode days_of_week: %w", err)
	}
	if r.DaysOfWeek == nil {
		r.DaysOfWeek = []model.Weekday{}
	}
	return &r, nil
}

const routineCols = `id, owner_id, title, description, frequency, days_of_week, time_of_day, active, created_at`

func encodeDays(days []model.Weekday) (string, error) {
	if days == nil {
		days = []model.Weekday{}
	}
	b, err := json.Marshal(days)
	if err != nil {
		return "", fmt.Errorf("encode days_of_week: %w", err)
	}
	return string(b), nil
}

// List returns the owner's routines, newest first.
func (s *RoutineStore) List(ctx context.Context, owner string) ([]model.Routine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+routineCols+` FROM routines WHERE owner_id = ? ORDER BY created_at DESC, rowid DESC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list routines: %w", err)
	}
	defer rows.Close()

	routines := []model.Routine{}
	for rows.Next() {
		r, err := scanRoutine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan routine: %w", err)
		}
		routines = append(routines, *r)
	}
	return routines, rows.Err()
}

// Create inserts a routine. Days are dropped unless the frequency is weekly.
func (s *RoutineStore) Create(ctx context.Context, owner string, r model.Routine) error {
	if err := r.Validate(); err != nil {
		return fmt.Errorf("insert routine: %w", err)
	}
	days, err := encodeDays(r.NormalizedDays())
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO routines (id, owner_id, title, description, frequency, days_of_week, time_of_day, active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		newID(), owner, r.Title, r.Description, r.Frequency, days, r.TimeOfDay, boolInt(r.Active), now(),
	)
	if err != nil {
		return fmt.Errorf("insert routine: %w", err)
	}
	return nil
}

// Update applies the patch and then clears the days of any routine that is
// not weekly, in one transaction.
func (s *RoutineStore) Update(ctx context.Context, owner, id string, p model.RoutinePatch) error {
	var a assignments
	if p.Title != nil {
		a.set("title", *p.Title)
	}
	if p.Description != nil {
		a.set("description", *p.Description)
	}
	if p.Frequency != nil {
		a.set("frequency", *p.Frequency)
	}
	if p.DaysOfWeek != nil {
		days, err := encodeDays(*p.DaysOfWeek)
		if err != nil {
			return err
		}
		a.set("days_of_week", days)
	}
	if p.TimeOfDay != nil {
		a.set("time_of_day", *p.TimeOfDay)
	}
	if p.Active != nil {
		a.set("active", boolInt(*p.Active))
	}
	if a.empty() {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE routines SET `+a.clause()+` WHERE id = ? AND owner_id = ?`,
		append(a.args, id, owner)...,
	); err != nil {
		return fmt.Errorf("update routine: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE routines SET days_of_week = '[]' WHERE id = ? AND owner_id = ? AND frequency <> 'weekly'`,
		id, owner,
	); err != nil {
		return fmt.Errorf("normalize routine days: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit routine update: %w", err)
	}
	return nil
}

func (s *RoutineStore) Delete(ctx context.Context, owner, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM routines WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete routine: %w", err)
	}
	return nil
}
