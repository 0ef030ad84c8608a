package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/model"
)

type TimetableStore struct {
	db *sql.DB
}

func NewTimetableStore(db *sql.DB) *TimetableStore {
	return &TimetableStore{db: db}
}

func scanTimetableEntry(scanner interface{ Scan(...any) error }) (*model.TimetableEntry, error) {
	var e model.TimetableEntry
	err := scanner.Scan(
		&e.ID, &e.OwnerID, &e.Title, &e.DayOfWeek, &e.StartTime,
		&e.EndTime, &e.Room, &e.Color, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const timetableCols = `id, owner_id, title, day_of_week, start_time, end_time, room, color, created_at`

// List returns the owner's timetable from Monday to Sunday, each day in
// start time order.
func (s *TimetableStore) List(ctx context.Context, owner string) ([]model.TimetableEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+timetableCols+` FROM timetable WHERE owner_id = ?
		 ORDER BY start_time ASC, rowid ASC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list timetable: %w", err)
	}
	defer rows.Close()

	entries := []model.TimetableEntry{}
	for rows.Next() {
		e, err := scanTimetableEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan timetable entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list timetable: %w", err)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DayOfWeek.Ordinal() < entries[j].DayOfWeek.Ordinal()
	})
	return entries, nil
}

func (s *TimetableStore) Create(ctx context.Context, owner string, e model.TimetableEntry) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("insert timetable entry: %w", err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO timetable (id, owner_id, title, day_of_week, start_time, end_time, room, color, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		newID(), owner, e.Title, e.DayOfWeek, e.StartTime, e.EndTime, e.Room, e.Color, now(),
	)
	if err != nil {
		return fmt.Errorf("insert timetable entry: %w", err)
	}
	return nil
}

func (s *TimetableStore) Update(ctx context.Context, owner, id string, p model.TimetablePatch) error {
	var a assignments
	if p.Title != nil {
		a.set("title", *p.Title)
	}
	if p.DayOfWeek != nil {
		a.set("day_of_week", *p.DayOfWeek)
	}
	if p.StartTime != nil {
		a.set("start_time", *p.StartTime)
	}
	if p.EndTime != nil {
		a.set("end_time", *p.EndTime)
	}
	if p.Room != nil {
		a.set("room", *p.Room)
	}
	if p.Color != nil {
		a.set("color", *p.Color)
	}
	if a.empty() {
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE timetable SET `+a.clause()+` WHERE id = ? AND owner_id = ?`,
		append(a.args, id, owner)...,
	)
	if err != nil {
		return fmt.Errorf("update timetable entry: %w", err)
	}
	return nil
}

func (s *TimetableStore) Delete(ctx context.Context, owner, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM timetable WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete timetable entry: %w", err)
	}
	return nil
}
