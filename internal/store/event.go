package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/model"
)

type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

func scanEvent(scanner interface{ Scan(...any) error }) (*model.Event, error) {
	var e model.Event
	err := scanner.Scan(
		&e.ID, &e.OwnerID, &e.Title, &e.Description, &e.StartTime,
		&e.EndTime, &e.Location, &e.Color, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const eventCols = `id, owner_id, title, description, start_time, end_time, location, color, created_at`

// List returns the owner's events in start order.
func (s *EventStore) List(ctx context.Context, owner string) ([]model.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventCols+` FROM events WHERE owner_id = ? ORDER BY start_time ASC, rowid ASC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

func (s *EventStore) Create(ctx context.Context, owner string, e model.Event) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (id, owner_id, title, description, start_time, end_time, location, color, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		newID(), owner, e.Title, e.Description, e.StartTime.UTC(), e.EndTime.UTC(), e.Location, e.Color, now(),
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Update applies the patch. A patch that would put the end before the start
// is rejected by the table's check constraint.
func (s *EventStore) Update(ctx context.Context, owner, id string, p model.EventPatch) error {
	var a assignments
	if p.Title != nil {
		a.set("title", *p.Title)
	}
	if p.Description != nil {
		a.set("description", *p.Description)
	}
	if p.StartTime != nil {
		a.set("start_time", p.StartTime.UTC())
	}
	if p.EndTime != nil {
		a.set("end_time", p.EndTime.UTC())
	}
	if p.Location != nil {
		a.set("location", *p.Location)
	}
	if p.Color != nil {
		a.set("color", *p.Color)
	}
	if a.empty() {
		return nil
	}

	_, err := s.db.ExecContext(ctx,
		`UPDATE events SET `+a.clause()+` WHERE id = ? AND owner_id = ?`,
		append(a.args, id, owner)...,
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

func (s *EventStore) Delete(ctx context.Context, owner, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id = ? AND owner_id = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
