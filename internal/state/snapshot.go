package state

import (
	"context"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/model"
)

// Snapshot is a point-in-time copy of the store. Views render from it.
type Snapshot struct {
	Session   *model.Session         `json:"session"`
	Tasks     []model.Task           `json:"tasks"`
	Routines  []model.Routine        `json:"routines"`
	Events    []model.Event          `json:"events"`
	Timetable []model.TimetableEntry `json:"timetable"`
	Busy      bool                   `json:"busy"`
	LastError string                 `json:"last_error,omitempty"`
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Session:   s.session,
		Tasks:     s.tasks.items,
		Routines:  s.routines.items,
		Events:    s.events.items,
		Timetable: s.timetable.items,
		Busy:      s.inflight > 0,
		LastError: s.lastError,
	}
	return snap.Clone()
}

func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Session != nil {
		sess := *s.Session
		out.Session = &sess
	}
	out.Tasks = make([]model.Task, len(s.Tasks))
	for i, t := range s.Tasks {
		if t.DueDate != nil {
			due := *t.DueDate
			t.DueDate = &due
		}
		out.Tasks[i] = t
	}
	out.Routines = make([]model.Routine, len(s.Routines))
	for i, r := range s.Routines {
		r.DaysOfWeek = append([]model.Weekday{}, r.DaysOfWeek...)
		out.Routines[i] = r
	}
	out.Events = append([]model.Event{}, s.Events...)
	out.Timetable = append([]model.TimetableEntry{}, s.Timetable...)
	return out
}

// persisted is the layout of the local snapshot.
type persisted struct {
	Owner     string                 `json:"owner"`
	Tasks     []model.Task           `json:"tasks"`
	Routines  []model.Routine        `json:"routines"`
	Events    []model.Event          `json:"events"`
	Timetable []model.TimetableEntry `json:"timetable"`
}

func (s *Store) save(snap Snapshot) {
	if s.cache == nil {
		return
	}
	s.mu.Lock()
	owner := s.owner
	s.mu.Unlock()

	// Signed out: nothing is left to remember.
	if owner == "" {
		if err := s.cache.Delete(context.Background(), s.cfg.StorageKey); err != nil {
			s.logger.Warn("delete snapshot", "key", s.cfg.StorageKey, "error", err)
		}
		return
	}

	p := persisted{
		Owner:     owner,
		Tasks:     snap.Tasks,
		Routines:  snap.Routines,
		Events:    snap.Events,
		Timetable: snap.Timetable,
	}
	if err := s.cache.Save(context.Background(), s.cfg.StorageKey, p); err != nil {
		s.logger.Warn("save snapshot", "key", s.cfg.StorageKey, "error", err)
	}
}

// restore loads the local snapshot so the last known state is visible before
// any remote call completes.
func (s *Store) restore(ctx context.Context) {
	if s.cache == nil {
		return
	}
	var p persisted
	ok, err := s.cache.Load(ctx, s.cfg.StorageKey, &p)
	if err != nil {
		s.logger.Warn("restore snapshot", "key", s.cfg.StorageKey, "error", err)
		return
	}
	if !ok {
		return
	}

	s.mu.Lock()
	s.owner = p.Owner
	s.tasks.items = orEmpty(p.Tasks)
	s.routines.items = orEmpty(p.Routines)
	s.events.items = orEmpty(p.Events)
	s.timetable.items = orEmpty(p.Timetable)
	s.mu.Unlock()

	s.logger.Debug("snapshot restored", "key", s.cfg.StorageKey, "tasks", len(p.Tasks))
	s.changed(false)
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
