package docsync

import (
	"slices"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/model"
)

const completedLayout = "2006-01-02T15:04:05.000Z07:00"

// AddTask appends a task, assigning an id if it has none, and returns the id.
func (s *Store) AddTask(t model.DocTask) string {
	t.ID = newID(t.ID)
	s.mutate(func(d *model.Document) { d.Tasks = append(d.Tasks, t) })
	return t.ID
}

func (s *Store) RemoveTask(id string) {
	s.mutate(func(d *model.Document) {
		d.Tasks = slices.DeleteFunc(d.Tasks, func(t model.DocTask) bool { return t.ID == id })
	})
}

func (s *Store) ToggleTask(id string) {
	s.mutate(func(d *model.Document) {
		for i := range d.Tasks {
			if d.Tasks[i].ID == id {
				d.Tasks[i].Completed = !d.Tasks[i].Completed
			}
		}
	})
}

func (s *Store) AddClass(c model.ClassEntry) string {
	c.ID = newID(c.ID)
	s.mutate(func(d *model.Document) { d.Timetable = append(d.Timetable, c) })
	return c.ID
}

func (s *Store) RemoveClass(id string) {
	s.mutate(func(d *model.Document) {
		d.Timetable = slices.DeleteFunc(d.Timetable, func(c model.ClassEntry) bool { return c.ID == id })
	})
}

func (s *Store) UpdateClass(id string, p model.ClassPatch) {
	s.mutate(func(d *model.Document) {
		for i := range d.Timetable {
			if d.Timetable[i].ID != id {
				continue
			}
			c := &d.Timetable[i]
			if p.Subject != nil {
				c.Subject = *p.Subject
			}
			if p.Room != nil {
				c.Room = *p.Room
			}
			if p.StartTime != nil {
				c.StartTime = *p.StartTime
			}
			if p.EndTime != nil {
				c.EndTime = *p.EndTime
			}
			if p.DayOfWeek != nil {
				c.DayOfWeek = *p.DayOfWeek
			}
		}
	})
}

func (s *Store) AddEvent(e model.DocEvent) string {
	e.ID = newID(e.ID)
	s.mutate(func(d *model.Document) { d.Events = append(d.Events, e) })
	return e.ID
}

func (s *Store) RemoveEvent(id string) {
	s.mutate(func(d *model.Document) {
		d.Events = slices.DeleteFunc(d.Events, func(e model.DocEvent) bool { return e.ID == id })
	})
}

func (s *Store) UpdateEvent(id string, p model.DocEventPatch) {
	s.mutate(func(d *model.Document) {
		for i := range d.Events {
			if d.Events[i].ID != id {
				continue
			}
			e := &d.Events[i]
			if p.Title != nil {
				e.Title = *p.Title
			}
			if p.Date != nil {
				e.Date = *p.Date
			}
			if p.StartTime != nil {
				e.StartTime = *p.StartTime
			}
			if p.EndTime != nil {
				e.EndTime = *p.EndTime
			}
			if p.Type != nil {
				e.Type = *p.Type
			}
			if p.Description != nil {
				e.Description = *p.Description
			}
		}
	})
}

func (s *Store) AddRoutine(r model.DailyRoutine) string {
	r.ID = newID(r.ID)
	if r.Days == nil {
		r.Days = []int{}
	}
	s.mutate(func(d *model.Document) { d.Routines = append(d.Routines, r) })
	return r.ID
}

func (s *Store) RemoveRoutine(id string) {
	s.mutate(func(d *model.Document) {
		d.Routines = slices.DeleteFunc(d.Routines, func(r model.DailyRoutine) bool { return r.ID == id })
	})
}

// ToggleRoutine flips completion. Completing stamps lastCompleted;
// un-completing keeps the previous stamp.
func (s *Store) ToggleRoutine(id string) {
	now := s.now().UTC().Format(completedLayout)
	s.mutate(func(d *model.Document) {
		for i := range d.Routines {
			r := &d.Routines[i]
			if r.ID != id {
				continue
			}
			r.Completed = !r.Completed
			if r.Completed {
				r.LastCompleted = now
			}
		}
	})
}
