package state

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/apperr"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/model"
)

// Refresh re-lists all four collections concurrently and returns the first
// failure. Each collection is updated independently.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	signedIn := s.session != nil
	s.mu.Unlock()
	if !signedIn {
		s.notifier.Notify(Notice{Level: LevelError, Action: actionList, Message: "Please sign in to view your data"})
		return apperr.AuthRequired("refresh")
	}

	var g errgroup.Group
	g.Go(func() error { return s.RefreshTasks(ctx) })
	g.Go(func() error { return s.RefreshRoutines(ctx) })
	g.Go(func() error { return s.RefreshEvents(ctx) })
	g.Go(func() error { return s.RefreshTimetable(ctx) })
	return g.Wait()
}

func (s *Store) RefreshTasks(ctx context.Context) error {
	return run(ctx, s, s.tasks, actionList, nil)
}

func (s *Store) CreateTask(ctx context.Context, t model.Task) error {
	return run(ctx, s, s.tasks, "create", func(ctx context.Context, owner string) error {
		return s.tasks.adapter.Create(ctx, owner, t)
	})
}

func (s *Store) UpdateTask(ctx context.Context, id string, p model.TaskPatch) error {
	return run(ctx, s, s.tasks, "update", func(ctx context.Context, owner string) error {
		return s.tasks.adapter.Update(ctx, owner, id, p)
	})
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return run(ctx, s, s.tasks, "delete", func(ctx context.Context, owner string) error {
		return s.tasks.adapter.Delete(ctx, owner, id)
	})
}

func (s *Store) RefreshRoutines(ctx context.Context) error {
	return run(ctx, s, s.routines, actionList, nil)
}

func (s *Store) CreateRoutine(ctx context.Context, r model.Routine) error {
	return run(ctx, s, s.routines, "create", func(ctx context.Context, owner string) error {
		return s.routines.adapter.Create(ctx, owner, r)
	})
}

func (s *Store) UpdateRoutine(ctx context.Context, id string, p model.RoutinePatch) error {
	return run(ctx, s, s.routines, "update", func(ctx context.Context, owner string) error {
		return s.routines.adapter.Update(ctx, owner, id, p)
	})
}

func (s *Store) DeleteRoutine(ctx context.Context, id string) error {
	return run(ctx, s, s.routines, "delete", func(ctx context.Context, owner string) error {
		return s.routines.adapter.Delete(ctx, owner, id)
	})
}

func (s *Store) RefreshEvents(ctx context.Context) error {
	return run(ctx, s, s.events, actionList, nil)
}

func (s *Store) CreateEvent(ctx context.Context, e model.Event) error {
	return run(ctx, s, s.events, "create", func(ctx context.Context, owner string) error {
		return s.events.adapter.Create(ctx, owner, e)
	})
}

func (s *Store) UpdateEvent(ctx context.Context, id string, p model.EventPatch) error {
	return run(ctx, s, s.events, "update", func(ctx context.Context, owner string) error {
		return s.events.adapter.Update(ctx, owner, id, p)
	})
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	return run(ctx, s, s.events, "delete", func(ctx context.Context, owner string) error {
		return s.events.adapter.Delete(ctx, owner, id)
	})
}

func (s *Store) RefreshTimetable(ctx context.Context) error {
	return run(ctx, s, s.timetable, actionList, nil)
}

func (s *Store) CreateTimetableEntry(ctx context.Context, e model.TimetableEntry) error {
	return run(ctx, s, s.timetable, "create", func(ctx context.Context, owner string) error {
		return s.timetable.adapter.Create(ctx, owner, e)
	})
}

func (s *Store) UpdateTimetableEntry(ctx context.Context, id string, p model.TimetablePatch) error {
	return run(ctx, s, s.timetable, "update", func(ctx context.Context, owner string) error {
		return s.timetable.adapter.Update(ctx, owner, id, p)
	})
}

func (s *Store) DeleteTimetableEntry(ctx context.Context, id string) error {
	return run(ctx, s, s.timetable, "delete", func(ctx context.Context, owner string) error {
		return s.timetable.adapter.Delete(ctx, owner, id)
	})
}
