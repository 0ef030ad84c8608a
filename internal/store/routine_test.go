package store

import (
	"testing"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/model"
)

func TestRoutineCreateWeekly(t *testing.T) {
	s := NewRoutineStore(setupTestDB(t))

	err := s.Create(ctx, alice, model.Routine{
		Title:      "Gym",
		Frequency:  model.FrequencyWeekly,
		DaysOfWeek: []model.Weekday{model.Monday, model.Thursday},
		TimeOfDay:  "07:30",
		Active:     true,
	})
	if err != nil {
		t.Fatalf("create routine: %v", err)
	}

	routines, err := s.List(ctx, alice)
	if err != nil {
		t.Fatalf("list routines: %v", err)
	}
	if len(routines) != 1 {
		t.Fatalf("got %d routines, want 1", len(routines))
	}
	got := routines[0]
	if got.OwnerID != alice {
		t.Errorf("owner = %q, want %q", got.OwnerID, alice)
	}
	if len(got.DaysOfWeek) != 2 || got.DaysOfWeek[0] != model.Monday || got.DaysOfWeek[1] != model.Thursday {
		t.Errorf("days = %v, want [monday thursday]", got.DaysOfWeek)
	}
	if got.TimeOfDay != "07:30" {
		t.Errorf("time_of_day = %q, want %q", got.TimeOfDay, "07:30")
	}
	if !got.Active {
		t.Error("active should be true")
	}
}

func TestRoutineCreateDailyDropsDays(t *testing.T) {
	s := NewRoutineStore(setupTestDB(t))

	err := s.Create(ctx, alice, model.Routine{
		Title:      "Meditate",
		Frequency:  model.FrequencyDaily,
		DaysOfWeek: []model.Weekday{model.Monday},
	})
	if err != nil {
		t.Fatalf("create routine: %v", err)
	}

	routines, _ := s.List(ctx, alice)
	if len(routines[0].DaysOfWeek) != 0 {
		t.Errorf("days = %v, want empty for daily routine", routines[0].DaysOfWeek)
	}
}

func TestRoutineCreateInvalidFrequency(t *testing.T) {
	s := NewRoutineStore(setupTestDB(t))

	if err := s.Create(ctx, alice, model.Routine{Title: "x", Frequency: "hourly"}); err == nil {
		t.Fatal("expected constraint violation for unknown frequency")
	}
}

func TestRoutineUpdateFrequencyClearsDays(t *testing.T) {
	s := NewRoutineStore(setupTestDB(t))

	s.Create(ctx, alice, model.Routine{
		Title:      "Run",
		Frequency:  model.FrequencyWeekly,
		DaysOfWeek: []model.Weekday{model.Saturday},
	})
	routines, _ := s.List(ctx, alice)
	id := routines[0].ID

	if err := s.Update(ctx, alice, id, model.RoutinePatch{Frequency: ptr(model.FrequencyMonthly)}); err != nil {
		t.Fatalf("update routine: %v", err)
	}

	routines, _ = s.List(ctx, alice)
	if routines[0].Frequency != model.FrequencyMonthly {
		t.Errorf("frequency = %q, want %q", routines[0].Frequency, model.FrequencyMonthly)
	}
	if len(routines[0].DaysOfWeek) != 0 {
		t.Errorf("days = %v, want empty", routines[0].DaysOfWeek)
	}
}

func TestRoutineUpdateDaysOnNonWeeklyIgnored(t *testing.T) {
	s := NewRoutineStore(setupTestDB(t))

	s.Create(ctx, alice, model.Routine{Title: "Read", Frequency: model.FrequencyDaily})
	routines, _ := s.List(ctx, alice)

	days := []model.Weekday{model.Friday}
	if err := s.Update(ctx, alice, routines[0].ID, model.RoutinePatch{DaysOfWeek: &days}); err != nil {
		t.Fatalf("update routine: %v", err)
	}

	routines, _ = s.List(ctx, alice)
	if len(routines[0].DaysOfWeek) != 0 {
		t.Errorf("days = %v, want empty for daily routine", routines[0].DaysOfWeek)
	}
}

func TestRoutineUpdateActive(t *testing.T) {
	s := NewRoutineStore(setupTestDB(t))

	s.Create(ctx, alice, model.Routine{Title: "Journal", Frequency: model.FrequencyDaily, Active: true})
	routines, _ := s.List(ctx, alice)

	if err := s.Update(ctx, alice, routines[0].ID, model.RoutinePatch{Active: ptr(false)}); err != nil {
		t.Fatalf("update routine: %v", err)
	}

	routines, _ = s.List(ctx, alice)
	if routines[0].Active {
		t.Error("active should be false after update")
	}
	if routines[0].Title != "Journal" {
		t.Errorf("title = %q, want %q", routines[0].Title, "Journal")
	}
}

func TestRoutineUpdateOtherOwnerIsNoop(t *testing.T) {
	s := NewRoutineStore(setupTestDB(t))

	s.Create(ctx, alice, model.Routine{Title: "Stretch", Frequency: model.FrequencyDaily})
	routines, _ := s.List(ctx, alice)

	if err := s.Update(ctx, bob, routines[0].ID, model.RoutinePatch{Title: ptr("mine now")}); err != nil {
		t.Fatalf("update routine: %v", err)
	}

	routines, _ = s.List(ctx, alice)
	if routines[0].Title != "Stretch" {
		t.Errorf("title = %q, want %q", routines[0].Title, "Stretch")
	}
}

func TestRoutineDelete(t *testing.T) {
	s := NewRoutineStore(setupTestDB(t))

	s.Create(ctx, alice, model.Routine{Title: "Walk", Frequency: model.FrequencyDaily})
	routines, _ := s.List(ctx, alice)

	if err := s.Delete(ctx, alice, routines[0].ID); err != nil {
		t.Fatalf("delete routine: %v", err)
	}

	routines, _ = s.List(ctx, alice)
	if len(routines) != 0 {
		t.Errorf("got %d routines, want 0", len(routines))
	}
}
