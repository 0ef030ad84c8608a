package model

import (
	"strings"
	"time"
)

type Weekday string

const (
	Monday    Weekday = "monday"
	Tuesday   Weekday = "tuesday"
	Wednesday Weekday = "wednesday"
	Thursday  Weekday = "thursday"
	Friday    Weekday = "friday"
	Saturday  Weekday = "saturday"
	Sunday    Weekday = "sunday"
)

var weekdays = map[time.Weekday]Weekday{
	time.Monday:    Monday,
	time.Tuesday:   Tuesday,
	time.Wednesday: Wednesday,
	time.Thursday:  Thursday,
	time.Friday:    Friday,
	time.Saturday:  Saturday,
	time.Sunday:    Sunday,
}

func (d Weekday) Valid() bool {
	_, ok := d.Weekday()
	return ok
}

// Weekday converts to the time package's representation.
func (d Weekday) Weekday() (time.Weekday, bool) {
	for wd, name := range weekdays {
		if name == d {
			return wd, true
		}
	}
	return 0, false
}

// Ordinal ranks the week starting on Monday (1) and ending on Sunday (7).
// Unknown values rank last.
func (d Weekday) Ordinal() int {
	wd, ok := d.Weekday()
	if !ok {
		return 8
	}
	if wd == time.Sunday {
		return 7
	}
	return int(wd)
}

func WeekdayOf(wd time.Weekday) Weekday {
	return weekdays[wd]
}

type TimetableEntry struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"user_id"`
	Title     string    `json:"title"`
	DayOfWeek Weekday   `json:"day_of_week"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
	Room      string    `json:"room,omitempty"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

type TimetablePatch struct {
	Title     *string
	DayOfWeek *Weekday
	StartTime *string
	EndTime   *string
	Room      *string
	Color     *string
}

// Validate compares clock times as "HH:MM" strings, which order correctly
// when zero padded.
func (e TimetableEntry) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return ErrTitleRequired
	}
	if e.EndTime < e.StartTime {
		return ErrEndBeforeStart
	}
	return nil
}
