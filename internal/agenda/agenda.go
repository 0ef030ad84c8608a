// Package agenda derives the "today" view: the day's classes, events and
// due routines, in the order they happen.
package agenda

import (
	"sort"
	"time"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/model"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/recurrence"
)

const dateLayout = "2006-01-02"

type Day struct {
	Date     time.Time              `json:"date"`
	Classes  []model.TimetableEntry `json:"classes"`
	Events   []model.Event          `json:"events"`
	Routines []model.Routine        `json:"routines"`
	// Repeats describes each due routine's schedule, keyed by routine ID.
	Repeats map[string]string `json:"repeats"`
}

// ForRows builds the agenda for the calendar day of date from row-mode
// collections. Events are included when they overlap the day.
func ForRows(date time.Time, timetable []model.TimetableEntry, events []model.Event, routines []model.Routine) Day {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)
	today := model.WeekdayOf(date.Weekday())

	d := Day{
		Date:     dayStart,
		Classes:  []model.TimetableEntry{},
		Events:   []model.Event{},
		Routines: []model.Routine{},
		Repeats:  map[string]string{},
	}
	for _, e := range timetable {
		if e.DayOfWeek == today {
			d.Classes = append(d.Classes, e)
		}
	}
	sort.SliceStable(d.Classes, func(i, j int) bool { return d.Classes[i].StartTime < d.Classes[j].StartTime })

	for _, e := range events {
		if e.StartTime.Before(dayEnd) && !e.EndTime.Before(dayStart) {
			d.Events = append(d.Events, e)
		}
	}
	sort.SliceStable(d.Events, func(i, j int) bool { return d.Events[i].StartTime.Before(d.Events[j].StartTime) })

	for _, r := range routines {
		if rule, ok := recurrence.ForRoutine(r); ok && rule.Occurs(date) {
			d.Routines = append(d.Routines, r)
			d.Repeats[r.ID] = rule.Describe()
		}
	}
	sort.SliceStable(d.Routines, func(i, j int) bool { return d.Routines[i].TimeOfDay < d.Routines[j].TimeOfDay })

	return d
}

type DocumentDay struct {
	Date     string               `json:"date"`
	Classes  []model.ClassEntry   `json:"classes"`
	Events   []model.DocEvent     `json:"events"`
	Routines []model.DailyRoutine `json:"routines"`
	Repeats  map[string]string    `json:"repeats"`
}

// ForDocument builds the agenda for the calendar day of date from a
// document. Events match on their date; events without a start time sort
// first.
func ForDocument(date time.Time, doc model.Document) DocumentDay {
	today := date.Format(dateLayout)
	d := DocumentDay{
		Date:     today,
		Classes:  []model.ClassEntry{},
		Events:   []model.DocEvent{},
		Routines: []model.DailyRoutine{},
		Repeats:  map[string]string{},
	}

	for _, c := range doc.Timetable {
		if c.DayOfWeek == int(date.Weekday()) {
			d.Classes = append(d.Classes, c)
		}
	}
	sort.SliceStable(d.Classes, func(i, j int) bool { return d.Classes[i].StartTime < d.Classes[j].StartTime })

	for _, e := range doc.Events {
		if eventDate(e.Date, date.Location()) == today {
			d.Events = append(d.Events, e)
		}
	}
	sort.SliceStable(d.Events, func(i, j int) bool { return d.Events[i].StartTime < d.Events[j].StartTime })

	for _, r := range doc.Routines {
		if rule := recurrence.ForDailyRoutine(r); rule.Occurs(date) {
			d.Routines = append(d.Routines, r)
			d.Repeats[r.ID] = rule.Describe()
		}
	}
	sort.SliceStable(d.Routines, func(i, j int) bool { return d.Routines[i].Time < d.Routines[j].Time })

	return d
}

// eventDate normalizes a stored event date, either a plain date or a full
// timestamp, to a calendar date in loc. Unparseable dates never match.
func eventDate(s string, loc *time.Location) string {
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t.Format(dateLayout)
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc).Format(dateLayout)
	}
	return ""
}
