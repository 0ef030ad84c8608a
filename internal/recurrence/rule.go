// Package recurrence decides on which days a routine is due.
package recurrence

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/model"
)

type Freq int

const (
	Daily Freq = iota
	Weekly
	Monthly
)

type Rule struct {
	Freq       Freq
	ByDay      []time.Weekday // for Weekly: which days
	ByMonthDay int            // for Monthly: day of month
	// Start is the first day the rule can occur on. Zero means unbounded.
	Start time.Time
}

// ForRoutine builds the rule of a row-mode routine. Inactive routines and
// unknown frequencies have no rule. Monthly routines recur on the day of
// month they were created.
func ForRoutine(r model.Routine) (Rule, bool) {
	if !r.Active {
		return Rule{}, false
	}
	switch r.Frequency {
	case model.FrequencyDaily:
		return Rule{Freq: Daily, Start: r.CreatedAt}, true
	case model.FrequencyWeekly:
		rule := Rule{Freq: Weekly, Start: r.CreatedAt}
		for _, d := range r.DaysOfWeek {
			if wd, ok := d.Weekday(); ok {
				rule.ByDay = append(rule.ByDay, wd)
			}
		}
		return rule, true
	case model.FrequencyMonthly:
		if r.CreatedAt.IsZero() {
			return Rule{}, false
		}
		return Rule{Freq: Monthly, ByMonthDay: r.CreatedAt.Day(), Start: r.CreatedAt}, true
	}
	return Rule{}, false
}

// ForDailyRoutine builds the rule of a document-mode routine. Days count from
// 0 (Sunday); no days means every day.
func ForDailyRoutine(r model.DailyRoutine) Rule {
	if len(r.Days) == 0 {
		return Rule{Freq: Daily}
	}
	rule := Rule{Freq: Weekly}
	for _, d := range r.Days {
		if d >= 0 && d <= 6 {
			rule.ByDay = append(rule.ByDay, time.Weekday(d))
		}
	}
	return rule
}

// Occurs reports whether the rule is due on the calendar day of t, in t's
// location.
func (r Rule) Occurs(t time.Time) bool {
	day := truncateDay(t)
	if !r.Start.IsZero() && day.Before(truncateDay(r.Start.In(t.Location()))) {
		return false
	}

	switch r.Freq {
	case Daily:
		return true
	case Weekly:
		for _, wd := range r.ByDay {
			if wd == day.Weekday() {
				return true
			}
		}
		return false
	case Monthly:
		return r.ByMonthDay > 0 && day.Day() == r.ByMonthDay
	}
	return false
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Describe returns a human-readable description of the rule.
func (r Rule) Describe() string {
	switch r.Freq {
	case Daily:
		return "Repeats daily"
	case Weekly:
		if len(r.ByDay) == 0 {
			return "Repeats weekly"
		}
		days := append([]time.Weekday{}, r.ByDay...)
		// Monday first.
		sort.Slice(days, func(i, j int) bool { return (days[i]+6)%7 < (days[j]+6)%7 })
		names := make([]string, len(days))
		for i, d := range days {
			names[i] = d.String()[:3]
		}
		return "Repeats weekly on " + strings.Join(names, ", ")
	case Monthly:
		return fmt.Sprintf("Repeats monthly on day %d", r.ByMonthDay)
	}
	return ""
}
