package model

import (
	"strings"
	"time"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

type Routine struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Frequency   Frequency `json:"frequency"`
	DaysOfWeek  []Weekday `json:"days_of_week"`
	TimeOfDay   string    `json:"time_of_day"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

type RoutinePatch struct {
	Title       *string
	Description *string
	Frequency   *Frequency
	DaysOfWeek  *[]Weekday
	TimeOfDay   *string
	Active      *bool
}

func (r Routine) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrTitleRequired
	}
	return nil
}

// NormalizedDays returns the days a routine is scheduled on. Only weekly
// routines carry days.
func (r Routine) NormalizedDays() []Weekday {
	if r.Frequency != FrequencyWeekly {
		return []Weekday{}
	}
	return r.DaysOfWeek
}
