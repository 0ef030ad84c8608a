package model

// Document is the whole application state stored as a single JSON blob in
// document mode. Keys follow the stored data.json layout.
type Document struct {
	Tasks     []DocTask      `json:"tasks"`
	Timetable []ClassEntry   `json:"timetable"`
	Events    []DocEvent     `json:"events"`
	Routines  []DailyRoutine `json:"routines"`
}

type Category string

const (
	CategorySchool   Category = "school"
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
)

type EventType string

const (
	EventExam     EventType = "exam"
	EventDeadline EventType = "deadline"
	EventMeeting  EventType = "meeting"
	EventOther    EventType = "other"
)

type DocTask struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Completed bool     `json:"completed"`
	Category  Category `json:"category"`
	Priority  Priority `json:"priority"`
	DueDate   string   `json:"dueDate,omitempty"`
}

// ClassEntry is a timetable slot. DayOfWeek counts from 0 (Sunday) to 6.
type ClassEntry struct {
	ID        string `json:"id"`
	Subject   string `json:"subject"`
	Room      string `json:"room"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	DayOfWeek int    `json:"dayOfWeek"`
}

type ClassPatch struct {
	Subject   *string
	Room      *string
	StartTime *string
	EndTime   *string
	DayOfWeek *int
}

type DocEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	StartTime   string    `json:"startTime,omitempty"`
	EndTime     string    `json:"endTime,omitempty"`
	Type        EventType `json:"type"`
	Description string    `json:"description,omitempty"`
}

type DocEventPatch struct {
	Title       *string
	Date        *string
	StartTime   *string
	EndTime     *string
	Type        *EventType
	Description *string
}

type DailyRoutine struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Time          string `json:"time"`
	Days          []int  `json:"days"`
	Completed     bool   `json:"completed"`
	LastCompleted string `json:"lastCompleted,omitempty"`
}

// Normalize replaces nil collections with empty ones so that the encoded
// form always carries all four arrays.
func (d *Document) Normalize() {
	if d.Tasks == nil {
		d.Tasks = []DocTask{}
	}
	if d.Timetable == nil {
		d.Timetable = []ClassEntry{}
	}
	if d.Events == nil {
		d.Events = []DocEvent{}
	}
	if d.Routines == nil {
		d.Routines = []DailyRoutine{}
	}
	for i := range d.Routines {
		if d.Routines[i].Days == nil {
			d.Routines[i].Days = []int{}
		}
	}
}

// Clone returns a deep copy.
func (d Document) Clone() Document {
	out := Document{
		Tasks:     append([]DocTask{}, d.Tasks...),
		Timetable: append([]ClassEntry{}, d.Timetable...),
		Events:    append([]DocEvent{}, d.Events...),
		Routines:  make([]DailyRoutine, len(d.Routines)),
	}
	for i, r := range d.Routines {
		r.Days = append([]int{}, r.Days...)
		out.Routines[i] = r
	}
	return out
}
