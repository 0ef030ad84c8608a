package server

import (
	"time"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/agenda"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/docsync"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/model"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/state"
)

// RowView renders a row-mode state store.
type RowView struct {
	Store *state.Store
}

// publicState is the row snapshot without the session token.
type publicState struct {
	User      *model.User            `json:"user"`
	Tasks     []model.Task           `json:"tasks"`
	Routines  []model.Routine        `json:"routines"`
	Events    []model.Event          `json:"events"`
	Timetable []model.TimetableEntry `json:"timetable"`
	Busy      bool                   `json:"busy"`
	LastError string                 `json:"last_error,omitempty"`
}

func (v RowView) State() any {
	snap := v.Store.Snapshot()
	out := publicState{
		Tasks:     snap.Tasks,
		Routines:  snap.Routines,
		Events:    snap.Events,
		Timetable: snap.Timetable,
		Busy:      snap.Busy,
		LastError: snap.LastError,
	}
	if snap.Session != nil {
		out.User = &model.User{ID: snap.Session.UserID, Email: snap.Session.Email}
	}
	return out
}

func (v RowView) Today(date time.Time) any {
	snap := v.Store.Snapshot()
	return agenda.ForRows(date, snap.Timetable, snap.Events, snap.Routines)
}

func (v RowView) Subscribe(fn func()) func() {
	return v.Store.Subscribe(func(state.Snapshot) { fn() })
}

// DocView renders a document-mode store.
type DocView struct {
	Store *docsync.Store
}

type docState struct {
	model.Document
	LastError string `json:"last_error,omitempty"`
}

func (v DocView) State() any {
	out := docState{Document: v.Store.Document()}
	if err := v.Store.LastError(); err != nil {
		out.LastError = err.Error()
	}
	return out
}

func (v DocView) Today(date time.Time) any {
	return agenda.ForDocument(date, v.Store.Document())
}

func (v DocView) Subscribe(fn func()) func() {
	return v.Store.Subscribe(func(model.Document) { fn() })
}
