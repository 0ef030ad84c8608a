package state

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notice is a transient user-visible message about the outcome of an
// operation.
type Notice struct {
	Level   Level  `json:"level"`
	Entity  string `json:"entity"`
	Action  string `json:"action"`
	Message string `json:"message"`
}

type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type discard struct{}

func (discard) Notify(Notice) {}
