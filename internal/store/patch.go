package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// assignments collects the SET clause of a partial update.
type assignments struct {
	cols []string
	args []any
}

func (a *assignments) set(col string, v any) {
	a.cols = append(a.cols, col+" = ?")
	a.args = append(a.args, v)
}

func (a *assignments) empty() bool {
	return len(a.cols) == 0
}

func (a *assignments) clause() string {
	return strings.Join(a.cols, ", ")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func newID() string {
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC()
}
