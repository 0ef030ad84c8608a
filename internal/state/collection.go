package state

import (
	"context"
	"errors"
	"strings"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/apperr"
)

// kind names an entity kind in operation names and notices.
type kind struct {
	entity string // operation and notice prefix
	noun   string
	plural string
	list   string // what a refresh fetches
}

type collection[T, P any] struct {
	kind
	adapter Adapter[T, P]
	items   []T // guarded by Store.mu
}

// lease binds one operation to the session it started under.
type lease struct {
	owner string
	epoch uint64
	ctx   context.Context
}

// bind derives a context that is also cancelled when the session ends.
func (l lease) bind(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(l.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// acquire runs the session guard and marks the store busy. The guard leaves
// the state untouched.
func (s *Store) acquire(op string) (lease, error) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return lease{}, ErrDisposed
	}
	if s.session == nil {
		s.mu.Unlock()
		return lease{}, apperr.AuthRequired(op)
	}
	l := lease{owner: s.session.UserID, epoch: s.epoch, ctx: s.sessCtx}
	s.inflight++
	s.mu.Unlock()

	s.changed(false)
	return l, nil
}

func (s *Store) begin() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return ErrDisposed
	}
	s.inflight++
	s.mu.Unlock()

	s.changed(false)
	return nil
}

func (s *Store) release() {
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
	s.changed(false)
}

// fail records err unless the lease's session has ended, in which case the
// result is discarded.
func (s *Store) fail(l lease, op string, err error) error {
	s.mu.Lock()
	if l.epoch != s.epoch {
		s.mu.Unlock()
		return ErrSessionEnded
	}
	s.lastError = err.Error()
	s.mu.Unlock()

	s.logger.Warn("operation failed", "op", op, "error", err)
	s.changed(false)
	return remoteErr(op, err)
}

// commit applies a confirmed-fresh result if the lease is still current.
func (s *Store) commit(l lease, apply func()) bool {
	s.mu.Lock()
	if l.epoch != s.epoch {
		s.mu.Unlock()
		return false
	}
	apply()
	s.lastError = ""
	s.mu.Unlock()

	s.changed(true)
	return true
}

func remoteErr(op string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Remote(op, err)
}

const actionList = "list"

var (
	pastTense = map[string]string{"create": "created", "update": "updated", "delete": "deleted"}
	guardVerb = map[string]string{actionList: "view"}
)

// run executes the operation template for one collection. call performs the
// mutation; a nil call makes this a plain refresh.
func run[T, P any](ctx context.Context, s *Store, c *collection[T, P], action string, call func(context.Context, string) error) error {
	op := c.entity + "." + action

	l, err := s.acquire(op)
	if err != nil {
		if apperr.IsKind(err, apperr.KindAuthRequired) {
			verb := action
			if v, ok := guardVerb[action]; ok {
				verb = v
			}
			s.notifier.Notify(Notice{
				Level: LevelError, Entity: c.entity, Action: action,
				Message: "Please sign in to " + verb + " " + c.plural,
			})
		}
		return err
	}
	defer s.release()

	ctx, done := l.bind(ctx)
	defer done()

	if call != nil {
		if err := call(ctx, l.owner); err != nil {
			return s.failed(l, c.kind, action, op, err)
		}
	}

	items, err := c.adapter.List(ctx, l.owner)
	if err != nil {
		return s.failed(l, c.kind, actionList, c.entity+"."+actionList, err)
	}
	if items == nil {
		items = []T{}
	}
	if !s.commit(l, func() { c.items = items }) {
		return ErrSessionEnded
	}

	if call != nil {
		s.notifier.Notify(Notice{
			Level: LevelSuccess, Entity: c.entity, Action: action,
			Message: capitalize(c.noun) + " " + pastTense[action] + " successfully",
		})
	}
	return nil
}

func (s *Store) failed(l lease, k kind, action, op string, err error) error {
	err = s.fail(l, op, err)
	if errors.Is(err, ErrSessionEnded) {
		return err
	}
	msg := "Failed to " + action + " " + k.noun
	if action == actionList {
		msg = "Failed to fetch " + k.list
	}
	s.notifier.Notify(Notice{Level: LevelError, Entity: k.entity, Action: action, Message: msg})
	return err
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
