// Package state is the client state store: the single in-memory view of a
// signed-in user's tasks, routines, events and timetable in row mode.
//
// Every operation follows one template. The session guard refuses the call
// with apperr.ErrAuthRequired before anything changes. Otherwise the store
// marks itself busy, calls the adapter, re-lists the collection on success
// and replaces it wholesale, or records the failure and keeps the stale
// collection. Busy is released on every path.
//
// Results are bound to the session that started the operation. Signing out,
// expiry or a different user signing in ends that session; late results are
// then discarded and the operation returns ErrSessionEnded.
package state

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/model"
)

const DefaultStorageKey = "productivity-storage"

var (
	ErrSessionEnded = errors.New("state: session ended before the result arrived")
	ErrDisposed     = errors.New("state: store disposed")
)

// Adapter is the remote row store for one entity kind. Update and Delete of
// a row that does not exist must succeed without effect.
type Adapter[T, P any] interface {
	List(ctx context.Context, owner string) ([]T, error)
	Create(ctx context.Context, owner string, v T) error
	Update(ctx context.Context, owner, id string, p P) error
	Delete(ctx context.Context, owner, id string) error
}

// Identity is the identity provider capability.
type Identity interface {
	Session(ctx context.Context) (*model.Session, error)
	SignIn(ctx context.Context, email, password string) (*model.Session, error)
	SignUp(ctx context.Context, email, password string) (*model.Session, error)
	SignOut(ctx context.Context) error
	Subscribe(fn func(*model.Session)) func()
}

// Cache is the local durable cache the collections are mirrored into.
type Cache interface {
	Load(ctx context.Context, key string, v any) (bool, error)
	Save(ctx context.Context, key string, v any) error
	Delete(ctx context.Context, key string) error
}

type Config struct {
	// StorageKey names the local snapshot. Defaults to DefaultStorageKey.
	StorageKey string
}

type Deps struct {
	Identity  Identity
	Tasks     Adapter[model.Task, model.TaskPatch]
	Routines  Adapter[model.Routine, model.RoutinePatch]
	Events    Adapter[model.Event, model.EventPatch]
	Timetable Adapter[model.TimetableEntry, model.TimetablePatch]

	// Optional.
	Cache    Cache
	Notifier Notifier
	Logger   *slog.Logger
}

type Store struct {
	cfg      Config
	identity Identity
	cache    Cache
	notifier Notifier
	logger   *slog.Logger

	tasks     *collection[model.Task, model.TaskPatch]
	routines  *collection[model.Routine, model.RoutinePatch]
	events    *collection[model.Event, model.EventPatch]
	timetable *collection[model.TimetableEntry, model.TimetablePatch]

	// changeMu orders snapshot persistence and subscriber delivery.
	changeMu sync.Mutex

	mu          sync.Mutex
	session     *model.Session
	owner       string // user the collections belong to
	epoch       uint64
	sessCtx     context.Context
	cancel      context.CancelFunc
	inflight    int
	lastError   string
	subs        map[int]func(Snapshot)
	nextSub     int
	unsubscribe func()
	disposed    bool
}

func New(cfg Config, deps Deps) *Store {
	if cfg.StorageKey == "" {
		cfg.StorageKey = DefaultStorageKey
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = discard{}
	}

	s := &Store{
		cfg:      cfg,
		identity: deps.Identity,
		cache:    deps.Cache,
		notifier: notifier,
		logger:   logger.With("component", "state"),
		tasks: &collection[model.Task, model.TaskPatch]{
			kind: kind{entity: "task", noun: "task", plural: "tasks", list: "tasks"}, adapter: deps.Tasks,
			items: []model.Task{},
		},
		routines: &collection[model.Routine, model.RoutinePatch]{
			kind: kind{entity: "routine", noun: "routine", plural: "routines", list: "routines"}, adapter: deps.Routines,
			items: []model.Routine{},
		},
		events: &collection[model.Event, model.EventPatch]{
			kind: kind{entity: "event", noun: "event", plural: "events", list: "events"}, adapter: deps.Events,
			items: []model.Event{},
		},
		timetable: &collection[model.TimetableEntry, model.TimetablePatch]{
			kind:    kind{entity: "timetable_entry", noun: "timetable entry", plural: "timetable entries", list: "timetable"},
			adapter: deps.Timetable,
			items:   []model.TimetableEntry{},
		},
		subs: make(map[int]func(Snapshot)),
	}
	s.sessCtx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Init restores the local snapshot, subscribes to session changes and
// recovers the provider's current session. It does not fetch. Without a
// recovered session the restored snapshot is kept as the last-known state.
func (s *Store) Init(ctx context.Context) error {
	s.restore(ctx)

	unsubscribe := s.identity.Subscribe(s.setSession)
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.mu.Unlock()

	sess, err := s.identity.Session(ctx)
	if err != nil {
		s.logger.Error("recover session", "error", err)
		s.recordError(err)
		return remoteErr("session.recover", err)
	}
	if sess == nil {
		// The restored collections stay visible, still tied to their owner,
		// until a session for a different user arrives.
		s.logger.Debug("no session recovered", "owner", s.snapshotOwner())
		return nil
	}
	s.setSession(sess)
	return nil
}

func (s *Store) snapshotOwner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// Dispose cancels in-flight work and detaches from the identity provider.
// Operations on a disposed store return ErrDisposed.
func (s *Store) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.cancel()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.subs = make(map[int]func(Snapshot))
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Subscribe registers fn to receive a snapshot after every change. fn must
// not call back into the store's operations.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// setSession applies a session reported by the identity provider. When the
// user changes, the previous session's work is cancelled and the collections
// are emptied.
func (s *Store) setSession(sess *model.Session) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	user := ""
	if sess != nil {
		c := *sess
		sess = &c
		user = sess.UserID
	}
	s.session = sess
	reset := user != s.owner
	if reset {
		s.owner = user
		s.cancel()
		s.epoch++
		s.sessCtx, s.cancel = context.WithCancel(context.Background())
		s.tasks.items = []model.Task{}
		s.routines.items = []model.Routine{}
		s.events.items = []model.Event{}
		s.timetable.items = []model.TimetableEntry{}
	}
	s.mu.Unlock()

	if reset {
		s.logger.Info("session changed", "user_id", user)
	}
	s.changed(reset)
}

func (s *Store) recordError(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.mu.Unlock()
	s.changed(false)
}

func (s *Store) clearError() {
	s.mu.Lock()
	s.lastError = ""
	s.mu.Unlock()
	s.changed(false)
}

// changed publishes the current snapshot to subscribers and, when the
// collections or their owner changed, writes it to the local cache.
func (s *Store) changed(persist bool) {
	s.changeMu.Lock()
	defer s.changeMu.Unlock()

	snap := s.Snapshot()
	if persist {
		s.save(snap)
	}

	s.mu.Lock()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap.Clone())
	}
}
