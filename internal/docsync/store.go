package docsync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/apperr"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/docstore"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/model"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/state"
)

const pushTimeout = 30 * time.Second

// Cache is the local durable cache the document is mirrored into.
type Cache interface {
	Load(ctx context.Context, key string, v any) (bool, error)
	Save(ctx context.Context, key string, v any) error
}

// documentKeySuffix keeps the document snapshot apart from the row-mode
// snapshot stored under the same base key.
const documentKeySuffix = ":document"

type Options struct {
	// StorageKey is the base name of the local snapshot. Defaults to
	// state.DefaultStorageKey. The document is cached under the base name
	// with documentKeySuffix appended.
	StorageKey string
	Cache      Cache
	Notifier   state.Notifier
	Logger     *slog.Logger
}

// Store is the document-mode state store. Mutations apply synchronously to
// the in-memory document and queue a push. At most one push is in flight;
// edits made meanwhile collapse into a single push of the latest document.
type Store struct {
	rec      *Reconciler
	cache    Cache
	key      string
	notifier state.Notifier
	logger   *slog.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// persistMu orders snapshot writes so the cache ends on the latest
	// document.
	persistMu sync.Mutex

	mu       sync.Mutex
	doc      model.Document
	gen      uint64 // bumped by every local mutation
	dirty    bool   // a push is wanted
	pushing  bool
	unsynced bool // the last push failed and the remote lacks local edits
	idle    chan struct{} // closed when the queue drains
	lastErr error
	subs    map[int]func(model.Document)
	nextSub int
}

func NewStore(rec *Reconciler, opts Options) *Store {
	if opts.StorageKey == "" {
		opts.StorageKey = state.DefaultStorageKey
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = state.NotifierFunc(func(state.Notice) {})
	}

	s := &Store{
		rec:      rec,
		cache:    opts.Cache,
		key:      opts.StorageKey + documentKeySuffix,
		notifier: opts.Notifier,
		logger:   opts.Logger.With("component", "docsync"),
		now:      time.Now,
		subs:     make(map[int]func(model.Document)),
	}
	s.doc.Normalize()
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Init restores the locally cached document, if any.
func (s *Store) Init(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	var doc model.Document
	ok, err := s.cache.Load(ctx, s.key, &doc)
	if err != nil {
		s.logger.Warn("restore document", "key", s.key, "error", err)
		return err
	}
	if !ok {
		return nil
	}
	doc.Normalize()
	s.mu.Lock()
	s.doc = doc
	s.mu.Unlock()
	s.changed()
	return nil
}

// Dispose stops queued pushes. A push in flight is cancelled.
func (s *Store) Dispose() {
	s.cancel()
}

// Document returns a deep copy of the current document.
func (s *Store) Document() model.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// LastError returns the outcome of the most recent pull or push.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Subscribe registers fn to receive a copy of the document after every
// change.
func (s *Store) Subscribe(fn func(model.Document)) func() {
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

// Load pulls the remote document and replaces the local one. If the
// document was edited locally while the pull was in flight the local edits
// win and are pushed instead. While the last push has failed the local
// document and its error are kept until a later push succeeds. A missing
// remote document leaves the local one in place; the next push creates it.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	doc, _, err := s.rec.Pull(ctx)
	if errors.Is(err, docstore.ErrNotFound) {
		s.logger.Info("no remote document yet")
		return nil
	}
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		msg := "Failed to load data"
		if apperr.IsKind(err, apperr.KindParse) {
			msg = "Stored data is malformed"
		}
		s.notifier.Notify(state.Notice{Level: state.LevelError, Entity: "document", Action: "pull", Message: msg})
		return err
	}

	s.mu.Lock()
	if s.gen != gen || s.dirty || s.pushing {
		s.mu.Unlock()
		s.logger.Debug("pull discarded, local edits pending")
		return nil
	}
	if s.unsynced {
		s.mu.Unlock()
		s.logger.Info("pull discarded, local edits not yet pushed")
		return nil
	}
	s.doc = doc
	s.lastErr = nil
	s.mu.Unlock()

	s.persist()
	s.changed()
	return nil
}

// Flush waits until no push is queued or in flight and returns the last
// push error.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	if !s.pushing {
		err := s.lastErr
		s.mu.Unlock()
		return err
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
	case <-ctx.Done():
		return ctx.Err()
	}
	return s.LastError()
}

// mutate applies fn to the document and queues a push.
func (s *Store) mutate(fn func(*model.Document)) {
	s.mu.Lock()
	fn(&s.doc)
	s.gen++
	s.dirty = true
	start := !s.pushing
	if start {
		s.pushing = true
		s.idle = make(chan struct{})
	}
	s.mu.Unlock()

	s.persist()
	s.changed()
	if start {
		go s.drain()
	}
}

// drain pushes the latest document until no further edits are pending.
func (s *Store) drain() {
	for {
		s.mu.Lock()
		if !s.dirty || s.ctx.Err() != nil {
			s.dirty = false
			s.pushing = false
			close(s.idle)
			s.mu.Unlock()
			return
		}
		s.dirty = false
		doc := s.doc.Clone()
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(s.ctx, pushTimeout)
		_, err := s.rec.Push(ctx, doc)
		cancel()

		s.mu.Lock()
		s.lastErr = err
		s.unsynced = err != nil
		s.mu.Unlock()

		if err != nil {
			msg := "Failed to sync data"
			if errors.Is(err, docstore.ErrStale) {
				msg = "Remote data changed elsewhere; local copy kept"
			}
			s.notifier.Notify(state.Notice{Level: state.LevelError, Entity: "document", Action: "push", Message: msg})
		}
	}
}

func (s *Store) persist() {
	if s.cache == nil {
		return
	}
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	doc := s.Document()
	if err := s.cache.Save(context.Background(), s.key, doc); err != nil {
		s.logger.Warn("save document snapshot", "key", s.key, "error", err)
	}
}

func (s *Store) changed() {
	s.mu.Lock()
	subs := make([]func(model.Document), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	doc := s.doc.Clone()
	s.mu.Unlock()

	for _, fn := range subs {
		fn(doc.Clone())
	}
}

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}
