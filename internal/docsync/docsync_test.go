package docsync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UrsacheMihai/Productivity-App-V1/internal/apperr"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/database"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/docstore"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/model"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/snapshot"
	"github.com/UrsacheMihai/Productivity-App-V1/internal/state"
)

// memDoc is an in-memory docstore that can hold the next write open and
// simulate a concurrent remote edit.
type memDoc struct {
	mu      sync.Mutex
	content []byte
	version string
	writes  int

	gate    chan struct{}
	entered chan struct{}
	// racer runs between the caller's read and its write.
	racer func(*memDoc)
}

func (m *memDoc) Read(ctx context.Context) (docstore.Revision, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.content == nil {
		return docstore.Revision{}, docstore.ErrNotFound
	}
	return docstore.Revision{Content: append([]byte(nil), m.content...), Version: m.version}, nil
}

func (m *memDoc) Write(ctx context.Context, content []byte, expected string) (string, error) {
	m.mu.Lock()
	m.writes++
	gate, entered, racer := m.gate, m.entered, m.racer
	m.gate, m.entered, m.racer = nil, nil, nil
	m.mu.Unlock()

	if gate != nil {
		close(entered)
		<-gate
	}
	if racer != nil {
		racer(m)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if expected == "" && m.content != nil || expected != m.version {
		return "", docstore.ErrStale
	}
	m.content = append([]byte(nil), content...)
	m.version = docstore.Version(content)
	return m.version, nil
}

func (m *memDoc) set(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.content = []byte(content)
	m.version = docstore.Version(m.content)
}

func (m *memDoc) snapshot() (string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return string(m.content), m.writes
}

type noticeRecorder struct {
	mu      sync.Mutex
	notices []state.Notice
}

func (r *noticeRecorder) Notify(n state.Notice) {
	r.mu.Lock()
	r.notices = append(r.notices, n)
	r.mu.Unlock()
}

func (r *noticeRecorder) all() []state.Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]state.Notice(nil), r.notices...)
}

func sampleDoc() model.Document {
	return model.Document{
		Tasks: []model.DocTask{{ID: "t1", Title: "Essay", Category: model.CategorySchool, Priority: model.PriorityHigh}},
		Routines: []model.DailyRoutine{
			{ID: "r1", Title: "Run", Time: "07:00", Days: []int{1, 3, 5}},
		},
	}
}

func encoded(t *testing.T, doc model.Document) string {
	t.Helper()
	b, err := Encode(doc)
	require.NoError(t, err)
	return string(b)
}

func TestEncodeIsCompactAndComplete(t *testing.T) {
	b, err := Encode(model.Document{})
	require.NoError(t, err)
	assert.Equal(t, `{"tasks":[],"timetable":[],"events":[],"routines":[]}`, string(b))
}

func TestDecodeFillsMissingCollections(t *testing.T) {
	doc, err := Decode([]byte(`{"tasks":[{"id":"a","title":"x","completed":false,"category":"work","priority":"low"}]}`))
	require.NoError(t, err)
	assert.Len(t, doc.Tasks, 1)
	assert.NotNil(t, doc.Timetable)
	assert.NotNil(t, doc.Events)
	assert.NotNil(t, doc.Routines)
}

func TestPullMalformedIsParseError(t *testing.T) {
	remote := &memDoc{}
	remote.set("{not json")
	_, _, err := NewReconciler(remote, nil).Pull(context.Background())
	assert.ErrorIs(t, err, apperr.ErrParse)
}

func TestPullMissingIsRemoteError(t *testing.T) {
	_, _, err := NewReconciler(&memDoc{}, nil).Pull(context.Background())
	assert.ErrorIs(t, err, apperr.ErrRemote)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestPullReturnsVersion(t *testing.T) {
	remote := &memDoc{}
	remote.set(encoded(t, sampleDoc()))

	doc, version, err := NewReconciler(remote, nil).Pull(context.Background())
	require.NoError(t, err)
	assert.Equal(t, docstore.Version([]byte(encoded(t, sampleDoc()))), version)
	assert.Equal(t, "Essay", doc.Tasks[0].Title)
}

func TestPushIdenticalIsNoop(t *testing.T) {
	remote := &memDoc{}
	remote.set(encoded(t, sampleDoc()))

	wrote, err := NewReconciler(remote, nil).Push(context.Background(), sampleDoc())
	require.NoError(t, err)
	assert.False(t, wrote)
	_, writes := remote.snapshot()
	assert.Zero(t, writes)
}

func TestPushWritesChanges(t *testing.T) {
	remote := &memDoc{}
	remote.set(encoded(t, model.Document{}))

	wrote, err := NewReconciler(remote, nil).Push(context.Background(), sampleDoc())
	require.NoError(t, err)
	assert.True(t, wrote)
	content, writes := remote.snapshot()
	assert.Equal(t, 1, writes)
	assert.Equal(t, encoded(t, sampleDoc()), content)
}

func TestPushCreatesMissingDocument(t *testing.T) {
	remote := &memDoc{}
	wrote, err := NewReconciler(remote, nil).Push(context.Background(), sampleDoc())
	require.NoError(t, err)
	assert.True(t, wrote)
	content, _ := remote.snapshot()
	assert.Equal(t, encoded(t, sampleDoc()), content)
}

func TestPushStaleIsNotRetried(t *testing.T) {
	remote := &memDoc{}
	remote.set(encoded(t, model.Document{}))
	remote.racer = func(m *memDoc) {
		m.mu.Lock()
		m.content = []byte(`{"tasks":[],"timetable":[],"events":[],"routines":[]} `)
		m.version = docstore.Version(m.content)
		m.mu.Unlock()
	}

	wrote, err := NewReconciler(remote, nil).Push(context.Background(), sampleDoc())
	assert.False(t, wrote)
	assert.ErrorIs(t, err, apperr.ErrRemote)
	assert.ErrorIs(t, err, docstore.ErrStale)
	_, writes := remote.snapshot()
	assert.Equal(t, 1, writes)
}

func newStore(t *testing.T, remote docstore.Store, opts Options) *Store {
	t.Helper()
	s := NewStore(NewReconciler(remote, nil), opts)
	t.Cleanup(s.Dispose)
	return s
}

func flush(t *testing.T, s *Store) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Flush(ctx)
	require.False(t, errors.Is(err, context.DeadlineExceeded), "queue did not drain")
	return err
}

func TestMutationsApplyImmediately(t *testing.T) {
	s := newStore(t, &memDoc{}, Options{})

	taskID := s.AddTask(model.DocTask{Title: "Read", Category: model.CategoryPersonal, Priority: model.PriorityLow})
	classID := s.AddClass(model.ClassEntry{Subject: "Math", Room: "101", StartTime: "09:00", EndTime: "10:00", DayOfWeek: 1})
	eventID := s.AddEvent(model.DocEvent{Title: "Exam", Date: "2026-03-01", Type: model.EventExam})
	routineID := s.AddRoutine(model.DailyRoutine{Title: "Stretch", Time: "08:00"})

	doc := s.Document()
	require.Len(t, doc.Tasks, 1)
	assert.NotEmpty(t, taskID)
	assert.Equal(t, taskID, doc.Tasks[0].ID)
	assert.Equal(t, classID, doc.Timetable[0].ID)
	assert.Equal(t, eventID, doc.Events[0].ID)
	assert.Equal(t, routineID, doc.Routines[0].ID)
	assert.NotNil(t, doc.Routines[0].Days)

	s.ToggleTask(taskID)
	room := "202"
	s.UpdateClass(classID, model.ClassPatch{Room: &room})
	title := "Final exam"
	s.UpdateEvent(eventID, model.DocEventPatch{Title: &title})

	doc = s.Document()
	assert.True(t, doc.Tasks[0].Completed)
	assert.Equal(t, "202", doc.Timetable[0].Room)
	assert.Equal(t, "Math", doc.Timetable[0].Subject)
	assert.Equal(t, "Final exam", doc.Events[0].Title)
	assert.Equal(t, "2026-03-01", doc.Events[0].Date)

	s.RemoveTask(taskID)
	s.RemoveClass(classID)
	s.RemoveEvent(eventID)
	s.RemoveRoutine(routineID)
	doc = s.Document()
	assert.Empty(t, doc.Tasks)
	assert.Empty(t, doc.Timetable)
	assert.Empty(t, doc.Events)
	assert.Empty(t, doc.Routines)

	require.NoError(t, flush(t, s))
}

func TestToggleRoutineStampsCompletion(t *testing.T) {
	s := newStore(t, &memDoc{}, Options{})
	s.now = func() time.Time { return time.Date(2026, 2, 4, 7, 30, 15, 250_000_000, time.FixedZone("EET", 2*3600)) }

	id := s.AddRoutine(model.DailyRoutine{Title: "Run", Time: "07:00", Days: []int{3}})
	s.ToggleRoutine(id)

	r := s.Document().Routines[0]
	assert.True(t, r.Completed)
	assert.Equal(t, "2026-02-04T05:30:15.250Z", r.LastCompleted)

	s.now = func() time.Time { return time.Date(2026, 2, 5, 7, 0, 0, 0, time.UTC) }
	s.ToggleRoutine(id)
	r = s.Document().Routines[0]
	assert.False(t, r.Completed)
	assert.Equal(t, "2026-02-04T05:30:15.250Z", r.LastCompleted)
	require.NoError(t, flush(t, s))
}

func TestPushesCoalesce(t *testing.T) {
	remote := &memDoc{gate: make(chan struct{}), entered: make(chan struct{})}
	s := newStore(t, remote, Options{})

	s.AddTask(model.DocTask{ID: "a", Title: "first"})
	<-remote.entered

	s.AddTask(model.DocTask{ID: "b", Title: "second"})
	s.AddTask(model.DocTask{ID: "c", Title: "third"})
	s.ToggleTask("a")
	close(remote.gate)

	require.NoError(t, flush(t, s))

	content, writes := remote.snapshot()
	assert.Equal(t, 2, writes)
	assert.Equal(t, encoded(t, s.Document()), content)
}

func TestStalePushKeepsLocalDocument(t *testing.T) {
	remote := &memDoc{}
	remote.set(encoded(t, model.Document{}))
	remote.racer = func(m *memDoc) {
		m.mu.Lock()
		m.content = []byte(`{"tasks":[{"id":"x","title":"elsewhere","completed":false,"category":"work","priority":"low"}],"timetable":[],"events":[],"routines":[]}`)
		m.version = docstore.Version(m.content)
		m.mu.Unlock()
	}
	notices := &noticeRecorder{}
	s := newStore(t, remote, Options{Notifier: notices})

	s.AddTask(model.DocTask{ID: "mine", Title: "local"})
	err := flush(t, s)

	assert.ErrorIs(t, err, docstore.ErrStale)
	assert.ErrorIs(t, s.LastError(), apperr.ErrRemote)
	require.Len(t, s.Document().Tasks, 1)
	assert.Equal(t, "mine", s.Document().Tasks[0].ID)

	got := notices.all()
	require.Len(t, got, 1)
	assert.Equal(t, state.LevelError, got[0].Level)
	assert.Equal(t, "push", got[0].Action)

	content, _ := remote.snapshot()
	assert.Contains(t, content, "elsewhere")
}

func TestLoadReplacesDocument(t *testing.T) {
	remote := &memDoc{}
	remote.set(encoded(t, sampleDoc()))
	s := newStore(t, remote, Options{})

	var seen []model.Document
	unsubscribe := s.Subscribe(func(d model.Document) { seen = append(seen, d) })
	defer unsubscribe()

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, encoded(t, sampleDoc()), encoded(t, s.Document()))
	require.Len(t, seen, 1)
	assert.Equal(t, "Essay", seen[0].Tasks[0].Title)
	assert.NoError(t, s.LastError())
}

func TestLoadMissingKeepsLocal(t *testing.T) {
	s := newStore(t, &memDoc{}, Options{})
	s.doc = sampleDoc()

	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, "Essay", s.Document().Tasks[0].Title)
}

func TestLoadMalformed(t *testing.T) {
	remote := &memDoc{}
	remote.set("[]")
	notices := &noticeRecorder{}
	s := newStore(t, remote, Options{Notifier: notices})

	err := s.Load(context.Background())
	assert.ErrorIs(t, err, apperr.ErrParse)
	assert.ErrorIs(t, s.LastError(), apperr.ErrParse)
	require.Len(t, notices.all(), 1)
	assert.Equal(t, "pull", notices.all()[0].Action)
	assert.Empty(t, s.Document().Tasks)
}

func TestLoadDuringPushKeepsLocalEdits(t *testing.T) {
	remote := &memDoc{gate: make(chan struct{}), entered: make(chan struct{})}
	remote.set(encoded(t, sampleDoc()))
	s := newStore(t, remote, Options{})

	s.AddTask(model.DocTask{ID: "new", Title: "pending"})
	<-remote.entered

	require.NoError(t, s.Load(context.Background()))
	close(remote.gate)
	require.NoError(t, flush(t, s))

	doc := s.Document()
	require.Len(t, doc.Tasks, 1)
	assert.Equal(t, "new", doc.Tasks[0].ID)
}

func TestSnapshotPersistsAcrossStores(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	cache := snapshot.New(db)

	s := newStore(t, &memDoc{}, Options{Cache: cache, StorageKey: "doc-test"})
	s.AddTask(model.DocTask{ID: "kept", Title: "survives restart"})
	require.NoError(t, flush(t, s))

	restored := newStore(t, &memDoc{}, Options{Cache: cache, StorageKey: "doc-test"})
	require.NoError(t, restored.Init(context.Background()))
	require.Len(t, restored.Document().Tasks, 1)
	assert.Equal(t, "kept", restored.Document().Tasks[0].ID)

	other := newStore(t, &memDoc{}, Options{Cache: cache})
	require.NoError(t, other.Init(context.Background()))
	assert.Empty(t, other.Document().Tasks)
}

func TestLoadAfterStalePushKeepsLocalDocument(t *testing.T) {
	remote := &memDoc{}
	remote.set(encoded(t, model.Document{}))
	remote.racer = func(m *memDoc) {
		m.mu.Lock()
		m.content = []byte(`{"tasks":[{"id":"x","title":"elsewhere","completed":false,"category":"work","priority":"low"}],"timetable":[],"events":[],"routines":[]}`)
		m.version = docstore.Version(m.content)
		m.mu.Unlock()
	}
	s := newStore(t, remote, Options{})

	s.AddTask(model.DocTask{ID: "mine", Title: "local"})
	require.ErrorIs(t, flush(t, s), docstore.ErrStale)

	require.NoError(t, s.Load(context.Background()))
	doc := s.Document()
	require.Len(t, doc.Tasks, 1)
	assert.Equal(t, "mine", doc.Tasks[0].ID)
	assert.ErrorIs(t, s.LastError(), docstore.ErrStale)

	// The next edit pushes over the remote and pulls are accepted again.
	s.AddTask(model.DocTask{ID: "more", Title: "second"})
	require.NoError(t, flush(t, s))
	require.NoError(t, s.Load(context.Background()))
	assert.NoError(t, s.LastError())
	doc = s.Document()
	require.Len(t, doc.Tasks, 2)
	assert.Equal(t, "mine", doc.Tasks[0].ID)

	content, _ := remote.snapshot()
	assert.NotContains(t, content, "elsewhere")
}

func TestDocumentSnapshotIgnoresRowSnapshot(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	cache := snapshot.New(db)
	ctx := context.Background()

	rows := map[string]any{
		"owner": "u1",
		"tasks": []map[string]any{{"id": "row-task", "title": "from rows", "priority": "medium"}},
	}
	require.NoError(t, cache.Save(ctx, state.DefaultStorageKey, rows))

	s := newStore(t, &memDoc{}, Options{Cache: cache})
	require.NoError(t, s.Init(ctx))
	assert.Empty(t, s.Document().Tasks)

	s.AddTask(model.DocTask{ID: "doc-task", Title: "from document"})
	require.NoError(t, flush(t, s))

	var kept map[string]any
	ok, err := cache.Load(ctx, state.DefaultStorageKey, &kept)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "u1", kept["owner"])
	assert.NotContains(t, kept, "timetable")
}

func TestConcurrentMutationsPersistLatestDocument(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	cache := snapshot.New(db)

	s := newStore(t, &memDoc{}, Options{Cache: cache, StorageKey: "doc-test"})

	const n = 20
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddTask(model.DocTask{Title: "task", Priority: model.PriorityLow})
		}()
	}
	wg.Wait()
	require.NoError(t, flush(t, s))

	restored := newStore(t, &memDoc{}, Options{Cache: cache, StorageKey: "doc-test"})
	require.NoError(t, restored.Init(context.Background()))
	assert.Len(t, restored.Document().Tasks, n)
	assert.Equal(t, encoded(t, s.Document()), encoded(t, restored.Document()))
}
