package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/resume-registry/internal/models"
)

var errStoreDown = errors.New("store unavailable")

// flakyStore fails the operations whose flag is set and otherwise passes
// through. With silentDelete set, deletes are accepted but never applied.
type flakyStore struct {
	DocumentStore
	failCreate   bool
	failUpdate   bool
	failSearch   bool
	silentDelete bool
	deleted      []uuid.UUID
}

func (f *flakyStore) Create(ctx context.Context, fields models.ResumeFields) (uuid.UUID, error) {
	if f.failCreate {
		return uuid.Nil, errStoreDown
	}
	return f.DocumentStore.Create(ctx, fields)
}

func (f *flakyStore) Update(ctx context.Context, id uuid.UUID, data models.ResumeUpdate) error {
	if f.failUpdate {
		return errStoreDown
	}
	return f.DocumentStore.Update(ctx, id, data)
}

func (f *flakyStore) Delete(ctx context.Context, id uuid.UUID) error {
	if f.silentDelete {
		f.deleted = append(f.deleted, id)
		return nil
	}
	return f.DocumentStore.Delete(ctx, id)
}

func (f *flakyStore) QueryRange(ctx context.Context, field models.Field, lower, upper string) ([]models.Resume, error) {
	if f.failSearch {
		return nil, errStoreDown
	}
	return f.DocumentStore.QueryRange(ctx, field, lower, upper)
}

// countingStore tracks how many subscriptions are open.
type countingStore struct {
	DocumentStore
	open atomic.Int32
}

type countedSubscription struct {
	Subscription
	once  sync.Once
	store *countingStore
}

func (c *countingStore) Subscribe(ctx context.Context) (Subscription, error) {
	sub, err := c.DocumentStore.Subscribe(ctx)
	if err != nil {
		return nil, err
	}
	c.open.Add(1)
	return &countedSubscription{Subscription: sub, store: c}, nil
}

func (c *countedSubscription) Close() {
	c.once.Do(func() { c.store.open.Add(-1) })
	c.Subscription.Close()
}

func newActiveView(t *testing.T, store DocumentStore) *RegistryView {
	t.Helper()
	view := NewRegistryView(store, nil)
	require.NoError(t, view.Activate(context.Background()))
	t.Cleanup(view.Deactivate)
	return view
}

func waitForList(t *testing.T, view *RegistryView, match func([]models.Resume) bool) []models.Resume {
	t.Helper()
	var list []models.Resume
	require.Eventually(t, func() bool {
		list = view.Resumes()
		return match(list)
	}, waitTimeout, 5*time.Millisecond)
	return list
}

func fillDraft(t *testing.T, view *RegistryView, fields models.ResumeFields) {
	t.Helper()
	for _, f := range models.AllFields {
		require.NoError(t, view.SetDraftField(f, fields.Get(f)))
	}
}

func seed(t *testing.T, store DocumentStore, names ...string) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, 0, len(names))
	for _, name := range names {
		id, err := store.Create(context.Background(), models.ResumeFields{Name: name})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestCreateResumeEndToEnd(t *testing.T) {
	store := newTestStore(t)
	view := newActiveView(t, store)

	fields := models.ResumeFields{
		Name:          "Ann",
		Email:         "a@x.com",
		Contact:       "123",
		Address:       "Rd1",
		Skills:        "Go",
		Qualification: "BSc",
	}
	fillDraft(t, view, fields)

	id, err := view.SubmitDraft(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)
	assert.True(t, view.Draft().IsEmpty())

	list := waitForList(t, view, func(l []models.Resume) bool { return contains(l, id) })
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, fields, list[0].Fields())
}

func TestFailedCreateKeepsDraft(t *testing.T) {
	store := &flakyStore{DocumentStore: newTestStore(t), failCreate: true}
	view := newActiveView(t, store)

	fields := models.ResumeFields{Name: "Ann", Email: "a@x.com", Skills: "Go"}
	fillDraft(t, view, fields)

	_, err := view.SubmitDraft(context.Background())
	require.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, fields, view.Draft())
}

func TestCreateWithEmptyDraft(t *testing.T) {
	store := newTestStore(t)
	view := newActiveView(t, store)

	id, err := view.SubmitDraft(context.Background())
	require.NoError(t, err)

	list := waitForList(t, view, func(l []models.Resume) bool { return contains(l, id) })
	assert.True(t, list[0].Fields().IsEmpty())
}

func TestDeleteWaitsForSnapshot(t *testing.T) {
	base := newTestStore(t)
	ids := seed(t, base, "Ann", "Bob")

	store := &flakyStore{DocumentStore: base, silentDelete: true}
	view := newActiveView(t, store)
	waitForList(t, view, func(l []models.Resume) bool { return len(l) == 2 })

	require.NoError(t, view.DeleteResume(context.Background(), ids[0]))
	assert.Equal(t, []uuid.UUID{ids[0]}, store.deleted)
	assert.True(t, contains(view.Resumes(), ids[0]), "row removed before any snapshot")

	store.silentDelete = false
	require.NoError(t, view.DeleteResume(context.Background(), ids[0]))
	list := waitForList(t, view, func(l []models.Resume) bool { return !contains(l, ids[0]) })
	require.Len(t, list, 1)
	assert.Equal(t, ids[1], list[0].ID)
}

func TestSearchByNamePrefix(t *testing.T) {
	store := newTestStore(t)
	ids := seed(t, store, "Ann", "Bob", "ann", "Andrew")
	// Inactive, so no snapshot can overwrite the results under test.
	view := NewRegistryView(store, nil)

	require.NoError(t, view.Search(context.Background(), "Ann"))
	list := view.Resumes()
	require.Len(t, list, 1)
	assert.Equal(t, ids[0], list[0].ID)
	assert.Equal(t, "Ann", view.Query())

	require.NoError(t, view.Search(context.Background(), "An"))
	names := make([]string, 0)
	for _, r := range view.Resumes() {
		names = append(names, r.Name)
	}
	assert.ElementsMatch(t, []string{"Ann", "Andrew"}, names)

	require.NoError(t, view.Search(context.Background(), ""))
	assert.Len(t, view.Resumes(), 4)

	require.NoError(t, view.Search(context.Background(), "nn"))
	assert.Empty(t, view.Resumes())
}

func TestSearchAnnAndBob(t *testing.T) {
	store := newTestStore(t)
	ids := seed(t, store, "Ann", "Bob")
	view := NewRegistryView(store, nil)

	require.NoError(t, view.Search(context.Background(), "An"))
	list := view.Resumes()
	require.Len(t, list, 1)
	assert.Equal(t, ids[0], list[0].ID)
}

func TestSnapshotReplacesSearchResults(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, "Ann", "Bob")
	view := newActiveView(t, store)
	waitForList(t, view, func(l []models.Resume) bool { return len(l) == 2 })

	require.NoError(t, view.Search(context.Background(), "Bob"))

	seed(t, store, "Cleo")
	waitForList(t, view, func(l []models.Resume) bool { return len(l) == 3 })
}

func TestFailedSearchKeepsList(t *testing.T) {
	base := newTestStore(t)
	seed(t, base, "Ann", "Bob")
	store := &flakyStore{DocumentStore: base, failSearch: true}
	view := newActiveView(t, store)
	waitForList(t, view, func(l []models.Resume) bool { return len(l) == 2 })

	require.ErrorIs(t, view.Search(context.Background(), "Ann"), errStoreDown)
	assert.Len(t, view.Resumes(), 2)
}

func TestSubmitEditRenamesOnlyThatRow(t *testing.T) {
	store := newTestStore(t)
	ids := seed(t, store, "Ann", "Bob")
	view := newActiveView(t, store)
	waitForList(t, view, func(l []models.Resume) bool { return len(l) == 2 })

	require.NoError(t, view.OpenEdit(ids[0]))
	require.NoError(t, view.OpenEdit(ids[1]))
	require.NoError(t, view.SetEditInput(ids[0], "Annabel"))

	// Bob's dialog is empty, so Bob keeps his name.
	require.NoError(t, view.SubmitEdit(context.Background(), ids[1]))
	_, open := view.EditState(ids[1])
	assert.False(t, open)

	state, ok := view.EditState(ids[0])
	require.True(t, ok)
	assert.Equal(t, EditState{Open: true, Input: "Annabel"}, state)

	require.NoError(t, view.SubmitEdit(context.Background(), ids[0]))
	_, open = view.EditState(ids[0])
	assert.False(t, open)

	list := waitForList(t, view, func(l []models.Resume) bool {
		return len(l) == 2 && l[0].Name == "Annabel"
	})
	assert.Equal(t, "Bob", list[1].Name)
}

func TestFailedEditKeepsDialogOpen(t *testing.T) {
	base := newTestStore(t)
	ids := seed(t, base, "Ann")
	store := &flakyStore{DocumentStore: base, failUpdate: true}
	view := newActiveView(t, store)
	waitForList(t, view, func(l []models.Resume) bool { return len(l) == 1 })

	require.NoError(t, view.OpenEdit(ids[0]))
	require.NoError(t, view.SetEditInput(ids[0], "Annabel"))

	require.ErrorIs(t, view.SubmitEdit(context.Background(), ids[0]), errStoreDown)

	state, ok := view.EditState(ids[0])
	require.True(t, ok)
	assert.Equal(t, EditState{Open: true, Input: "Annabel"}, state)
}

func TestCloseEditKeepsInput(t *testing.T) {
	store := newTestStore(t)
	ids := seed(t, store, "Ann")
	view := newActiveView(t, store)
	waitForList(t, view, func(l []models.Resume) bool { return len(l) == 1 })

	require.NoError(t, view.OpenEdit(ids[0]))
	require.NoError(t, view.SetEditInput(ids[0], "Annabel"))
	view.CloseEdit(ids[0])

	state, _ := view.EditState(ids[0])
	assert.False(t, state.Open)
	assert.Error(t, view.SetEditInput(ids[0], "Other"))

	require.NoError(t, view.OpenEdit(ids[0]))
	state, _ = view.EditState(ids[0])
	assert.Equal(t, EditState{Open: true, Input: "Annabel"}, state)
}

func TestSubmitEditRequiresOpenDialog(t *testing.T) {
	store := newTestStore(t)
	ids := seed(t, store, "Ann")
	view := newActiveView(t, store)
	waitForList(t, view, func(l []models.Resume) bool { return len(l) == 1 })

	assert.ErrorIs(t, view.SubmitEdit(context.Background(), ids[0]), ErrEditNotOpen)

	require.NoError(t, view.OpenEdit(ids[0]))
	require.NoError(t, view.SetEditInput(ids[0], "Annabel"))
	view.CloseEdit(ids[0])
	assert.ErrorIs(t, view.SubmitEdit(context.Background(), ids[0]), ErrEditNotOpen)

	resume, err := store.Get(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Ann", resume.Name)

	state, ok := view.EditState(ids[0])
	require.True(t, ok)
	assert.Equal(t, EditState{Open: false, Input: "Annabel"}, state)
}

func TestEditRequiresRowInView(t *testing.T) {
	store := newTestStore(t)
	view := newActiveView(t, store)

	id := uuid.New()
	assert.ErrorIs(t, view.OpenEdit(id), ErrResumeNotInView)
	assert.ErrorIs(t, view.SubmitEdit(context.Background(), id), ErrResumeNotInView)
}

func TestEditStateDroppedWhenRowDisappears(t *testing.T) {
	store := newTestStore(t)
	ids := seed(t, store, "Ann")
	view := newActiveView(t, store)
	waitForList(t, view, func(l []models.Resume) bool { return len(l) == 1 })

	require.NoError(t, view.OpenEdit(ids[0]))
	require.NoError(t, store.Delete(context.Background(), ids[0]))
	waitForList(t, view, func(l []models.Resume) bool { return len(l) == 0 })

	_, ok := view.EditState(ids[0])
	assert.False(t, ok)
}

func TestLateSnapshotAfterDeactivateIsIgnored(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, "Ann")

	var changes atomic.Int32
	view := NewRegistryView(store, func([]models.Resume) { changes.Add(1) })
	require.NoError(t, view.Activate(context.Background()))
	waitForList(t, view, func(l []models.Resume) bool { return len(l) == 1 })

	view.mu.Lock()
	staleGeneration := view.generation
	view.mu.Unlock()

	view.Deactivate()
	assert.False(t, view.Active())
	before := view.Resumes()
	calls := changes.Load()

	view.applySnapshot(staleGeneration, []models.Resume{*models.NewResume(models.ResumeFields{Name: "Late"})})
	seed(t, store, "Bob")
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, before, view.Resumes())
	assert.Equal(t, calls, changes.Load())
}

func TestStaleGenerationIgnoredAfterReactivation(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, "Ann")
	view := newActiveView(t, store)
	waitForList(t, view, func(l []models.Resume) bool { return len(l) == 1 })

	view.mu.Lock()
	staleGeneration := view.generation
	view.mu.Unlock()

	view.Deactivate()
	require.NoError(t, view.Activate(context.Background()))

	view.applySnapshot(staleGeneration, nil)
	assert.Len(t, view.Resumes(), 1)
}

func TestActivateTwice(t *testing.T) {
	view := newActiveView(t, newTestStore(t))
	assert.ErrorIs(t, view.Activate(context.Background()), ErrViewActive)
}

func TestActivationCyclesDoNotLeakSubscriptions(t *testing.T) {
	store := &countingStore{DocumentStore: newTestStore(t)}
	view := NewRegistryView(store, nil)

	for i := 0; i < 5; i++ {
		require.NoError(t, view.Activate(context.Background()))
		assert.Equal(t, int32(1), store.open.Load())
		view.Deactivate()
		assert.Equal(t, int32(0), store.open.Load())
	}

	view.Deactivate()
	assert.Equal(t, int32(0), store.open.Load())
}

func TestOnChangeCalledForSnapshots(t *testing.T) {
	store := newTestStore(t)

	lists := make(chan []models.Resume, 8)
	view := NewRegistryView(store, func(l []models.Resume) { lists <- l })
	require.NoError(t, view.Activate(context.Background()))
	defer view.Deactivate()

	id := seed(t, store, "Ann")[0]

	deadline := time.After(waitTimeout)
	for {
		select {
		case l := <-lists:
			if contains(l, id) {
				return
			}
		case <-deadline:
			t.Fatal("change hook never saw the new resume")
		}
	}
}

func TestRender(t *testing.T) {
	store := newTestStore(t)
	id, err := store.Create(context.Background(), models.ResumeFields{
		Name:          "Ann",
		Email:         "a@x.com",
		Contact:       "123",
		Address:       "Rd1",
		Skills:        "Go",
		Qualification: "BSc",
	})
	require.NoError(t, err)

	view := newActiveView(t, store)
	waitForList(t, view, func(l []models.Resume) bool { return len(l) == 1 })
	require.NoError(t, view.OpenEdit(id))
	require.NoError(t, view.SetEditInput(id, "Annabel"))

	var buf bytes.Buffer
	require.NoError(t, view.Render(&buf))
	out := buf.String()

	assert.Contains(t, out, "== Resumes ==")
	assert.Contains(t, out, "ID: "+id.String())
	assert.Contains(t, out, "Name: Ann\n")
	assert.Contains(t, out, "Email: a@x.com\n")
	assert.Contains(t, out, "Contact: 123\n")
	assert.Contains(t, out, "Address: Rd1\n")
	assert.Contains(t, out, "Skills: Go\n")
	assert.Contains(t, out, "Qualification: BSc\n")
	assert.Contains(t, out, "[Delete] [Update Name]")
	assert.Contains(t, out, "  > Annabel\n")
}

func TestPrefixUpperBound(t *testing.T) {
	upper := PrefixUpperBound("An")

	for _, name := range []string{"An", "Ann", "Andrew", "An\uf8ff", "An\U0001F600"} {
		assert.True(t, name >= "An" && name < upper, name)
	}
	for _, name := range []string{"Am", "Ao", "an", "B"} {
		assert.False(t, name >= "An" && name < upper, name)
	}
}
