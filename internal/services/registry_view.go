package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"

	"alfredoptarigan/resume-registry/internal/models"
)

var (
	ErrViewActive      = errors.New("registry view already active")
	ErrResumeNotInView = errors.New("resume not in view")
	ErrEditNotOpen     = errors.New("update name dialog not open")
)

// PrefixUpperBound returns the exclusive upper bound of the range holding
// every string that starts with prefix. U+10FFFF is the largest code point,
// so it sorts after any character that can follow the prefix.
func PrefixUpperBound(prefix string) string {
	return prefix + "\U0010FFFF"
}

// EditState is the "Update Name" dialog of one row.
type EditState struct {
	Open  bool
	Input string
}

// RegistryView holds what the resume screen shows: the live list, the
// draft of a new resume, and one edit dialog per row.
//
// Store failures are logged and returned; view state is left as it was.
type RegistryView struct {
	store    DocumentStore
	onChange func([]models.Resume)

	mu         sync.Mutex
	resumes    []models.Resume
	draft      models.ResumeFields
	query      string
	edits      map[uuid.UUID]*EditState
	sub        Subscription
	generation uint64
	watchDone  chan struct{}
}

// NewRegistryView creates an inactive view. onChange, if set, is called with
// the new list every time it is replaced.
func NewRegistryView(store DocumentStore, onChange func([]models.Resume)) *RegistryView {
	return &RegistryView{
		store:    store,
		onChange: onChange,
		edits:    make(map[uuid.UUID]*EditState),
	}
}

// Activate subscribes to the collection. Each snapshot replaces the list.
func (v *RegistryView) Activate(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.sub != nil {
		return ErrViewActive
	}

	sub, err := v.store.Subscribe(ctx)
	if err != nil {
		log.Printf("❌ Error subscribing to resumes: %v\n", err)
		return fmt.Errorf("failed to subscribe to resumes: %w", err)
	}

	v.generation++
	v.sub = sub
	v.watchDone = make(chan struct{})
	go v.watch(sub, v.generation, v.watchDone)

	return nil
}

// Deactivate releases the subscription and waits until no snapshot from it
// can reach the view. It is a no-op on an inactive view.
func (v *RegistryView) Deactivate() {
	v.mu.Lock()
	sub := v.sub
	done := v.watchDone
	v.sub = nil
	v.watchDone = nil
	v.generation++
	v.mu.Unlock()

	if sub == nil {
		return
	}
	sub.Close()
	<-done
}

func (v *RegistryView) Active() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.sub != nil
}

func (v *RegistryView) watch(sub Subscription, generation uint64, done chan struct{}) {
	defer close(done)
	for snapshot := range sub.Snapshots() {
		v.applySnapshot(generation, snapshot)
	}
}

// applySnapshot replaces the list unless the delivering subscription has
// been released since.
func (v *RegistryView) applySnapshot(generation uint64, snapshot []models.Resume) {
	v.mu.Lock()
	if v.sub == nil || generation != v.generation {
		v.mu.Unlock()
		return
	}

	v.resumes = snapshot
	present := make(map[uuid.UUID]struct{}, len(snapshot))
	for _, r := range snapshot {
		present[r.ID] = struct{}{}
	}
	for id := range v.edits {
		if _, ok := present[id]; !ok {
			delete(v.edits, id)
		}
	}
	list := v.listLocked()
	v.mu.Unlock()

	v.notify(list)
}

func (v *RegistryView) notify(list []models.Resume) {
	if v.onChange != nil {
		v.onChange(list)
	}
}

// Resumes returns a copy of the displayed list in display order.
func (v *RegistryView) Resumes() []models.Resume {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.listLocked()
}

func (v *RegistryView) listLocked() []models.Resume {
	out := make([]models.Resume, len(v.resumes))
	copy(out, v.resumes)
	return out
}

func (v *RegistryView) SetDraftField(field models.Field, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft.Set(field, value)
}

func (v *RegistryView) Draft() models.ResumeFields {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.draft
}

// SubmitDraft creates a resume from the draft. The draft is cleared only
// after the store accepted it; the new row arrives with the next snapshot.
func (v *RegistryView) SubmitDraft(ctx context.Context) (uuid.UUID, error) {
	draft := v.Draft()

	id, err := v.store.Create(ctx, draft)
	if err != nil {
		log.Printf("❌ Error adding resume: %v\n", err)
		return uuid.Nil, fmt.Errorf("failed to add resume: %w", err)
	}

	v.mu.Lock()
	v.draft = models.ResumeFields{}
	v.mu.Unlock()

	log.Printf("✅ Resume %s added successfully\n", id)
	return id, nil
}

// DeleteResume asks the store to remove the resume. The row stays until a
// snapshot without it arrives.
func (v *RegistryView) DeleteResume(ctx context.Context, id uuid.UUID) error {
	if err := v.store.Delete(ctx, id); err != nil {
		log.Printf("❌ Error deleting resume %s: %v\n", id, err)
		return fmt.Errorf("failed to delete resume: %w", err)
	}

	log.Printf("✅ Resume %s deleted successfully\n", id)
	return nil
}

func (v *RegistryView) OpenEdit(id uuid.UUID) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if _, ok := v.findLocked(id); !ok {
		return ErrResumeNotInView
	}
	state, ok := v.edits[id]
	if !ok {
		state = &EditState{}
		v.edits[id] = state
	}
	state.Open = true
	return nil
}

func (v *RegistryView) SetEditInput(id uuid.UUID, input string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	state, ok := v.edits[id]
	if !ok || !state.Open {
		return fmt.Errorf("no open edit for resume %s", id)
	}
	state.Input = input
	return nil
}

// CloseEdit hides the dialog of one row. Its input is kept for the next
// time the dialog opens.
func (v *RegistryView) CloseEdit(id uuid.UUID) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if state, ok := v.edits[id]; ok {
		state.Open = false
	}
}

func (v *RegistryView) EditState(id uuid.UUID) (EditState, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	state, ok := v.edits[id]
	if !ok {
		return EditState{}, false
	}
	return *state, true
}

// SubmitEdit renames one resume from its open dialog. An empty input keeps
// the current name. On success that row's dialog closes and its input
// resets; on failure it stays open.
func (v *RegistryView) SubmitEdit(ctx context.Context, id uuid.UUID) error {
	v.mu.Lock()
	resume, ok := v.findLocked(id)
	state, hasState := v.edits[id]
	open := hasState && state.Open
	var input string
	if open {
		input = state.Input
	}
	v.mu.Unlock()

	if !ok {
		log.Printf("❌ Error updating resume %s: %v\n", id, ErrResumeNotInView)
		return ErrResumeNotInView
	}
	if !open {
		log.Printf("❌ Error updating resume %s: %v\n", id, ErrEditNotOpen)
		return ErrEditNotOpen
	}

	name := input
	if name == "" {
		name = resume.Name
	}

	if err := v.store.Update(ctx, id, models.ResumeUpdate{Name: &name}); err != nil {
		log.Printf("❌ Error updating resume %s: %v\n", id, err)
		return fmt.Errorf("failed to update resume: %w", err)
	}

	v.mu.Lock()
	delete(v.edits, id)
	v.mu.Unlock()

	log.Printf("✅ Resume %s updated successfully\n", id)
	return nil
}

// Search replaces the list with the resumes whose name starts with query.
// The result is fetched once and holds until the next snapshot.
func (v *RegistryView) Search(ctx context.Context, query string) error {
	results, err := v.store.QueryRange(ctx, models.FieldName, query, PrefixUpperBound(query))
	if err != nil {
		log.Printf("❌ Error searching resumes: %v\n", err)
		return fmt.Errorf("failed to search resumes: %w", err)
	}

	v.mu.Lock()
	v.query = query
	v.resumes = results
	list := v.listLocked()
	v.mu.Unlock()

	log.Printf("🔍 Search %q matched %d resumes\n", query, len(results))
	v.notify(list)
	return nil
}

func (v *RegistryView) Query() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.query
}

func (v *RegistryView) findLocked(id uuid.UUID) (models.Resume, bool) {
	for _, r := range v.resumes {
		if r.ID == id {
			return r, true
		}
	}
	return models.Resume{}, false
}

// Render writes the "Resumes" section.
func (v *RegistryView) Render(w io.Writer) error {
	v.mu.Lock()
	list := v.listLocked()
	edits := make(map[uuid.UUID]EditState, len(v.edits))
	for id, state := range v.edits {
		edits[id] = *state
	}
	v.mu.Unlock()

	return renderResumes(w, list, edits)
}
