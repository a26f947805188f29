package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/resume-registry/internal/models"
	"alfredoptarigan/resume-registry/internal/repositories"
)

// publishTimeout bounds the announcement of a write that already committed.
const publishTimeout = 5 * time.Second

// DocumentStore is the resume collection as seen by clients: one-shot
// writes and queries plus standing subscriptions that receive the full
// record set after every change.
type DocumentStore interface {
	Start(ctx context.Context)
	Stop()
	Subscribe(ctx context.Context) (Subscription, error)
	List(ctx context.Context) ([]models.Resume, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Resume, error)
	Create(ctx context.Context, fields models.ResumeFields) (uuid.UUID, error)
	Update(ctx context.Context, id uuid.UUID, data models.ResumeUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error
	QueryRange(ctx context.Context, field models.Field, lower, upper string) ([]models.Resume, error)
}

// Subscription delivers full snapshots until closed. Snapshots are
// latest-wins: a reader that falls behind only sees the newest one.
type Subscription interface {
	Snapshots() <-chan []models.Resume
	Close()
}

type documentStore struct {
	repo repositories.ResumeRepository
	feed ChangeFeed

	mu      sync.Mutex
	subs    map[uint64]*subscription
	nextID  uint64
	version uint64
	skipped bool

	refresh  chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewDocumentStore(repo repositories.ResumeRepository, feed ChangeFeed) DocumentStore {
	return &documentStore{
		repo:     repo,
		feed:     feed,
		subs:     make(map[uint64]*subscription),
		refresh:  make(chan struct{}, 1),
		stopChan: make(chan struct{}),
	}
}

// Start implements DocumentStore.
func (s *documentStore) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.broadcastChanges(ctx)
	log.Println("✅ Snapshot broadcaster started")
}

// Stop implements DocumentStore. Open subscriptions are closed.
func (s *documentStore) Stop() {
	s.stopOnce.Do(func() {
		log.Println("🛑 Stopping snapshot broadcaster...")
		close(s.stopChan)
		s.wg.Wait()

		s.mu.Lock()
		for id, sub := range s.subs {
			delete(s.subs, id)
			close(sub.snapshots)
		}
		s.mu.Unlock()
		log.Println("✅ Snapshot broadcaster stopped")
	})
}

// Subscribe implements DocumentStore. The first delivery is the current
// record set. Cancelling ctx closes the subscription.
func (s *documentStore) Subscribe(ctx context.Context) (Subscription, error) {
	sub := &subscription{
		store:     s,
		snapshots: make(chan []models.Resume, 1),
	}

	s.mu.Lock()
	select {
	case <-s.stopChan:
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to subscribe: document store stopped")
	default:
	}
	s.nextID++
	sub.id = s.nextID
	s.subs[sub.id] = sub
	s.mu.Unlock()

	stop := context.AfterFunc(ctx, sub.Close)
	s.mu.Lock()
	sub.stop = stop
	s.mu.Unlock()

	s.requestRefresh()

	log.Printf("📡 Subscription #%d opened\n", sub.id)
	return sub, nil
}

// List implements DocumentStore. It returns the same record set, in the
// same order, as a snapshot taken now.
func (s *documentStore) List(ctx context.Context) ([]models.Resume, error) {
	return s.repo.FindAll(ctx)
}

// Get implements DocumentStore. An unknown id fails with
// repositories.ErrResumeNotFound.
func (s *documentStore) Get(ctx context.Context, id uuid.UUID) (*models.Resume, error) {
	return s.repo.FindByID(ctx, id)
}

// Create implements DocumentStore.
func (s *documentStore) Create(ctx context.Context, fields models.ResumeFields) (uuid.UUID, error) {
	resume := models.NewResume(fields)
	if err := s.repo.Create(ctx, resume); err != nil {
		return uuid.Nil, err
	}

	s.publish(ctx, models.ChangeEvent{Op: models.OpCreate, ResumeID: resume.ID})
	return resume.ID, nil
}

// Update implements DocumentStore.
func (s *documentStore) Update(ctx context.Context, id uuid.UUID, data models.ResumeUpdate) error {
	if data.IsEmpty() {
		return fmt.Errorf("failed to update resume: no fields to update")
	}

	if err := s.repo.Update(ctx, id, &data); err != nil {
		return err
	}

	s.publish(ctx, models.ChangeEvent{Op: models.OpUpdate, ResumeID: id})
	return nil
}

// Delete implements DocumentStore.
func (s *documentStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, models.ChangeEvent{Op: models.OpDelete, ResumeID: id})
	return nil
}

// QueryRange implements DocumentStore.
func (s *documentStore) QueryRange(ctx context.Context, field models.Field, lower, upper string) ([]models.Resume, error) {
	return s.repo.FindByFieldRange(ctx, field, lower, upper)
}

// publish announces a completed write. It is detached from the caller's
// cancellation: once the write committed, the event must go out. A feed
// failure only costs remote subscribers; local ones are refreshed directly.
func (s *documentStore) publish(ctx context.Context, event models.ChangeEvent) {
	s.mu.Lock()
	s.version++
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.feed.Publish(ctx, event); err != nil {
		log.Printf("⚠️  Failed to publish %s of resume %s: %v\n", event.Op, event.ResumeID, err)
		s.requestRefresh()
	}
}

func (s *documentStore) requestRefresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

func (s *documentStore) broadcastChanges(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ctx.Done():
			return
		case event := <-s.feed.Changes():
			if event.Op != "" {
				log.Printf("🔔 Resume %s: %s\n", event.Op, event.ResumeID)
			}
			s.broadcast(ctx)
		case <-s.refresh:
			s.broadcast(ctx)
		}
	}
}

// broadcast loads the collection and hands it to every subscriber. A
// snapshot that was overtaken by a local write while loading is dropped,
// since that write has already queued another broadcast, but never twice in
// a row: a steady stream of writes must not starve subscribers. Broadcasts
// run one at a time, so a delivered snapshot is never older than the one
// before it.
func (s *documentStore) broadcast(ctx context.Context) {
	s.mu.Lock()
	version := s.version
	s.mu.Unlock()

	resumes, err := s.repo.FindAll(ctx)
	if err != nil {
		log.Printf("❌ Failed to load snapshot: %v\n", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.version != version && !s.skipped {
		s.skipped = true
		return
	}
	s.skipped = false

	for _, sub := range s.subs {
		snapshot := make([]models.Resume, len(resumes))
		copy(snapshot, resumes)
		sub.deliver(snapshot)
	}
}

type subscription struct {
	id        uint64
	store     *documentStore
	snapshots chan []models.Resume
	stop      func() bool
}

func (sub *subscription) Snapshots() <-chan []models.Resume {
	return sub.snapshots
}

// Close implements Subscription. It is safe to call more than once.
func (sub *subscription) Close() {
	s := sub.store
	s.mu.Lock()
	stop := sub.stop
	_, open := s.subs[sub.id]
	if open {
		delete(s.subs, sub.id)
		// An undelivered snapshot must not outlive the subscription.
		select {
		case <-sub.snapshots:
		default:
		}
		close(sub.snapshots)
	}
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	if open {
		log.Printf("📴 Subscription #%d closed\n", sub.id)
	}
}

// deliver replaces any undelivered snapshot. Callers hold store.mu.
func (sub *subscription) deliver(snapshot []models.Resume) {
	select {
	case <-sub.snapshots:
	default:
	}
	select {
	case sub.snapshots <- snapshot:
	default:
	}
}
