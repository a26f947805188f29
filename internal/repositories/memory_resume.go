package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/resume-registry/internal/models"
)

// memoryResumeRepository keeps resumes in insertion order. It backs the
// "memory" store driver and the tests.
type memoryResumeRepository struct {
	mu      sync.RWMutex
	resumes []models.Resume
}

func NewMemoryResumeRepository() ResumeRepository {
	return &memoryResumeRepository{}
}

func (m *memoryResumeRepository) Create(ctx context.Context, resume *models.Resume) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to create resume: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexOf(resume.ID) >= 0 {
		return fmt.Errorf("failed to create resume: duplicate id %s", resume.ID)
	}
	m.resumes = append(m.resumes, *resume)
	return nil
}

func (m *memoryResumeRepository) FindAll(ctx context.Context) ([]models.Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to find resumes: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Resume, len(m.resumes))
	copy(out, m.resumes)
	return out, nil
}

func (m *memoryResumeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Resume, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to find resume: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexOf(id)
	if i < 0 {
		return nil, ErrResumeNotFound
	}
	resume := m.resumes[i]
	return &resume, nil
}

func (m *memoryResumeRepository) Update(ctx context.Context, id uuid.UUID, data *models.ResumeUpdate) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to update resume: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return ErrResumeNotFound
	}
	data.Apply(&m.resumes[i])
	m.resumes[i].UpdatedAt = time.Now()
	return nil
}

func (m *memoryResumeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to delete resume: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.indexOf(id); i >= 0 {
		m.resumes = append(m.resumes[:i], m.resumes[i+1:]...)
	}
	return nil
}

func (m *memoryResumeRepository) FindByFieldRange(ctx context.Context, field models.Field, lower, upper string) ([]models.Resume, error) {
	if _, err := models.ParseField(string(field)); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to query resumes by %s: %w", field, err)
	}

	m.mu.RLock()
	var out []models.Resume
	for _, r := range m.resumes {
		v := r.Fields().Get(field)
		if v >= lower && v < upper {
			out = append(out, r)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Fields().Get(field) < out[j].Fields().Get(field)
	})
	return out, nil
}

func (m *memoryResumeRepository) indexOf(id uuid.UUID) int {
	for i := range m.resumes {
		if m.resumes[i].ID == id {
			return i
		}
	}
	return -1
}
