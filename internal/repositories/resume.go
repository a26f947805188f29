package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/resume-registry/internal/models"
)

var ErrResumeNotFound = errors.New("resume not found")

type ResumeRepository interface {
	Create(ctx context.Context, resume *models.Resume) error
	FindAll(ctx context.Context) ([]models.Resume, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Resume, error)
	Update(ctx context.Context, id uuid.UUID, data *models.ResumeUpdate) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByFieldRange(ctx context.Context, field models.Field, lower, upper string) ([]models.Resume, error)
}

type resumeRepository struct {
	db *gorm.DB
}

func NewResumeRepository(db *gorm.DB) ResumeRepository {
	return &resumeRepository{db: db}
}

func (r *resumeRepository) Create(ctx context.Context, resume *models.Resume) error {
	if err := r.db.WithContext(ctx).Create(resume).Error; err != nil {
		return fmt.Errorf("failed to create resume: %w", err)
	}
	return nil
}

func (r *resumeRepository) FindAll(ctx context.Context) ([]models.Resume, error) {
	var resumes []models.Resume
	err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Order("id ASC").
		Find(&resumes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find resumes: %w", err)
	}
	return resumes, nil
}

func (r *resumeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Resume, error) {
	var resume models.Resume
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&resume).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrResumeNotFound
		}
		return nil, fmt.Errorf("failed to find resume: %w", err)
	}
	return &resume, nil
}

func (r *resumeRepository) Update(ctx context.Context, id uuid.UUID, data *models.ResumeUpdate) error {
	updates := data.Columns()
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).
		Model(&models.Resume{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update resume: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		return ErrResumeNotFound
	}

	return nil
}

// Delete removes the resume. Deleting an unknown id is not an error.
func (r *resumeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Resume{}).Error; err != nil {
		return fmt.Errorf("failed to delete resume: %w", err)
	}
	return nil
}

// FindByFieldRange returns resumes with lower <= field < upper, compared
// byte-wise, ordered by that field.
func (r *resumeRepository) FindByFieldRange(ctx context.Context, field models.Field, lower, upper string) ([]models.Resume, error) {
	if _, err := models.ParseField(string(field)); err != nil {
		return nil, err
	}

	column := fmt.Sprintf("%s COLLATE \"C\"", field)

	var resumes []models.Resume
	err := r.db.WithContext(ctx).
		Where(column+" >= ?", lower).
		Where(column+" < ?", upper).
		Order(column + " ASC").
		Order("id ASC").
		Find(&resumes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query resumes by %s: %w", field, err)
	}
	return resumes, nil
}
