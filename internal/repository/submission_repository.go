package repository

import (
	"context"
	"errors"

	"wax-intake/internal/domain/submission"
	wax_errors "wax-intake/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubmissionRepository is the metadata store contract. Create fails
// with ErrAlreadyExists on a constraint violation.
type SubmissionRepository interface {
	Create(ctx context.Context, s *submission.Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (submission.Submission, error)
	List(ctx context.Context, page, limit int) ([]submission.Submission, int64, error)
}

type PostgresSubmissionRepository struct {
	db *gorm.DB
}

func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &PostgresSubmissionRepository{db: db}
}

func (r *PostgresSubmissionRepository) Create(ctx context.Context, s *submission.Submission) error {
	res := r.db.WithContext(ctx).Create(s)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return wax_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresSubmissionRepository) GetByID(ctx context.Context, id uuid.UUID) (submission.Submission, error) {
	var s submission.Submission
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return submission.Submission{}, wax_errors.ErrNotFound
		}
		return submission.Submission{}, err
	}
	return s, nil
}

func (r *PostgresSubmissionRepository) List(ctx context.Context, page, limit int) ([]submission.Submission, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var items []submission.Submission
	var total int64

	q := r.db.WithContext(ctx).Model(&submission.Submission{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
