package recognition

import (
	"context"

	"gorm.io/gorm"
)

//go:generate mockgen -source=recognition_repo.go -destination=mock/recognition_repo_mock.go -package=mock
type Repository interface {
	Create(ctx context.Context, attempt *RecognitionAttempt) error
	FindRecent(ctx context.Context, limit int) ([]RecognitionAttempt, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, attempt *RecognitionAttempt) error {
	return r.db.WithContext(ctx).Create(attempt).Error
}

func (r *repository) FindRecent(ctx context.Context, limit int) ([]RecognitionAttempt, error) {
	var rows []RecognitionAttempt
	err := r.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
