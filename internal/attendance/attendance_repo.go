package attendance

import (
	"context"
	"database/sql"
	"time"

	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

//go:generate mockgen -source=attendance_repo.go -destination=mock/attendance_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, rec *AttendanceRecord) error
	UpdateConfidence(ctx context.Context, id string, confidence float64) error
	FindByIdentityAndDate(ctx context.Context, identityID string, date time.Time) (*AttendanceRecord, error)
	FindAllByDate(ctx context.Context, date time.Time) ([]AttendanceRecord, error)
	FindRange(ctx context.Context, start, end time.Time, identityID string) ([]AttendanceRecord, error)
	FindByIdentity(ctx context.Context, identityID string, limit int) ([]AttendanceRecord, error)
	CountByDate(ctx context.Context, date time.Time) (int64, error)
	CountAll(ctx context.Context) (int64, error)
	CountDistinctDates(ctx context.Context) (int64, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) Create(ctx context.Context, rec *AttendanceRecord) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

func (r *repository) UpdateConfidence(ctx context.Context, id string, confidence float64) error {
	return r.db.WithContext(ctx).
		Model(&AttendanceRecord{}).
		Where("id = ?", id).
		Update("confidence", confidence).Error
}

func (r *repository) FindByIdentityAndDate(ctx context.Context, identityID string, date time.Time) (*AttendanceRecord, error) {
	var rec AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Where("attendance_date = ?", date.Format(dateLayout)).
		First(&rec).Error
	return &rec, err
}

func (r *repository) FindAllByDate(ctx context.Context, date time.Time) ([]AttendanceRecord, error) {
	var rows []AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("attendance_date = ?", date.Format(dateLayout)).
		Order("first_seen_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) FindRange(ctx context.Context, start, end time.Time, identityID string) ([]AttendanceRecord, error) {
	q := r.db.WithContext(ctx).
		Where("attendance_date >= ?", start.Format(dateLayout)).
		Where("attendance_date <= ?", end.Format(dateLayout))
	if identityID != "" {
		q = q.Where("identity_id = ?", identityID)
	}

	var rows []AttendanceRecord
	err := q.Order("attendance_date ASC, first_seen_at ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) FindByIdentity(ctx context.Context, identityID string, limit int) ([]AttendanceRecord, error) {
	var rows []AttendanceRecord
	err := r.db.WithContext(ctx).
		Where("identity_id = ?", identityID).
		Order("attendance_date DESC, first_seen_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) CountByDate(ctx context.Context, date time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&AttendanceRecord{}).
		Where("attendance_date = ?", date.Format(dateLayout)).
		Count(&count).Error
	return count, err
}

func (r *repository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&AttendanceRecord{}).Count(&count).Error
	return count, err
}

func (r *repository) CountDistinctDates(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&AttendanceRecord{}).
		Distinct("attendance_date").
		Count(&count).Error
	return count, err
}
