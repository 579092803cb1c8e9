package identity

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

//go:generate mockgen -source=identity_repo.go -destination=mock/identity_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, ident *Identity) error
	FindByID(ctx context.Context, id string) (*Identity, error)
	FindByName(ctx context.Context, name string) (*Identity, error)
	FindAll(ctx context.Context, offset, limit int) ([]Identity, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, ident *Identity) error
	Delete(ctx context.Context, id string) (int64, error)
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

func (r *repository) Create(ctx context.Context, ident *Identity) error {
	return r.db.WithContext(ctx).Create(ident).Error
}

func (r *repository) FindByID(ctx context.Context, id string) (*Identity, error) {
	var ident Identity
	err := r.db.WithContext(ctx).First(&ident, "id = ?", id).Error
	return &ident, err
}

func (r *repository) FindByName(ctx context.Context, name string) (*Identity, error) {
	var ident Identity
	err := r.db.WithContext(ctx).First(&ident, "name = ?", name).Error
	return &ident, err
}

// FindAll returns identities in insertion order.
func (r *repository) FindAll(ctx context.Context, offset, limit int) ([]Identity, error) {
	var idents []Identity
	err := r.db.WithContext(ctx).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&idents).Error
	return idents, err
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Identity{}).Count(&count).Error
	return count, err
}

func (r *repository) Update(ctx context.Context, ident *Identity) error {
	return r.db.WithContext(ctx).Save(ident).Error
}

func (r *repository) Delete(ctx context.Context, id string) (int64, error) {
	res := r.db.WithContext(ctx).Delete(&Identity{}, "id = ?", id)
	return res.RowsAffected, res.Error
}
