package identity

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pavankumar-vh/VisionID/internal/facestore"
	identityerrors "github.com/pavankumar-vh/VisionID/internal/identity/errors"
	"github.com/pavankumar-vh/VisionID/internal/shared/apperror"
	"github.com/pavankumar-vh/VisionID/internal/shared/contextutil"
	"github.com/pavankumar-vh/VisionID/internal/vision"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -source=identity_service.go -destination=mock/identity_service_mock.go -package=mock
type Service interface {
	Enroll(ctx context.Context, params EnrollParams) (IdentityResponse, error)
	Update(ctx context.Context, id string, params UpdateParams) (IdentityResponse, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]IdentityResponse, int64, error)
}

type service struct {
	db       *sql.DB
	repo     Repository
	store    *facestore.Store
	detector vision.Detector
	embedder vision.Embedder
	logger   *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	store *facestore.Store,
	detector vision.Detector,
	embedder vision.Embedder,
) Service {
	return &service{
		db:       db,
		repo:     repo,
		store:    store,
		detector: detector,
		embedder: embedder,
		logger:   zap.L().Named("identity.service"),
	}
}

// embedSingleFace runs detection and embedding for an enrollment image,
// which must contain exactly one face, and returns the normalized vector
// encoded for storage.
func (s *service) embedSingleFace(ctx context.Context, image []byte) ([]byte, error) {
	faces, err := s.detector.Detect(ctx, image)
	if err != nil {
		return nil, err
	}
	if len(faces) == 0 {
		return nil, apperror.ErrNoFaceDetected
	}
	if len(faces) != 1 {
		return nil, identityerrors.ErrInvalidFaceCount
	}

	vec, err := s.embedder.Embed(ctx, image, faces[0])
	if err != nil {
		return nil, err
	}
	if err := facestore.Normalize(vec); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternalError, "Embedding normalization failed", 500)
	}
	return facestore.EncodeEmbedding(vec)
}

func (s *service) Enroll(ctx context.Context, params EnrollParams) (IdentityResponse, error) {
	rid := contextutil.GetRequestID(ctx)

	if params.Name == "" {
		return IdentityResponse{}, apperror.RequiredField("Name")
	}
	if len(params.Metadata) > 0 && !json.Valid(params.Metadata) {
		return IdentityResponse{}, identityerrors.ErrInvalidMetadata
	}

	encoded, err := s.embedSingleFace(ctx, params.Image)
	if err != nil {
		return IdentityResponse{}, err
	}

	row := &Identity{
		ID:        uuid.New(),
		Name:      params.Name,
		Embedding: encoded,
		Metadata:  params.Metadata,
		CreatedAt: time.Now().UTC(),
	}
	if params.ImageRef != "" {
		row.ImagePath = &params.ImageRef
	}

	// The unique index on name is the authority for duplicate detection;
	// a lost race surfaces as 23505 and maps to DuplicateName.
	if err := s.repo.Create(ctx, row); err != nil {
		return IdentityResponse{}, mapRepositoryError(err)
	}

	if err := s.store.Reload(ctx); err != nil {
		s.logger.Error("snapshot reload after enroll failed",
			zap.String("request_id", rid), zap.Error(err))
	}

	s.logger.Info("identity enrolled",
		zap.String("request_id", rid),
		zap.String("identity_id", row.ID.String()),
		zap.String("name", row.Name),
	)
	return mapToResponse(*row), nil
}

func (s *service) Update(ctx context.Context, id string, params UpdateParams) (IdentityResponse, error) {
	if _, err := uuid.Parse(id); err != nil {
		return IdentityResponse{}, identityerrors.ErrInvalidIdentityID
	}
	if len(params.Metadata) > 0 && !json.Valid(params.Metadata) {
		return IdentityResponse{}, identityerrors.ErrInvalidMetadata
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return IdentityResponse{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	row, err := qtx.FindByID(ctx, id)
	if err != nil {
		return IdentityResponse{}, mapRepositoryError(err)
	}

	if params.Name != nil && *params.Name != "" {
		row.Name = *params.Name
	}
	if len(params.Image) > 0 {
		encoded, err := s.embedSingleFace(ctx, params.Image)
		if err != nil {
			return IdentityResponse{}, err
		}
		row.Embedding = encoded
		if params.ImageRef != "" {
			row.ImagePath = &params.ImageRef
		}
	}
	if len(params.Metadata) > 0 {
		row.Metadata = params.Metadata
	}
	row.UpdatedAt = time.Now().UTC()

	if err := qtx.Update(ctx, row); err != nil {
		return IdentityResponse{}, mapRepositoryError(err)
	}
	if err := tx.Commit(); err != nil {
		return IdentityResponse{}, err
	}

	if err := s.store.Reload(ctx); err != nil {
		s.logger.Error("snapshot reload after update failed", zap.Error(err))
	}
	return mapToResponse(*row), nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return identityerrors.ErrInvalidIdentityID
	}

	affected, err := s.repo.Delete(ctx, id)
	if err != nil {
		return mapRepositoryError(err)
	}
	if affected == 0 {
		return identityerrors.ErrIdentityNotFound
	}

	if err := s.store.Reload(ctx); err != nil {
		s.logger.Error("snapshot reload after delete failed", zap.Error(err))
	}

	s.logger.Info("identity deleted", zap.String("identity_id", id))
	return nil
}

func (s *service) List(ctx context.Context, offset, limit int) ([]IdentityResponse, int64, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}

	rows, err := s.repo.FindAll(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	res := make([]IdentityResponse, len(rows))
	for i, row := range rows {
		res[i] = mapToResponse(row)
	}
	return res, total, nil
}
