package identity

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/pavankumar-vh/VisionID/internal/facestore"
	identityerrors "github.com/pavankumar-vh/VisionID/internal/identity/errors"
	"github.com/pavankumar-vh/VisionID/internal/shared/apperror"
	"github.com/pavankumar-vh/VisionID/internal/vision"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/floats"
	"gorm.io/gorm"
)

type fakeRepo struct {
	withTxFn     func(tx *sql.Tx) Repository
	createFn     func(ctx context.Context, ident *Identity) error
	findByIDFn   func(ctx context.Context, id string) (*Identity, error)
	findByNameFn func(ctx context.Context, name string) (*Identity, error)
	findAllFn    func(ctx context.Context, offset, limit int) ([]Identity, error)
	countFn      func(ctx context.Context) (int64, error)
	updateFn     func(ctx context.Context, ident *Identity) error
	deleteFn     func(ctx context.Context, id string) (int64, error)
}

func (f *fakeRepo) WithTx(tx *sql.Tx) Repository {
	if f.withTxFn != nil {
		return f.withTxFn(tx)
	}
	return f
}
func (f *fakeRepo) Create(ctx context.Context, ident *Identity) error { return f.createFn(ctx, ident) }
func (f *fakeRepo) FindByID(ctx context.Context, id string) (*Identity, error) {
	return f.findByIDFn(ctx, id)
}
func (f *fakeRepo) FindByName(ctx context.Context, name string) (*Identity, error) {
	return f.findByNameFn(ctx, name)
}
func (f *fakeRepo) FindAll(ctx context.Context, offset, limit int) ([]Identity, error) {
	return f.findAllFn(ctx, offset, limit)
}
func (f *fakeRepo) Count(ctx context.Context) (int64, error) { return f.countFn(ctx) }
func (f *fakeRepo) Update(ctx context.Context, ident *Identity) error {
	return f.updateFn(ctx, ident)
}
func (f *fakeRepo) Delete(ctx context.Context, id string) (int64, error) {
	return f.deleteFn(ctx, id)
}

type fakeDetector struct {
	detectFn func(ctx context.Context, image []byte) ([]vision.Face, error)
}

func (f *fakeDetector) Detect(ctx context.Context, image []byte) ([]vision.Face, error) {
	return f.detectFn(ctx, image)
}

type fakeEmbedder struct {
	embedFn func(ctx context.Context, image []byte, face vision.Face) ([]float64, error)
}

func (f *fakeEmbedder) Embed(ctx context.Context, image []byte, face vision.Face) ([]float64, error) {
	return f.embedFn(ctx, image, face)
}

type nilLoader struct{}

func (nilLoader) LoadEntries(ctx context.Context) ([]facestore.Entry, error) { return nil, nil }

func oneFace() []vision.Face {
	return []vision.Face{{Box: vision.Box{X: 1, Y: 2, Width: 50, Height: 60}, Confidence: 0.99}}
}

func rawVec(scale float64) []float64 {
	v := make([]float64, facestore.EmbeddingDim)
	v[0] = scale
	v[1] = scale
	return v
}

func TestService_Enroll(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()
	ctx := context.Background()

	var saved *Identity
	repo := &fakeRepo{createFn: func(ctx context.Context, ident *Identity) error {
		saved = ident
		return nil
	}}
	detector := &fakeDetector{detectFn: func(ctx context.Context, image []byte) ([]vision.Face, error) {
		return oneFace(), nil
	}}
	embedder := &fakeEmbedder{embedFn: func(ctx context.Context, image []byte, face vision.Face) ([]float64, error) {
		return rawVec(3.0), nil // not unit-norm on purpose
	}}

	svc := NewService(db, repo, facestore.New(nilLoader{}), detector, embedder)

	resp, err := svc.Enroll(ctx, EnrollParams{Name: "alice", Image: []byte("jpeg"), ImageRef: "alice.jpg"})
	assert.NoError(t, err)
	assert.Equal(t, "alice", resp.Name)
	assert.NotEmpty(t, resp.ID)

	assert.NotNil(t, saved)
	assert.Equal(t, "alice", saved.Name)
	assert.Len(t, saved.Embedding, facestore.EmbeddingDim*4)

	// stored embedding is unit-normalized
	vec, err := facestore.DecodeEmbedding(saved.Embedding)
	assert.NoError(t, err)
	assert.InDelta(t, 1.0, floats.Norm(vec, 2), 1e-6)
}

func TestService_Enroll_MissingName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	svc := NewService(db, &fakeRepo{}, facestore.New(nilLoader{}), &fakeDetector{}, &fakeEmbedder{})

	_, err := svc.Enroll(context.Background(), EnrollParams{Image: []byte("jpeg")})
	assert.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	assert.True(t, ok)
	assert.Equal(t, apperror.CodeInvalidInput, appErr.Code)
}

func TestService_Enroll_NoFace(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	detector := &fakeDetector{detectFn: func(ctx context.Context, image []byte) ([]vision.Face, error) {
		return nil, nil
	}}
	svc := NewService(db, &fakeRepo{}, facestore.New(nilLoader{}), detector, &fakeEmbedder{})

	_, err := svc.Enroll(context.Background(), EnrollParams{Name: "alice", Image: []byte("jpeg")})
	assert.ErrorIs(t, err, apperror.ErrNoFaceDetected)
}

func TestService_Enroll_MultipleFaces(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	detector := &fakeDetector{detectFn: func(ctx context.Context, image []byte) ([]vision.Face, error) {
		return append(oneFace(), oneFace()...), nil
	}}
	svc := NewService(db, &fakeRepo{}, facestore.New(nilLoader{}), detector, &fakeEmbedder{})

	_, err := svc.Enroll(context.Background(), EnrollParams{Name: "alice", Image: []byte("jpeg")})
	assert.ErrorIs(t, err, identityerrors.ErrInvalidFaceCount)
}

func TestService_Enroll_DuplicateName(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	repo := &fakeRepo{createFn: func(ctx context.Context, ident *Identity) error {
		return &pgconn.PgError{Code: "23505", ConstraintName: "uq_identity_name"}
	}}
	detector := &fakeDetector{detectFn: func(ctx context.Context, image []byte) ([]vision.Face, error) {
		return oneFace(), nil
	}}
	embedder := &fakeEmbedder{embedFn: func(ctx context.Context, image []byte, face vision.Face) ([]float64, error) {
		return rawVec(1.0), nil
	}}

	svc := NewService(db, repo, facestore.New(nilLoader{}), detector, embedder)

	_, err := svc.Enroll(context.Background(), EnrollParams{Name: "alice", Image: []byte("jpeg")})
	assert.ErrorIs(t, err, identityerrors.ErrDuplicateName)
}

func TestService_Enroll_InvalidMetadata(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	svc := NewService(db, &fakeRepo{}, facestore.New(nilLoader{}), &fakeDetector{}, &fakeEmbedder{})

	_, err := svc.Enroll(context.Background(), EnrollParams{
		Name:     "alice",
		Image:    []byte("jpeg"),
		Metadata: []byte("{not json"),
	})
	assert.ErrorIs(t, err, identityerrors.ErrInvalidMetadata)
}

func TestService_Update_NameOnly(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	ctx := context.Background()

	id := uuid.New()
	existing := Identity{ID: id, Name: "alice", Embedding: make([]byte, facestore.EmbeddingDim*4), CreatedAt: time.Now().UTC()}

	var updated *Identity
	repo := &fakeRepo{}
	repo.withTxFn = func(tx *sql.Tx) Repository { return repo }
	repo.findByIDFn = func(ctx context.Context, q string) (*Identity, error) {
		assert.Equal(t, id.String(), q)
		row := existing
		return &row, nil
	}
	repo.updateFn = func(ctx context.Context, ident *Identity) error {
		updated = ident
		return nil
	}

	svc := NewService(db, repo, facestore.New(nilLoader{}), &fakeDetector{}, &fakeEmbedder{})

	mock.ExpectBegin()
	mock.ExpectCommit()
	newName := "alice-renamed"
	resp, err := svc.Update(ctx, id.String(), UpdateParams{Name: &newName})
	assert.NoError(t, err)
	assert.Equal(t, "alice-renamed", resp.Name)
	assert.Equal(t, "alice-renamed", updated.Name)
	assert.Equal(t, existing.Embedding, updated.Embedding, "embedding untouched without a new image")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Update_NotFound(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()

	repo := &fakeRepo{}
	repo.withTxFn = func(tx *sql.Tx) Repository { return repo }
	repo.findByIDFn = func(ctx context.Context, q string) (*Identity, error) {
		return nil, gorm.ErrRecordNotFound
	}

	svc := NewService(db, repo, facestore.New(nilLoader{}), &fakeDetector{}, &fakeEmbedder{})

	mock.ExpectBegin()
	mock.ExpectRollback()
	_, err := svc.Update(context.Background(), uuid.New().String(), UpdateParams{})
	assert.ErrorIs(t, err, identityerrors.ErrIdentityNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_Update_InvalidID(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	svc := NewService(db, &fakeRepo{}, facestore.New(nilLoader{}), &fakeDetector{}, &fakeEmbedder{})

	_, err := svc.Update(context.Background(), "not-a-uuid", UpdateParams{})
	assert.ErrorIs(t, err, identityerrors.ErrInvalidIdentityID)
}

func TestService_Delete(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	var deletedID string
	repo := &fakeRepo{deleteFn: func(ctx context.Context, id string) (int64, error) {
		deletedID = id
		return 1, nil
	}}
	svc := NewService(db, repo, facestore.New(nilLoader{}), &fakeDetector{}, &fakeEmbedder{})

	id := uuid.New().String()
	assert.NoError(t, svc.Delete(context.Background(), id))
	assert.Equal(t, id, deletedID)
}

func TestService_Delete_NotFound(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	repo := &fakeRepo{deleteFn: func(ctx context.Context, id string) (int64, error) {
		return 0, nil
	}}
	svc := NewService(db, repo, facestore.New(nilLoader{}), &fakeDetector{}, &fakeEmbedder{})

	err := svc.Delete(context.Background(), uuid.New().String())
	assert.ErrorIs(t, err, identityerrors.ErrIdentityNotFound)
}

func TestService_List_ClampsPagination(t *testing.T) {
	db, _, _ := sqlmock.New()
	defer db.Close()

	var gotOffset, gotLimit int
	repo := &fakeRepo{
		findAllFn: func(ctx context.Context, offset, limit int) ([]Identity, error) {
			gotOffset, gotLimit = offset, limit
			return []Identity{{ID: uuid.New(), Name: "alice", CreatedAt: time.Now().UTC()}}, nil
		},
		countFn: func(ctx context.Context) (int64, error) { return 1, nil },
	}
	svc := NewService(db, repo, facestore.New(nilLoader{}), &fakeDetector{}, &fakeEmbedder{})

	rows, total, err := svc.List(context.Background(), -5, 10000)
	assert.NoError(t, err)
	assert.Equal(t, 0, gotOffset)
	assert.Equal(t, 100, gotLimit)
	assert.Equal(t, int64(1), total)
	assert.Len(t, rows, 1)
}
