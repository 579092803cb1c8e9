package identity

import (
	"errors"
	"strings"

	identityerrors "github.com/pavankumar-vh/VisionID/internal/identity/errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return identityerrors.ErrIdentityNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" && pgErr.ConstraintName == "uq_identity_name" {
			return identityerrors.ErrDuplicateName
		}
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "duplicate key value") && strings.Contains(errMsg, "uq_identity_name") {
		return identityerrors.ErrDuplicateName
	}

	return err
}
