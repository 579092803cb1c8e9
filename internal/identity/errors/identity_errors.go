package identityerrors

import (
	"net/http"

	"github.com/pavankumar-vh/VisionID/internal/shared/apperror"
)

var (
	ErrIdentityNotFound = apperror.New(
		apperror.CodeNotFound,
		"Identity not found",
		http.StatusNotFound,
	)
	ErrDuplicateName = apperror.New(
		apperror.CodeConflict,
		"An identity with this name already exists",
		http.StatusConflict,
	)
	ErrInvalidIdentityID = apperror.New(
		apperror.CodeInvalidInput,
		"Invalid identity ID",
		http.StatusBadRequest,
	)
	ErrInvalidFaceCount = apperror.New(
		apperror.CodeInvalidFaceCount,
		"Enrollment image must contain exactly one face",
		http.StatusUnprocessableEntity,
	)
	ErrInvalidMetadata = apperror.New(
		apperror.CodeInvalidInput,
		"Metadata must be a valid JSON document",
		http.StatusBadRequest,
	)
)
