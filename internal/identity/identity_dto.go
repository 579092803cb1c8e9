package identity

import (
	"encoding/json"
	"time"
)

// EnrollParams carries the decoded multipart enrollment request.
type EnrollParams struct {
	Name     string
	Image    []byte
	ImageRef string
	Metadata json.RawMessage
}

// UpdateParams carries optional fields; nil means keep the current value.
type UpdateParams struct {
	Name     *string
	Image    []byte
	ImageRef string
	Metadata json.RawMessage
}

type IdentityResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	ImagePath *string         `json:"image_path,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at,omitempty"`
}

func mapToResponse(ident Identity) IdentityResponse {
	resp := IdentityResponse{
		ID:        ident.ID.String(),
		Name:      ident.Name,
		ImagePath: ident.ImagePath,
		Metadata:  ident.Metadata,
		CreatedAt: ident.CreatedAt.Format(time.RFC3339),
	}
	if !ident.UpdatedAt.IsZero() {
		resp.UpdatedAt = ident.UpdatedAt.Format(time.RFC3339)
	}
	return resp
}
