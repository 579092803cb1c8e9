package identity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Identity is an enrolled person. Embedding holds the unit-normalized
// 512-dim vector as a flat little-endian float32 buffer. Rows are hard
// deleted so a removed name can be enrolled again.
type Identity struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name      string          `gorm:"column:name;type:varchar(120);not null;uniqueIndex:uq_identity_name"`
	Embedding []byte          `gorm:"column:embedding;type:bytea;not null"`
	ImagePath *string         `gorm:"column:image_path;type:text"`
	Metadata  json.RawMessage `gorm:"column:metadata;type:jsonb"`
	CreatedAt time.Time       `gorm:"column:created_at"`
	UpdatedAt time.Time       `gorm:"column:updated_at"`
}

func (Identity) TableName() string {
	return "identities"
}
