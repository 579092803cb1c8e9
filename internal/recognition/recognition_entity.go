package recognition

import (
	"time"

	"github.com/google/uuid"
)

// RecognitionAttempt is one audit row per detected face, matched or not.
// The table is append-only; rows are never updated or deleted.
type RecognitionAttempt struct {
	ID           int64      `gorm:"column:id;primaryKey;autoIncrement"`
	IdentityID   *uuid.UUID `gorm:"column:identity_id;type:uuid;index"`
	IdentityName *string    `gorm:"column:identity_name;type:varchar(120)"`
	Confidence   float64    `gorm:"column:confidence;not null"`
	Recognized   bool       `gorm:"column:recognized;not null"`
	ImageRef     *string    `gorm:"column:image_ref;type:text"`
	CreatedAt    time.Time  `gorm:"column:created_at;index"`
}

func (RecognitionAttempt) TableName() string {
	return "recognition_history"
}
