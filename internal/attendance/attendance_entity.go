package attendance

import (
	"time"

	"github.com/google/uuid"
)

// AttendanceRecord is the deduplicated once-per-day presence marker. The
// composite unique index is the backstop for concurrent marking: two racers
// for the same (identity, day) cannot both insert.
type AttendanceRecord struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	IdentityID     uuid.UUID `gorm:"column:identity_id;type:uuid;not null;uniqueIndex:uq_attendance_identity_date"`
	IdentityName   string    `gorm:"column:identity_name;type:varchar(120);not null"`
	AttendanceDate time.Time `gorm:"column:attendance_date;type:date;not null;uniqueIndex:uq_attendance_identity_date;index"`
	FirstSeenAt    time.Time `gorm:"column:first_seen_at;type:timestamptz;not null"`
	Status         string    `gorm:"column:status;type:varchar(20);not null;default:present"`
	Confidence     float64   `gorm:"column:confidence;not null"`
	ImageRef       *string   `gorm:"column:image_ref;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (AttendanceRecord) TableName() string {
	return "attendance_records"
}

const StatusPresent = "present"
