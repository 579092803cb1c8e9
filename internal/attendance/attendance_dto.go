package attendance

import (
	"time"

	"github.com/pavankumar-vh/VisionID/internal/recognition"
)

const (
	MarkStatusMarked        = "marked"
	MarkStatusAlreadyMarked = "already_marked"
	MarkStatusFailed        = "failed"
)

// MarkEntry is one recognized identity in a mark-attendance call.
type MarkEntry struct {
	IdentityID string  `json:"identity_id"`
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
}

type MarkResponse struct {
	DetectedFaces int         `json:"detected_faces"`
	UnknownFaces  int         `json:"unknown_faces"`
	Records       []MarkEntry `json:"records"`
}

type RecordResponse struct {
	ID         string  `json:"id"`
	IdentityID string  `json:"identity_id"`
	Name       string  `json:"name"`
	Date       string  `json:"date"`
	FirstSeen  string  `json:"first_seen"`
	Status     string  `json:"status"`
	Confidence float64 `json:"confidence"`
	ImageRef   *string `json:"image_ref,omitempty"`
}

type TodayResponse struct {
	Date         string           `json:"date"`
	TotalPresent int              `json:"total_present"`
	Records      []RecordResponse `json:"records"`
}

// IdentityReport aggregates one identity over a report range.
type IdentityReport struct {
	IdentityID     string  `json:"identity_id"`
	Name           string  `json:"name"`
	PresentDays    int     `json:"present_days"`
	AbsentDays     int     `json:"absent_days"`
	AttendanceRate float64 `json:"attendance_rate"`
}

type ReportResponse struct {
	StartDate   string           `json:"start_date"`
	EndDate     string           `json:"end_date"`
	TotalDays   int              `json:"total_days"`
	Records     []RecordResponse `json:"records"`
	PerIdentity []IdentityReport `json:"per_identity"`
	OverallRate float64          `json:"overall_rate"`
}

type StatisticsResponse struct {
	TotalRegistered int64                       `json:"total_registered"`
	TodayPresent    int64                       `json:"today_present"`
	TodayAbsent     int64                       `json:"today_absent"`
	OverallRate     float64                     `json:"overall_rate"`
	RecentActivity  []recognition.HistoryEntry  `json:"recent_activity"`
}

func mapToRecordResponse(rec AttendanceRecord) RecordResponse {
	return RecordResponse{
		ID:         rec.ID.String(),
		IdentityID: rec.IdentityID.String(),
		Name:       rec.IdentityName,
		Date:       rec.AttendanceDate.Format(dateLayout),
		FirstSeen:  rec.FirstSeenAt.Format(time.RFC3339),
		Status:     rec.Status,
		Confidence: rec.Confidence,
		ImageRef:   rec.ImageRef,
	}
}
