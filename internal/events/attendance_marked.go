package events

import "time"

const AttendanceMarkedTopic = "attendance.presence.v1"

type AttendanceMarkedEvent struct {
	EventType    string    `json:"event_type"`
	IdentityID   string    `json:"identity_id"`
	IdentityName string    `json:"identity_name"`
	Date         string    `json:"date"`
	Confidence   float64   `json:"confidence"`
	OccurredAt   time.Time `json:"occurred_at"`
}
