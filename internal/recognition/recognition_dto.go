package recognition

import (
	"time"

	"github.com/pavankumar-vh/VisionID/internal/vision"
)

// FaceResult is one face in a processed image.
type FaceResult struct {
	Box        vision.Box `json:"box"`
	Recognized bool       `json:"recognized"`
	IdentityID *string    `json:"identity_id,omitempty"`
	Name       *string    `json:"name,omitempty"`
	Confidence float64    `json:"confidence"`
}

type RecognizeResponse struct {
	DetectedFaces int          `json:"detected_faces"`
	Results       []FaceResult `json:"recognitions"`
}

// BulkImage is one submitted image in a bulk request.
type BulkImage struct {
	Ref  string
	Data []byte
}

// BulkImageResult is independent per image: a failed image carries a reason
// and zero faces without affecting its siblings.
type BulkImageResult struct {
	Ref           string       `json:"ref"`
	DetectedFaces int          `json:"detected_faces"`
	Results       []FaceResult `json:"recognitions,omitempty"`
	Error         string       `json:"error,omitempty"`
}

type BulkResponse struct {
	TotalImages     int               `json:"total_images"`
	TotalFaces      int               `json:"total_faces"`
	RecognizedCount int               `json:"recognized_count"`
	ElapsedMs       int64             `json:"elapsed_ms"`
	Images          []BulkImageResult `json:"images"`
}

type HistoryEntry struct {
	ID           int64   `json:"id"`
	IdentityID   *string `json:"identity_id,omitempty"`
	IdentityName *string `json:"identity_name,omitempty"`
	Confidence   float64 `json:"confidence"`
	Recognized   bool    `json:"recognized"`
	ImageRef     *string `json:"image_ref,omitempty"`
	Timestamp    string  `json:"timestamp"`
}

func mapToHistoryEntry(a RecognitionAttempt) HistoryEntry {
	entry := HistoryEntry{
		ID:         a.ID,
		Confidence: a.Confidence,
		Recognized: a.Recognized,
		ImageRef:   a.ImageRef,
		Timestamp:  a.CreatedAt.Format(time.RFC3339),
	}
	if a.IdentityID != nil {
		id := a.IdentityID.String()
		entry.IdentityID = &id
	}
	entry.IdentityName = a.IdentityName
	return entry
}
