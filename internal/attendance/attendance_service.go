package attendance

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/pavankumar-vh/VisionID/internal/events"
	"github.com/pavankumar-vh/VisionID/internal/identity"
	"github.com/pavankumar-vh/VisionID/internal/messaging/kafka"
	"github.com/pavankumar-vh/VisionID/internal/recognition"
	"github.com/pavankumar-vh/VisionID/internal/shared/apperror"
	"github.com/pavankumar-vh/VisionID/internal/shared/contextutil"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:generate mockgen -source=attendance_service.go -destination=mock/attendance_service_mock.go -package=mock
type Service interface {
	Mark(ctx context.Context, image []byte, ref string) (MarkResponse, error)
	Today(ctx context.Context) (TodayResponse, error)
	Report(ctx context.Context, start, end time.Time, identityID string) (ReportResponse, error)
	UserHistory(ctx context.Context, identityID string, limit int) ([]RecordResponse, error)
	Statistics(ctx context.Context) (StatisticsResponse, error)
}

type service struct {
	db         *sql.DB
	repo       Repository
	recognizer recognition.Service
	identities identity.Repository
	outbox     kafka.OutboxRepository
	locks      *keyedMutex

	// updateConfidence controls whether a later same-day recognition with a
	// higher confidence overwrites the stored confidence. Attendance state
	// never regresses either way.
	updateConfidence bool

	logger *zap.Logger
}

func NewService(
	db *sql.DB,
	repo Repository,
	recognizer recognition.Service,
	identities identity.Repository,
) Service {
	return NewServiceWithOutbox(db, repo, recognizer, identities, nil)
}

func NewServiceWithOutbox(
	db *sql.DB,
	repo Repository,
	recognizer recognition.Service,
	identities identity.Repository,
	outboxRepo kafka.OutboxRepository,
) Service {
	return &service{
		db:               db,
		repo:             repo,
		recognizer:       recognizer,
		identities:       identities,
		outbox:           outboxRepo,
		locks:            newKeyedMutex(),
		updateConfidence: envBool("ATTENDANCE_UPDATE_CONFIDENCE"),
		logger:           zap.L().Named("attendance.service"),
	}
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

// Mark recognizes every face in the image and records attendance for each
// recognized identity, at most once per calendar day. Unknown faces count
// toward the face total but never create a record. A storage failure for one
// identity is contained to that entry.
func (s *service) Mark(ctx context.Context, image []byte, ref string) (MarkResponse, error) {
	rid := contextutil.GetRequestID(ctx)

	recog, err := s.recognizer.Recognize(ctx, image, ref)
	if err != nil {
		return MarkResponse{}, err
	}

	resp := MarkResponse{
		DetectedFaces: recog.DetectedFaces,
		Records:       make([]MarkEntry, 0, len(recog.Results)),
	}

	now := time.Now().UTC()
	today := now.Truncate(24 * time.Hour)

	for _, face := range recog.Results {
		if !face.Recognized {
			resp.UnknownFaces++
			continue
		}

		entry := MarkEntry{
			IdentityID: *face.IdentityID,
			Name:       *face.Name,
			Confidence: face.Confidence,
		}

		status, err := s.markOne(ctx, *face.IdentityID, *face.Name, face.Confidence, ref, today, now)
		if err != nil {
			s.logger.Error("mark attendance failed",
				zap.String("request_id", rid),
				zap.String("identity_id", entry.IdentityID),
				zap.Error(err),
			)
			entry.Status = MarkStatusFailed
		} else {
			entry.Status = status
		}
		resp.Records = append(resp.Records, entry)
	}

	return resp, nil
}

// markOne performs the per-(identity, day) critical section: keyed lock
// around find-then-create, with the unique constraint closing any remaining
// race. A duplicate insert is a benign "already marked", never an error.
func (s *service) markOne(
	ctx context.Context,
	identityID, name string,
	confidence float64,
	ref string,
	day, now time.Time,
) (string, error) {
	unlock := s.locks.Lock(identityID + "|" + day.Format(dateLayout))
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	existing, err := qtx.FindByIdentityAndDate(ctx, identityID, day)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}
	if err == nil {
		if s.updateConfidence && confidence > existing.Confidence {
			if err := qtx.UpdateConfidence(ctx, existing.ID.String(), confidence); err != nil {
				return "", err
			}
		}
		if err := tx.Commit(); err != nil {
			return "", err
		}
		return MarkStatusAlreadyMarked, nil
	}

	rec := &AttendanceRecord{
		ID:             uuid.New(),
		IdentityID:     uuid.MustParse(identityID),
		IdentityName:   name,
		AttendanceDate: day,
		FirstSeenAt:    now,
		Status:         StatusPresent,
		Confidence:     confidence,
		CreatedAt:      now,
	}
	if ref != "" {
		rec.ImageRef = &ref
	}

	if err := qtx.Create(ctx, rec); err != nil {
		if isAttendanceDuplicate(err) {
			return MarkStatusAlreadyMarked, nil
		}
		return "", err
	}

	if s.outbox != nil {
		if err := s.writeOutboxEvent(ctx, tx, rec); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		if isAttendanceDuplicate(err) {
			return MarkStatusAlreadyMarked, nil
		}
		return "", err
	}
	return MarkStatusMarked, nil
}

func (s *service) writeOutboxEvent(ctx context.Context, tx *sql.Tx, rec *AttendanceRecord) error {
	payload, err := json.Marshal(events.AttendanceMarkedEvent{
		EventType:    "attendance.marked",
		IdentityID:   rec.IdentityID.String(),
		IdentityName: rec.IdentityName,
		Date:         rec.AttendanceDate.Format(dateLayout),
		Confidence:   rec.Confidence,
		OccurredAt:   rec.FirstSeenAt,
	})
	if err != nil {
		return err
	}

	return s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     contextutil.GetRequestID(ctx),
		AggregateType: "attendance",
		AggregateID:   rec.IdentityID.String(),
		EventType:     "attendance.marked",
		Topic:         events.AttendanceMarkedTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	})
}

func isAttendanceDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == "uq_attendance_identity_date"
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key value") && strings.Contains(msg, "uq_attendance_identity_date")
}

func (s *service) Today(ctx context.Context) (TodayResponse, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	rows, err := s.repo.FindAllByDate(ctx, today)
	if err != nil {
		return TodayResponse{}, err
	}

	resp := TodayResponse{
		Date:         today.Format(dateLayout),
		TotalPresent: len(rows),
		Records:      make([]RecordResponse, len(rows)),
	}
	for i, row := range rows {
		resp.Records[i] = mapToRecordResponse(row)
	}
	return resp, nil
}

// Report aggregates the inclusive [start, end] range. Per identity:
// present_days, absent_days = total_days - present_days, and
// attendance_rate = present_days / total_days * 100 rounded to 2 decimals.
func (s *service) Report(ctx context.Context, start, end time.Time, identityID string) (ReportResponse, error) {
	start = start.Truncate(24 * time.Hour)
	end = end.Truncate(24 * time.Hour)
	if end.Before(start) {
		return ReportResponse{}, apperror.New(apperror.CodeInvalidInput, "End date is before start date", http.StatusBadRequest)
	}
	if identityID != "" {
		if _, err := uuid.Parse(identityID); err != nil {
			return ReportResponse{}, apperror.InvalidField("Identity")
		}
	}

	totalDays := int(end.Sub(start).Hours()/24) + 1

	rows, err := s.repo.FindRange(ctx, start, end, identityID)
	if err != nil {
		return ReportResponse{}, err
	}

	resp := ReportResponse{
		StartDate: start.Format(dateLayout),
		EndDate:   end.Format(dateLayout),
		TotalDays: totalDays,
		Records:   make([]RecordResponse, len(rows)),
	}

	type acc struct {
		name string
		days int
	}
	perIdentity := make(map[string]*acc)
	order := make([]string, 0)

	for i, row := range rows {
		resp.Records[i] = mapToRecordResponse(row)

		id := row.IdentityID.String()
		a, ok := perIdentity[id]
		if !ok {
			a = &acc{name: row.IdentityName}
			perIdentity[id] = a
			order = append(order, id)
		}
		a.days++ // one record per (identity, date) by construction
	}

	totalPresent := 0
	for _, id := range order {
		a := perIdentity[id]
		totalPresent += a.days
		resp.PerIdentity = append(resp.PerIdentity, IdentityReport{
			IdentityID:     id,
			Name:           a.name,
			PresentDays:    a.days,
			AbsentDays:     totalDays - a.days,
			AttendanceRate: round2(float64(a.days) / float64(totalDays) * 100),
		})
	}

	if len(order) > 0 {
		resp.OverallRate = round2(float64(totalPresent) / float64(totalDays*len(order)) * 100)
	}
	return resp, nil
}

func (s *service) UserHistory(ctx context.Context, identityID string, limit int) ([]RecordResponse, error) {
	if _, err := uuid.Parse(identityID); err != nil {
		return nil, apperror.InvalidField("Identity")
	}
	if limit < 1 || limit > 365 {
		limit = 30
	}

	rows, err := s.repo.FindByIdentity(ctx, identityID, limit)
	if err != nil {
		return nil, err
	}

	res := make([]RecordResponse, len(rows))
	for i, row := range rows {
		res[i] = mapToRecordResponse(row)
	}
	return res, nil
}

func (s *service) Statistics(ctx context.Context) (StatisticsResponse, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	totalRegistered, err := s.identities.Count(ctx)
	if err != nil {
		return StatisticsResponse{}, err
	}
	todayPresent, err := s.repo.CountByDate(ctx, today)
	if err != nil {
		return StatisticsResponse{}, err
	}

	resp := StatisticsResponse{
		TotalRegistered: totalRegistered,
		TodayPresent:    todayPresent,
	}
	if totalRegistered > todayPresent {
		resp.TodayAbsent = totalRegistered - todayPresent
	}

	// Overall rate: recorded present-days over the identity-day grid of
	// every day that has at least one record.
	totalRecords, err := s.repo.CountAll(ctx)
	if err != nil {
		return StatisticsResponse{}, err
	}
	activeDays, err := s.repo.CountDistinctDates(ctx)
	if err != nil {
		return StatisticsResponse{}, err
	}
	if totalRegistered > 0 && activeDays > 0 {
		resp.OverallRate = round2(float64(totalRecords) / float64(totalRegistered*activeDays) * 100)
	}

	recent, err := s.recognizer.History(ctx, 10)
	if err != nil {
		return StatisticsResponse{}, err
	}
	resp.RecentActivity = recent

	return resp, nil
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
