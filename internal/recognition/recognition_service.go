package recognition

import (
	"context"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/pavankumar-vh/VisionID/internal/facestore"
	"github.com/pavankumar-vh/VisionID/internal/matcher"
	"github.com/pavankumar-vh/VisionID/internal/shared/apperror"
	"github.com/pavankumar-vh/VisionID/internal/shared/contextutil"
	"github.com/pavankumar-vh/VisionID/internal/vision"

	"go.uber.org/zap"
)

// DefaultWorkers bounds bulk fan-out; detection and embedding are the
// expensive external calls, so the pool is sized for them, not for Go.
const DefaultWorkers = 4

//go:generate mockgen -source=recognition_service.go -destination=mock/recognition_service_mock.go -package=mock
type Service interface {
	Recognize(ctx context.Context, image []byte, ref string) (RecognizeResponse, error)
	RecognizeBulk(ctx context.Context, images []BulkImage) (BulkResponse, error)
	History(ctx context.Context, limit int) ([]HistoryEntry, error)
}

type service struct {
	repo      Repository
	store     *facestore.Store
	detector  vision.Detector
	embedder  vision.Embedder
	threshold float64
	workers   int
	logger    *zap.Logger
}

func NewService(
	repo Repository,
	store *facestore.Store,
	detector vision.Detector,
	embedder vision.Embedder,
	threshold float64,
	workers int,
) Service {
	if workers < 1 {
		workers = DefaultWorkers
	}
	return &service{
		repo:      repo,
		store:     store,
		detector:  detector,
		embedder:  embedder,
		threshold: threshold,
		workers:   workers,
		logger:    zap.L().Named("recognition.service"),
	}
}

// Recognize runs detection, embedding, and matching for one image and logs
// one history attempt per detected face. Zero faces is a valid result, not
// an error; only an unreadable image fails the call.
func (s *service) Recognize(ctx context.Context, image []byte, ref string) (RecognizeResponse, error) {
	if len(image) == 0 {
		return RecognizeResponse{}, apperror.ErrInvalidInput
	}

	faces, err := s.detector.Detect(ctx, image)
	if err != nil {
		return RecognizeResponse{}, err
	}

	// One snapshot per recognition call: enrollments or deletions that
	// commit while this scan runs are invisible until the next call.
	snap := s.store.Current()

	results := make([]FaceResult, 0, len(faces))
	for _, face := range faces {
		results = append(results, s.matchFace(ctx, image, face, snap, ref))
	}

	return RecognizeResponse{
		DetectedFaces: len(faces),
		Results:       results,
	}, nil
}

func (s *service) matchFace(ctx context.Context, image []byte, face vision.Face, snap *facestore.Snapshot, ref string) FaceResult {
	result := FaceResult{Box: face.Box}

	log := contextutil.GetLogger(ctx, s.logger)

	vec, err := s.embedder.Embed(ctx, image, face)
	if err != nil {
		log.Warn("embedding failed", zap.Error(err))
		s.logAttempt(ctx, matcher.Result{}, ref)
		return result
	}
	if err := facestore.Normalize(vec); err != nil {
		log.Warn("normalize failed", zap.Error(err))
		s.logAttempt(ctx, matcher.Result{}, ref)
		return result
	}

	match := matcher.Match(vec, snap, s.threshold)
	s.logAttempt(ctx, match, ref)

	if match.Matched {
		id := match.IdentityID.String()
		name := match.Name
		result.Recognized = true
		result.IdentityID = &id
		result.Name = &name
		result.Confidence = match.Similarity
	}
	return result
}

// logAttempt appends the audit row. A failed insert is logged and swallowed;
// history is an audit trail, not a gate on recognition.
func (s *service) logAttempt(ctx context.Context, match matcher.Result, ref string) {
	attempt := &RecognitionAttempt{
		Confidence: match.Similarity,
		Recognized: match.Matched,
		CreatedAt:  time.Now().UTC(),
	}
	if match.Matched {
		id := match.IdentityID
		name := match.Name
		attempt.IdentityID = &id
		attempt.IdentityName = &name
	}
	if ref != "" {
		attempt.ImageRef = &ref
	}

	if err := s.repo.Create(ctx, attempt); err != nil {
		s.logger.Error("recognition history insert failed", zap.Error(err))
	}
}

// RecognizeBulk fans the images out over a fixed-size worker pool with a
// bounded queue. Images are independent: a corrupt one yields a result entry
// with a reason, and a canceled context stops dispatching new images while
// letting started ones finish and be logged.
func (s *service) RecognizeBulk(ctx context.Context, images []BulkImage) (BulkResponse, error) {
	start := time.Now()

	results := make([]BulkImageResult, len(images))
	jobs := make(chan int, s.workers)

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results[idx] = s.processImage(ctx, images[idx])
			}
		}()
	}

	dispatched := make([]bool, len(images))
dispatch:
	for i := range images {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
			dispatched[i] = true
		}
	}
	close(jobs)
	wg.Wait()

	for i := range images {
		if !dispatched[i] {
			results[i] = BulkImageResult{Ref: images[i].Ref, Error: "canceled before processing"}
		}
	}

	resp := BulkResponse{
		TotalImages: len(images),
		ElapsedMs:   time.Since(start).Milliseconds(),
		Images:      results,
	}
	for _, r := range results {
		resp.TotalFaces += r.DetectedFaces
		for _, f := range r.Results {
			if f.Recognized {
				resp.RecognizedCount++
			}
		}
	}

	s.logger.Info("bulk recognition finished",
		zap.String("request_id", contextutil.GetRequestID(ctx)),
		zap.Int("images", resp.TotalImages),
		zap.Int("faces", resp.TotalFaces),
		zap.Int("recognized", resp.RecognizedCount),
		zap.Int64("elapsed_ms", resp.ElapsedMs),
	)
	return resp, nil
}

func (s *service) processImage(ctx context.Context, img BulkImage) BulkImageResult {
	result := BulkImageResult{Ref: img.Ref}

	res, err := s.Recognize(ctx, img.Data, img.Ref)
	if err != nil {
		if appErr, ok := apperror.AsAppError(err); ok {
			result.Error = appErr.Message
		} else {
			result.Error = "image could not be processed"
		}
		return result
	}

	result.DetectedFaces = res.DetectedFaces
	result.Results = res.Results
	return result
}

func (s *service) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit < 1 || limit > 500 {
		limit = 50
	}

	rows, err := s.repo.FindRecent(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]HistoryEntry, len(rows))
	for i, row := range rows {
		entries[i] = mapToHistoryEntry(row)
	}
	return entries, nil
}

// WorkersFromEnv reads RECOGNITION_WORKERS with a sane default.
func WorkersFromEnv() int {
	raw := os.Getenv("RECOGNITION_WORKERS")
	if raw == "" {
		return DefaultWorkers
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 64 {
		return DefaultWorkers
	}
	return n
}
