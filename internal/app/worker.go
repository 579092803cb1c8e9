package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pavankumar-vh/VisionID/internal/attendance"
	"github.com/pavankumar-vh/VisionID/internal/bootstrap"
	"github.com/pavankumar-vh/VisionID/internal/identity"
	"github.com/pavankumar-vh/VisionID/internal/messaging/kafka"
	"github.com/pavankumar-vh/VisionID/internal/messaging/kafka/producer"
	"github.com/pavankumar-vh/VisionID/internal/shared/connection"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// RunWorker runs the background process: the outbox publisher that drains
// attendance events to Kafka, and a scheduled end-of-day attendance summary.
// It blocks until SIGINT/SIGTERM.
func RunWorker() error {
	gormDB, err := connection.ConnectGORMWithRetry(
		os.Getenv("DB_HOST"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_SSLMODE"),
		5,
	)
	if err != nil {
		return err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	writer, err := connection.ConnectKafkaWithRetry(os.Getenv("KAFKA_BROKER"), 5)
	if err != nil {
		return err
	}
	defer writer.Close()

	outboxRepo := kafka.NewOutboxRepository(sqlDB)
	attendanceRepo := attendance.NewRepository(gormDB)
	identityRepo := identity.NewRepository(gormDB)
	auditLogger := bootstrap.NewStdoutAuditLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go producer.ProcessOutboxEvents(ctx, outboxRepo, writer, zap.L(), 3*time.Second)

	scheduler := gocron.NewScheduler(time.Local)
	summaryAt := os.Getenv("ATTENDANCE_SUMMARY_AT")
	if summaryAt == "" {
		summaryAt = "23:55"
	}
	if _, err := scheduler.Every(1).Day().At(summaryAt).Do(func() {
		logDailySummary(ctx, attendanceRepo, identityRepo, auditLogger)
	}); err != nil {
		return err
	}
	scheduler.StartAsync()
	defer scheduler.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	zap.L().Info("worker shutting down", zap.String("signal", sig.String()))
	return nil
}

// logDailySummary emits one audit line with today's headcount so attendance
// coverage is visible without querying the API.
func logDailySummary(
	ctx context.Context,
	attendanceRepo attendance.Repository,
	identityRepo identity.Repository,
	auditLogger bootstrap.AuditLogger,
) {
	today := time.Now()

	present, err := attendanceRepo.CountByDate(ctx, today)
	if err != nil {
		zap.L().Error("daily summary: count present failed", zap.Error(err))
		return
	}
	registered, err := identityRepo.Count(ctx)
	if err != nil {
		zap.L().Error("daily summary: count registered failed", zap.Error(err))
		return
	}

	absent := registered - present
	if absent < 0 {
		absent = 0
	}

	auditLogger.Log(ctx, bootstrap.AuditLog{
		Action:  "ATTENDANCE_DAILY_SUMMARY",
		Message: "End of day attendance summary",
		Meta: map[string]any{
			"date":       today.Format("2006-01-02"),
			"registered": registered,
			"present":    present,
			"absent":     absent,
		},
	})
}
