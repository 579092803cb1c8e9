package app

import (
	"database/sql"

	"github.com/pavankumar-vh/VisionID/internal/attendance"
	"github.com/pavankumar-vh/VisionID/internal/facestore"
	"github.com/pavankumar-vh/VisionID/internal/identity"
	"github.com/pavankumar-vh/VisionID/internal/matcher"
	"github.com/pavankumar-vh/VisionID/internal/messaging/kafka"
	"github.com/pavankumar-vh/VisionID/internal/middleware"
	"github.com/pavankumar-vh/VisionID/internal/recognition"
	"github.com/pavankumar-vh/VisionID/internal/vision"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	visionClient *vision.Client,
) error {
	// --- Repositories ---
	identityRepo := identity.NewRepository(gormDB)
	recognitionRepo := recognition.NewRepository(gormDB)
	attendanceRepo := attendance.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- Face store ---
	store := facestore.New(identity.NewSnapshotLoader(identityRepo))
	warmSnapshot(store)

	// --- Services ---
	identityService := identity.NewService(db, identityRepo, store, visionClient, visionClient)
	recognitionService := recognition.NewService(
		recognitionRepo,
		store,
		visionClient,
		visionClient,
		matcher.ThresholdFromEnv(),
		recognition.WorkersFromEnv(),
	)
	attendanceService := attendance.NewServiceWithOutbox(
		db,
		attendanceRepo,
		recognitionService,
		identityRepo,
		outboxRepo,
	)

	// --- Handlers ---
	identityHandler := identity.NewHandler(identityService)
	recognitionHandler := recognition.NewHandler(recognitionService)
	attendanceHandler := attendance.NewHandlerWithRedis(attendanceService, rdb)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		identity.RegisterRoutes(api, identityHandler)
		recognition.RegisterRoutes(api, recognitionHandler, middleware.RateLimitByIP(5, 10))
		attendance.RegisterRoutes(api, attendanceHandler, rdb)
	}

	return nil
}
