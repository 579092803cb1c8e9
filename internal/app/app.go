package app

import (
	"context"
	"os"

	"github.com/pavankumar-vh/VisionID/internal/attendance"
	"github.com/pavankumar-vh/VisionID/internal/identity"
	"github.com/pavankumar-vh/VisionID/internal/middleware"
	"github.com/pavankumar-vh/VisionID/internal/recognition"
	"github.com/pavankumar-vh/VisionID/internal/shared/connection"
	"github.com/pavankumar-vh/VisionID/internal/vision"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BuildApp connects the infrastructure, warms the face snapshot, and wires
// every module onto the router. The returned teardown releases connections
// and the vision client; the server calls it after graceful shutdown.
func BuildApp(router *gin.Engine) (func(), error) {
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
		return nil, err
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, err
	}

	if err := gormDB.AutoMigrate(
		&identity.Identity{},
		&recognition.RecognitionAttempt{},
		&attendance.AttendanceRecord{},
	); err != nil {
		return nil, err
	}

	redisClient, err := connection.ConnectRedisWithRetry(os.Getenv("REDIS_ADDR"), 5)
	if err != nil {
		return nil, err
	}

	// The detection/embedding models live behind one long-lived client,
	// initialized here and injected everywhere (never looked up globally).
	visionClient := vision.NewClient(os.Getenv("INFERENCE_URL"))

	router.Use(middleware.RequestID())
	router.Use(cors.Default())

	if err := registerModules(router, sqlDB, gormDB, redisClient, visionClient); err != nil {
		return nil, err
	}

	teardown := func() {
		visionClient.Close()
		if err := redisClient.Close(); err != nil {
			zap.L().Warn("redis close failed", zap.Error(err))
		}
		if err := sqlDB.Close(); err != nil {
			zap.L().Warn("db close failed", zap.Error(err))
		}
	}
	return teardown, nil
}

// warmSnapshot loads the enrolled embeddings before the server accepts
// traffic so the first recognition call does not scan an empty store.
func warmSnapshot(store interface {
	Reload(ctx context.Context) error
}) {
	if err := store.Reload(context.Background()); err != nil {
		zap.L().Error("initial snapshot load failed", zap.Error(err))
	}
}
