package main

import (
	"alcyxob/fitness-coach/internal/api"
	"alcyxob/fitness-coach/internal/config"
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/metrics"
	"alcyxob/fitness-coach/internal/oracle"
	"alcyxob/fitness-coach/internal/repository/mongo"
	"alcyxob/fitness-coach/internal/service"
	"alcyxob/fitness-coach/internal/session"
	"alcyxob/fitness-coach/internal/storage"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

// @title Fitness Coach API
// @version 1.0
// @description Consultation chat with an AI fitness coach and generated workout plans.
// @host localhost:5001
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("FATAL: Could not load config: %v", err)
	}

	appLog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("FATAL: Could not build logger: %v", err)
	}
	defer appLog.Sync()
	appLog.Info("Starting Fitness Coach server", "address", cfg.Server.Address, "sessionStore", cfg.Session.Store)

	if err := run(cfg, appLog); err != nil {
		appLog.Fatal("server stopped with error", "error", err)
	}
	appLog.Info("Server exiting.")
}

func run(cfg config.Config, appLog *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database Connection ---
	dbClient, err := mongo.ConnectDB(cfg.Database.URI)
	if err != nil {
		return fmt.Errorf("connect to MongoDB: %w", err)
	}
	defer func() {
		appLog.Info("Disconnecting MongoDB...")
		if err := mongo.DisconnectDB(dbClient); err != nil {
			appLog.Error("Failed to disconnect MongoDB", "error", err)
		}
	}()
	appDB := dbClient.Database(cfg.Database.Name)

	// --- Ensure Indexes ---
	go func() {
		idxCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := mongo.EnsureIndexes(idxCtx, appDB); err != nil {
			appLog.Warn("Index creation finished with errors", "error", err)
			return
		}
		appLog.Info("Index creation process completed.")
	}()

	// --- Plan Archive (optional) ---
	var archive storage.FileStorage
	if cfg.S3.BucketName != "" {
		archive, err = storage.NewS3Storage(ctx, cfg.S3, appLog)
		if err != nil {
			return fmt.Errorf("initialize plan archive: %w", err)
		}
	} else {
		appLog.Info("Plan archive disabled: s3.bucket_name is empty")
	}

	// --- Session Store ---
	var sessions session.Store
	switch strings.ToLower(cfg.Session.Store) {
	case "redis":
		rdb, err := session.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect to Redis: %w", err)
		}
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, cfg.Session.TTL, cfg.OpenAI.Timeout)
	case "", "memory":
		sessions = session.NewMemoryStore(cfg.Session.TTL)
	default:
		return fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}

	// --- Generation Oracle ---
	coach, err := oracle.NewOpenAI(cfg.OpenAI, nil)
	if err != nil {
		return fmt.Errorf("initialize oracle: %w", err)
	}

	m := metrics.New()

	// --- Initialize Repositories ---
	userRepo := mongo.NewMongoUserRepository(appDB)
	profileRepo := mongo.NewMongoProfileRepository(appDB)
	planRepo := mongo.NewMongoPlanRepository(appDB)
	exerciseRepo := mongo.NewMongoExerciseRepository(appDB)

	// --- Initialize Services ---
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	profileService := service.NewProfileService(profileRepo)
	exerciseService := service.NewExerciseService(exerciseRepo)
	planService := service.NewPlanService(coach, planRepo, archive, appLog, m, service.PlanOptions{
		OracleTimeout: cfg.OpenAI.Timeout,
		Location:      cfg.Plan.Location(),
		PresignExpiry: cfg.S3.PresignExpiry,
	})
	consultationService := service.NewConsultationService(coach, profileRepo, sessions, planService, appLog, m, service.ConsultationOptions{
		OracleTimeout: cfg.OpenAI.Timeout,
	})

	// --- Initialize Gin Engine ---
	gin.SetMode(cfg.Server.Mode)
	router, err := api.NewRouter(cfg.Server.TrustedProxies)
	if err != nil {
		return err
	}

	api.SetupRoutes(router, api.RouterDeps{
		JWTSecret:           cfg.JWT.Secret,
		CORSOrigins:         cfg.Server.CORSOrigins,
		RateLimitPerMinute:  cfg.Server.RateLimitPerMinute,
		AuthService:         authService,
		ProfileService:      profileService,
		ConsultationService: consultationService,
		PlanService:         planService,
		ExerciseService:     exerciseService,
		Logger:              appLog,
		Metrics:             m,
	})

	// --- Start HTTP Server ---
	// WriteTimeout leaves room for one oracle call per request.
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.OpenAI.Timeout + 15*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		appLog.Info("Server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// --- Graceful Shutdown ---
	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	appLog.Info("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
