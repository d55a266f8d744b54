package api

import (
	"alcyxob/fitness-coach/internal/logger"
	"alcyxob/fitness-coach/internal/metrics"
	"alcyxob/fitness-coach/internal/service"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouterDeps is everything SetupRoutes wires into the router.
type RouterDeps struct {
	JWTSecret          string
	CORSOrigins        []string
	RateLimitPerMinute int

	AuthService         service.AuthService
	ProfileService      service.ProfileService
	ConsultationService service.ConsultationService
	PlanService         service.PlanService
	ExerciseService     service.ExerciseService

	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// NewRouter returns a bare engine with panic recovery. Only the listed
// proxies may set the client IP through forwarding headers.
func NewRouter(trustedProxies []string) (*gin.Engine, error) {
	router := gin.New()
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	router.Use(gin.Recovery())
	return router, nil
}

func SetupRoutes(router *gin.Engine, deps RouterDeps) {
	authHandler := NewAuthHandler(deps.AuthService, deps.ProfileService)
	profileHandler := NewProfileHandler(deps.ProfileService)
	consultationHandler := NewConsultationHandler(deps.ConsultationService, deps.PlanService, deps.Logger)
	planHandler := NewPlanHandler(deps.PlanService)
	exerciseHandler := NewExerciseHandler(deps.ExerciseService)

	router.Use(
		RequestID(),
		RequestLogger(deps.Logger),
		MetricsMiddleware(deps.Metrics),
		SecurityHeaders(),
		CORSMiddleware(deps.CORSOrigins),
		RateLimitMiddleware(deps.RateLimitPerMinute),
	)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// Stateless endpoints of the web client. A bearer token is optional and
	// only decides whether a generated plan is saved.
	optionalAuth := OptionalAuthMiddleware(deps.JWTSecret)
	router.POST("/consultation", consultationHandler.Consult)
	router.POST("/generate-workout-plan", optionalAuth, consultationHandler.GenerateWorkoutPlan)

	apiV1 := router.Group("/api/v1")
	{
		authGroup := apiV1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
		}
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(deps.JWTSecret))
	{
		protected.GET("/me", authHandler.Me)

		protected.GET("/profile", profileHandler.GetProfile)
		protected.PUT("/profile", profileHandler.PutProfile)

		sessionGroup := protected.Group("/consultation/session")
		{
			sessionGroup.POST("", consultationHandler.StartSession)
			sessionGroup.GET("", consultationHandler.GetSession)
			sessionGroup.DELETE("", consultationHandler.AbandonSession)
			sessionGroup.POST("/turns", consultationHandler.PostTurn)
			sessionGroup.POST("/finalize", consultationHandler.FinalizeSession)
		}

		planGroup := protected.Group("/plans")
		{
			planGroup.GET("", planHandler.ListPlans)
			planGroup.GET("/:date", planHandler.GetPlanByDate)
			planGroup.GET("/:date/download", planHandler.DownloadPlan)
		}

		protected.GET("/exercises", exerciseHandler.GetExercises)
	}
}
