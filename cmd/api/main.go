package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/trailhq/trail-api/api/swagger"
	"github.com/trailhq/trail-api/internal/handler"
	"github.com/trailhq/trail-api/internal/middleware"
	"github.com/trailhq/trail-api/internal/models"
	"github.com/trailhq/trail-api/internal/repository"
	"github.com/trailhq/trail-api/internal/service"
	"github.com/trailhq/trail-api/pkg/cache"
	"github.com/trailhq/trail-api/pkg/config"
	"github.com/trailhq/trail-api/pkg/database"
	"github.com/trailhq/trail-api/pkg/logger"
	corsmiddleware "github.com/trailhq/trail-api/pkg/middleware/cors"
	reqidmiddleware "github.com/trailhq/trail-api/pkg/middleware/requestid"
)

// @title Trail Attendance API
// @version 1.0.0
// @description RFID attendance tracking for schools: scan ingest, dashboards and exports
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	// The dashboard works without Redis, it just recomputes on every read.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, dashboard caching disabled", zap.Error(err))
		redisClient = nil
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	r := buildRouter(cfg, logr, db, service.NewMetricsService(), cacheRepo)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func buildRouter(cfg *config.Config, logr *zap.Logger, db *sqlx.DB, metrics *service.MetricsService, cacheRepo service.CacheRepository) *gin.Engine {
	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	userRepo := repository.NewUserRepository(db)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.CacheEnabled)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
	})
	attendanceSvc := service.NewAttendanceService(service.AttendanceServiceParams{
		Students:    studentRepo,
		Events:      attendanceRepo,
		Cache:       cacheSvc,
		Metrics:     metrics,
		Logger:      logr,
		RecentLimit: cfg.Scans.RecentLimit,
	})
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Students: studentRepo,
		Events:   attendanceRepo,
		Cache:    cacheSvc,
		Logger:   logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:        cfg.Dashboard.CacheTTL,
			LeaderboardSize: cfg.Dashboard.LeaderboardSize,
		},
	})
	exportSvc := service.NewExportService(studentRepo, attendanceRepo, logr, nil, nil)
	studentSvc := service.NewStudentService(studentRepo, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Scanner firmware posts here without credentials.
	r.POST("/api/attendance", attendanceHandler.Scan)

	auth := r.Group("/api/v1/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/reset-password", authHandler.ResetPassword)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	}

	admin := r.Group("/api/v1")
	admin.Use(middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin), middleware.WithResponseMeta())
	{
		admin.GET("/dashboard", dashboardHandler.Overview)
		admin.GET("/attendance/recent", attendanceHandler.Recent)
		admin.GET("/students", studentHandler.List)
		admin.GET("/students/:id", studentHandler.Get)
		admin.GET("/export/attendance.csv", exportHandler.AttendanceCSV)
		admin.GET("/export/attendance.pdf", exportHandler.AttendancePDF)
	}

	return r
}
