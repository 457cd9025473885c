package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/velocity-vultures/pms-api/api/swagger"
	"github.com/velocity-vultures/pms-api/internal/handler"
	"github.com/velocity-vultures/pms-api/internal/middleware"
	"github.com/velocity-vultures/pms-api/internal/repository"
	"github.com/velocity-vultures/pms-api/internal/service"
	"github.com/velocity-vultures/pms-api/pkg/cache"
	"github.com/velocity-vultures/pms-api/pkg/config"
	"github.com/velocity-vultures/pms-api/pkg/database"
	"github.com/velocity-vultures/pms-api/pkg/logger"
	corsmiddleware "github.com/velocity-vultures/pms-api/pkg/middleware/cors"
	reqidmiddleware "github.com/velocity-vultures/pms-api/pkg/middleware/requestid"
)

// @title Capstone PMS API
// @version 1.0.0
// @description Project, allocation and presentation scheduling API for capstone programmes
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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
	defer db.Close()

	if cfg.Database.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		if err := database.Migrate(ctx, db); err != nil {
			cancel()
			logr.Sugar().Fatalw("failed to run migrations", "error", err)
		}
		cancel()
	}

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		} else {
			cacheRepo := repository.NewCacheRepository(redisClient, logr)
			cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Cache.TTL, logr, true)
			defer cacheRepo.Close()
		}
	}

	validate := validator.New()

	projectRepo := repository.NewProjectRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	supervisorRepo := repository.NewSupervisorRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	slotRepo := repository.NewPresentationSlotRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	ownerRepo := repository.NewOwnerRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "pms-api",
		Audience:           []string{"pms"},
	})
	availabilitySvc := service.NewAvailabilityService(availabilityRepo, ownerRepo, logr)
	allocationSvc := service.NewAllocationService(allocationRepo, projectRepo, studentRepo, supervisorRepo, slotRepo, db, validate, logr, metricsSvc)
	presentationSvc := service.NewPresentationService(slotRepo, allocationRepo, projectRepo, roomRepo, availabilitySvc, db, cacheSvc, validate, logr, metricsSvc)
	projectSvc := service.NewProjectService(projectRepo, allocationRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, availabilitySvc, validate, logr)
	supervisorSvc := service.NewSupervisorService(supervisorRepo, allocationRepo, availabilitySvc, validate, logr)
	roomSvc := service.NewRoomService(roomRepo, slotRepo, availabilitySvc, validate, logr)
	exportSvc := service.NewExportService(slotRepo, nil, nil, logr, cfg.Exports.Enabled)

	authHandler := handler.NewAuthHandler(authSvc)
	projectHandler := handler.NewProjectHandler(projectSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	supervisorHandler := handler.NewSupervisorHandler(supervisorSvc)
	roomHandler := handler.NewRoomHandler(roomSvc)
	allocationHandler := handler.NewAllocationHandler(allocationSvc)
	presentationHandler := handler.NewPresentationHandler(presentationSvc)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	exportHandler := handler.NewExportHandler(exportSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	projects := protected.Group("/projects")
	projects.GET("", projectHandler.List)
	projects.POST("", projectHandler.Create)
	projects.GET("/:projectId", projectHandler.Get)
	projects.PUT("/:projectId", projectHandler.Update)
	projects.DELETE("/:projectId", projectHandler.Delete)
	projects.POST("/:projectId/archive", projectHandler.Archive)

	projects.GET("/:projectId/allocation", allocationHandler.Get)
	projects.POST("/:projectId/allocation", allocationHandler.BindSupervisor)
	projects.DELETE("/:projectId/allocation", allocationHandler.UnbindSupervisor)
	projects.POST("/:projectId/allocation/students", allocationHandler.AssignStudent)
	projects.DELETE("/:projectId/allocation/students/:studentId", allocationHandler.UnassignStudent)

	projects.GET("/:projectId/presentation", presentationHandler.Get)
	projects.PUT("/:projectId/presentation", presentationHandler.Assign)
	projects.DELETE("/:projectId/presentation", presentationHandler.Unassign)
	projects.GET("/:projectId/presentation/slots", presentationHandler.AvailableSlots)

	students := protected.Group("/students")
	students.GET("", studentHandler.List)
	students.POST("", studentHandler.Create)
	students.GET("/:id", studentHandler.Get)
	students.PUT("/:id", studentHandler.Update)
	students.DELETE("/:id", studentHandler.Delete)

	supervisors := protected.Group("/supervisors")
	supervisors.GET("", supervisorHandler.List)
	supervisors.POST("", supervisorHandler.Create)
	supervisors.GET("/:id", supervisorHandler.Get)
	supervisors.PUT("/:id", supervisorHandler.Update)
	supervisors.DELETE("/:id", supervisorHandler.Delete)

	rooms := protected.Group("/rooms")
	rooms.GET("", roomHandler.List)
	rooms.POST("", roomHandler.Create)
	rooms.GET("/:id", roomHandler.Get)
	rooms.PUT("/:id", roomHandler.Update)
	rooms.DELETE("/:id", roomHandler.Delete)

	protected.GET("/allocations", allocationHandler.List)
	protected.POST("/allocations/best-effort", allocationHandler.RunBestEffort)
	protected.GET("/presentations/timetable", presentationHandler.Timetable)
	protected.POST("/presentations/best-effort", presentationHandler.RunBestEffort)
	protected.GET("/availability/:ownerKind/:ownerId", availabilityHandler.Get)
	protected.PUT("/availability/:ownerKind/:ownerId", availabilityHandler.Update)
	protected.GET("/exports/timetable", exportHandler.Timetable)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
