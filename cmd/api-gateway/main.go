package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/didar-dev/didar-api/api/swagger"
	"github.com/didar-dev/didar-api/internal/handler"
	internalmiddleware "github.com/didar-dev/didar-api/internal/middleware"
	"github.com/didar-dev/didar-api/internal/repository"
	"github.com/didar-dev/didar-api/internal/service"
	"github.com/didar-dev/didar-api/pkg/cache"
	"github.com/didar-dev/didar-api/pkg/config"
	"github.com/didar-dev/didar-api/pkg/database"
	"github.com/didar-dev/didar-api/pkg/logger"
	corsmiddleware "github.com/didar-dev/didar-api/pkg/middleware/cors"
	reqidmiddleware "github.com/didar-dev/didar-api/pkg/middleware/requestid"
)

// @title Didar API
// @version 1.0.0
// @description University instructor scheduling and support backend
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			redisClient.Close()
		}
	}()

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	facultyRepo := repository.NewFacultyRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	ticketRepo := repository.NewTicketRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, cfg.Cache.Enabled, cfg.Cache.TTL, logr)
	authSvc := service.NewAuthService(userRepo, instructorRepo, validate, logr, service.AuthConfig{
		Secret:             cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	scheduleSvc := service.NewScheduleService(scheduleRepo, instructorRepo, cacheSvc, metricsSvc, validate, logr)
	exportSvc := service.NewExportService(scheduleRepo, logr)
	facultySvc := service.NewFacultyService(facultyRepo, instructorRepo, logr)
	ticketSvc := service.NewTicketService(ticketRepo, instructorRepo, metricsSvc, validate, logr)
	calendarSvc := service.NewCalendarService(userRepo, cfg.Calendar, logr)
	availabilitySvc := service.NewAvailabilityService(instructorRepo, calendarSvc, cfg.Availability, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	availabilitySvc.Start(ctx)
	defer availabilitySvc.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(reqidmiddleware.Middleware())
	router.Use(logger.GinMiddleware(logr))
	router.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	router.Use(internalmiddleware.Metrics(metricsSvc))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	registerRoutes(router.Group(cfg.APIPrefix), routeDeps{
		auth:     handler.NewAuthHandler(authSvc),
		schedule: handler.NewScheduleHandler(scheduleSvc, exportSvc),
		faculty:  handler.NewFacultyHandler(facultySvc),
		ticket:   handler.NewTicketHandler(ticketSvc),
		calendar: handler.NewCalendarHandler(calendarSvc),
		authSvc:  authSvc,
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}

type routeDeps struct {
	auth     *handler.AuthHandler
	schedule *handler.ScheduleHandler
	faculty  *handler.FacultyHandler
	ticket   *handler.TicketHandler
	calendar *handler.CalendarHandler
	authSvc  *service.AuthService
}

func registerRoutes(api *gin.RouterGroup, deps routeDeps) {
	api.POST("/auth/login", deps.auth.Login)
	api.POST("/auth/refresh", deps.auth.Refresh)

	secured := api.Group("", internalmiddleware.JWT(deps.authSvc))
	secured.POST("/auth/logout", deps.auth.Logout)
	secured.POST("/auth/logout-all", deps.auth.LogoutAll)
	secured.GET("/auth/profile", deps.auth.Profile)
	secured.PATCH("/auth/profile", deps.auth.UpdateProfile)

	secured.GET("/faculties", deps.faculty.ListFaculties)
	secured.GET("/faculties/:id", deps.faculty.GetFaculty)
	secured.GET("/departments/:id", deps.faculty.GetDepartment)
	secured.GET("/instructors", deps.faculty.ListInstructors)
	secured.GET("/instructors/:id", deps.faculty.GetInstructor)
	secured.GET("/instructors/:id/schedules", deps.schedule.ListByInstructor)

	secured.GET("/tickets", deps.ticket.List)
	secured.POST("/tickets", deps.ticket.Create)
	secured.GET("/tickets/:id", deps.ticket.Get)
	secured.POST("/tickets/:id/messages", deps.ticket.AddMessage)
	secured.POST("/tickets/:id/close", deps.ticket.Close)

	secured.GET("/events/current-week", deps.calendar.CurrentWeek)

	instructorOnly := secured.Group("/instructor", internalmiddleware.RequireInstructor())
	instructorOnly.GET("/schedules", deps.schedule.ListOwn)
	instructorOnly.POST("/schedules", deps.schedule.Create)
	instructorOnly.GET("/schedules/export", deps.schedule.Export)
	instructorOnly.GET("/schedules/:code", deps.schedule.GetOwn)
	instructorOnly.PATCH("/schedules/:code", deps.schedule.Update)
	instructorOnly.DELETE("/schedules/:code", deps.schedule.Delete)
}
