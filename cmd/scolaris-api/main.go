package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/scolaris-dev/scolaris-api/api/swagger"
	"github.com/scolaris-dev/scolaris-api/internal/handler"
	"github.com/scolaris-dev/scolaris-api/internal/middleware"
	"github.com/scolaris-dev/scolaris-api/internal/models"
	"github.com/scolaris-dev/scolaris-api/internal/repository"
	"github.com/scolaris-dev/scolaris-api/internal/service"
	"github.com/scolaris-dev/scolaris-api/pkg/cache"
	"github.com/scolaris-dev/scolaris-api/pkg/config"
	"github.com/scolaris-dev/scolaris-api/pkg/database"
	"github.com/scolaris-dev/scolaris-api/pkg/logger"
	corsmiddleware "github.com/scolaris-dev/scolaris-api/pkg/middleware/cors"
	reqidmiddleware "github.com/scolaris-dev/scolaris-api/pkg/middleware/requestid"
)

// @title Scolaris API
// @version 1.0.0
// @description School administration backend: timetable scheduling, grading, fee recovery and expenses
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	yearRepo := repository.NewAcademicYearRepository(db)
	classRepo := repository.NewClassRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	evaluationRepo := repository.NewEvaluationRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	recoveryRepo := repository.NewRecoveryRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	userRepo := repository.NewUserRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret:             cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "scolaris-api",
	})
	yearSvc := service.NewAcademicYearService(yearRepo, validate, logr)
	classSvc := service.NewClassService(classRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, classRepo, validate, logr)
	evaluationSvc := service.NewEvaluationService(evaluationRepo, validate, logr)
	expenseSvc := service.NewExpenseService(expenseRepo, userRepo, validate, logr)
	recoverySvc := service.NewRecoveryService(recoveryRepo, studentRepo, userRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, userRepo, validate, logr)
	scheduleSvc.SetMetrics(metricsSvc)
	scheduleSvc.SetGenerationDefaults(service.GenerationDefaults{
		SlotsPerDay: cfg.Scheduler.SlotsPerDay,
		LunchSlot:   cfg.Scheduler.LunchSlot,
		DayStart:    cfg.Scheduler.DayStart,
		SlotMinutes: cfg.Scheduler.SlotMinutes,
	})
	dashboardSvc := service.NewDashboardService(dashboardRepo, cacheSvc, cfg.Dashboard.CacheTTL, logr)
	exportSvc := service.NewExportService(scheduleRepo, recoveryRepo, evaluationSvc, cfg.Exports.SchoolName, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	yearHandler := handler.NewAcademicYearHandler(yearSvc)
	classHandler := handler.NewClassHandler(classSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)
	subjectHandler := handler.NewSubjectHandler(subjectSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	evaluationHandler := handler.NewEvaluationHandler(evaluationSvc, exportSvc)
	expenseHandler := handler.NewExpenseHandler(expenseSvc)
	recoveryHandler := handler.NewRecoveryHandler(recoverySvc, exportSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc, exportSvc, yearSvc)
	dashboardHandler := handler.NewDashboardHandler(dashboardSvc, yearSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

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
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Scrape)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	secured := api.Group("")
	secured.Use(middleware.JWT(authSvc))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)
	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher, models.RoleAccountant)
	finance := middleware.RequireRoles(models.RoleAdmin, models.RoleAccountant)
	teaching := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	years := secured.Group("/academic-years")
	{
		years.GET("", staff, yearHandler.List)
		years.GET("/active", staff, yearHandler.Active)
		years.GET("/:id", staff, yearHandler.Get)
		years.POST("", adminOnly, yearHandler.Create)
		years.POST("/:id/activate", adminOnly, yearHandler.Activate)
	}

	classes := secured.Group("/classes")
	{
		classes.GET("", staff, classHandler.List)
		classes.GET("/:id", staff, classHandler.Get)
		classes.POST("", adminOnly, classHandler.Create)
		classes.PUT("/:id", adminOnly, classHandler.Update)
		classes.DELETE("/:id", adminOnly, classHandler.Delete)
	}

	teachers := secured.Group("/teachers")
	{
		teachers.GET("", staff, teacherHandler.List)
		teachers.GET("/:id", staff, teacherHandler.Get)
		teachers.POST("", adminOnly, teacherHandler.Create)
		teachers.PUT("/:id", adminOnly, teacherHandler.Update)
		teachers.DELETE("/:id", adminOnly, teacherHandler.Delete)
	}

	subjects := secured.Group("/subjects")
	{
		subjects.GET("", staff, subjectHandler.List)
		subjects.GET("/:id", staff, subjectHandler.Get)
		subjects.POST("", adminOnly, subjectHandler.Create)
		subjects.PUT("/:id", adminOnly, subjectHandler.Update)
		subjects.DELETE("/:id", adminOnly, subjectHandler.Delete)
	}

	students := secured.Group("/students")
	{
		students.GET("", staff, studentHandler.List)
		students.GET("/:id", staff, studentHandler.Get)
		students.POST("", adminOnly, studentHandler.Create)
		students.PUT("/:id", adminOnly, studentHandler.Update)
		students.DELETE("/:id", adminOnly, studentHandler.Delete)
	}

	evaluations := secured.Group("/evaluations")
	{
		evaluations.GET("", staff, evaluationHandler.List)
		evaluations.GET("/averages", staff, evaluationHandler.ClassAverages)
		evaluations.GET("/averages/export", staff, evaluationHandler.ExportAverages)
		evaluations.POST("", teaching, evaluationHandler.Create)
		evaluations.PUT("/:id", teaching, evaluationHandler.Update)
		evaluations.DELETE("/:id", teaching, evaluationHandler.Delete)
	}

	expenses := secured.Group("/expenses")
	{
		expenses.GET("", finance, expenseHandler.List)
		expenses.GET("/monthly", finance, expenseHandler.MonthlyTotals)
		expenses.POST("", finance, expenseHandler.Create)
		expenses.PUT("/:id", finance, expenseHandler.Update)
		expenses.DELETE("/:id", finance, expenseHandler.Delete)
	}

	recovery := secured.Group("/recovery")
	{
		recovery.GET("", finance, recoveryHandler.Report)
		recovery.GET("/export", finance, recoveryHandler.Export)
		recovery.GET("/students/:id/payments", finance, recoveryHandler.Payments)
		recovery.POST("/payments", finance, recoveryHandler.RecordPayment)
	}

	schedule := secured.Group("/schedule")
	{
		schedule.GET("", staff, scheduleHandler.List)
		schedule.GET("/conflicts", staff, scheduleHandler.Conflicts)
		schedule.GET("/export", staff, scheduleHandler.Export)
		schedule.GET("/:id", staff, scheduleHandler.Get)
		schedule.POST("", adminOnly, scheduleHandler.Create)
		schedule.PUT("/:id", adminOnly, scheduleHandler.Update)
		schedule.DELETE("/:id", adminOnly, scheduleHandler.Delete)
		schedule.POST("/conflicts/resolve", adminOnly, scheduleHandler.Resolve)
		schedule.POST("/generate", adminOnly, middleware.Audit(userRepo, models.AuditActionScheduleRebuild, "schedule"), scheduleHandler.Generate)
	}

	if cfg.Dashboard.Enabled {
		secured.GET("/dashboard", staff, dashboardHandler.Counts)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
