package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/pathwise/pathwise-backend/internal/config"
	"github.com/pathwise/pathwise-backend/internal/database"
	"github.com/pathwise/pathwise-backend/internal/handlers"
	"github.com/pathwise/pathwise-backend/internal/logger"
	"github.com/pathwise/pathwise-backend/internal/middleware"
	"github.com/pathwise/pathwise-backend/internal/services"
)

func main() {
	// .env first so viper's env overlay sees it.
	_ = godotenv.Load()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	zlog, err := logger.New(cfg.App.Mode)
	if err != nil {
		log.Fatal("Failed to build logger:", err)
	}
	defer zlog.Sync()

	db, err := database.Connect(cfg.Database.DSN)
	if err != nil {
		zlog.Fatal("database connection failed", "err", err)
	}
	zlog.Info("database connection established")

	llmService, err := services.NewLLMService(context.Background(), cfg.AI.APIKey, cfg.AI.Model, cfg.AI.RequestTimeout)
	if err != nil {
		zlog.Fatal("llm client init failed", "err", err)
	}

	usageService := services.NewUsageService(db, zlog)
	activityService := services.NewActivityService(db, zlog, cfg.Activity.FlushBatchSize, cfg.Activity.FlushInterval)
	activityService.StartFlusher()

	salarySource := services.NewSampleSource(cfg.Salary.BaseURL, cfg.Salary.APIKey, cfg.Salary.RequestTimeout)
	salaryService := services.NewSalaryService(db, zlog, salarySource)
	profileService := services.NewProfileService(db, zlog)
	intelligenceService := services.NewIntelligenceService(db, zlog, llmService, activityService, salaryService, cfg.AI.MaxTokens)

	profileHandler := handlers.NewProfileHandler(zlog, profileService, activityService)
	activityHandler := handlers.NewActivityHandler(zlog, activityService)
	intelligenceHandler := handlers.NewIntelligenceHandler(zlog, intelligenceService, salaryService, usageService, profileService, activityService)
	authMiddleware := middleware.NewAuthMiddleware(zlog, cfg.Auth.JWTSecret)

	if cfg.App.Mode == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.HandleMethodNotAllowed = true

	corsConfig := cors.DefaultConfig()
	if cfg.App.Origins == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = strings.Split(cfg.App.Origins, ",")
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	api := r.Group("/api/v1")
	{
		api.GET("/health", handlers.HealthCheck)

		authed := api.Group("")
		authed.Use(authMiddleware.RequireAuth())
		{
			authed.GET("/profile", profileHandler.GetProfile)
			authed.PUT("/profile", profileHandler.UpdateProfile)
			authed.GET("/resume", profileHandler.GetResume)
			authed.PUT("/resume", profileHandler.UpsertResume)
			authed.POST("/goals", profileHandler.CreateGoal)
			authed.GET("/goals", profileHandler.ListGoals)
			authed.PATCH("/goals/:id", profileHandler.UpdateGoalStatus)

			authed.POST("/activity", activityHandler.Track)
			authed.GET("/activity/stats", activityHandler.Stats)

			authed.GET("/salary", intelligenceHandler.Salary)
			authed.POST("/intelligence/:type", intelligenceHandler.Generate)
			authed.GET("/intelligence/:type", intelligenceHandler.Get)
			authed.GET("/usage", intelligenceHandler.Usage)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	zlog.Info("server starting", "addr", addr)
	if err := r.Run(addr); err != nil {
		zlog.Fatal("server failed", "err", err)
	}
}
