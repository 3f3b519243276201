// Package main runs the email automation HTTP API with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mailpilot/backend/config"
	"github.com/mailpilot/backend/internal/accounts"
	"github.com/mailpilot/backend/internal/auth"
	"github.com/mailpilot/backend/internal/automation"
	"github.com/mailpilot/backend/internal/campaigns"
	"github.com/mailpilot/backend/internal/emaillogs"
	"github.com/mailpilot/backend/internal/inbox"
	"github.com/mailpilot/backend/internal/mailer"
	"github.com/mailpilot/backend/internal/middleware"
	"github.com/mailpilot/backend/internal/schedule"
	"github.com/mailpilot/backend/internal/templates"
	"github.com/mailpilot/backend/pkg/crypto"
	"github.com/mailpilot/backend/pkg/database"
	"github.com/mailpilot/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	cipher, err := crypto.NewCipher(cfg.Encryption.Key)
	if err != nil {
		logger.Fatal("encryption key", zap.Error(err))
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	accountRepo := accounts.NewRepository(pool)
	accountResolver := accounts.NewResolver(accountRepo, cipher)
	templateRepo := templates.NewRepository(pool)
	renderer := templates.NewTextRenderer()
	transport := mailer.NewSMTPTransport()
	logRepo := emaillogs.NewRepository(pool)
	accountHandler := accounts.NewHandler(accountRepo, accountResolver, transport, inbox.NewClient())

	scheduleRepo := schedule.NewRepository(pool)
	scheduleHandler := schedule.NewHandler(scheduleRepo)

	campaignRepo := campaigns.NewRepository(pool)
	dispatcher := campaigns.NewDispatcher(campaignRepo, templateRepo, accountResolver,
		transport, renderer, logRepo, cfg.Campaign.SendDelay, logger)
	campaignHandler := campaigns.NewHandler(campaignRepo, dispatcher, scheduleRepo)

	ruleRepo := automation.NewRepository(pool)
	ruleHandler := automation.NewHandler(ruleRepo)

	logHandler := emaillogs.NewHandler(logRepo)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Campaigns
		api.POST("/campaigns", campaignHandler.Create)
		api.GET("/campaigns", campaignHandler.List)
		api.GET("/campaigns/:id", campaignHandler.Get)
		api.PUT("/campaigns/:id", campaignHandler.Update)
		api.DELETE("/campaigns/:id", campaignHandler.Delete)
		api.POST("/campaigns/dispatch", campaignHandler.Dispatch)
		api.GET("/campaigns/stats", campaignHandler.StatsList)
		api.GET("/campaigns/:id/stats", campaignHandler.Stats)

		// Scheduled emails
		api.POST("/scheduled-emails", scheduleHandler.Create)
		api.GET("/scheduled-emails", scheduleHandler.List)
		api.GET("/scheduled-emails/:id", scheduleHandler.Get)
		api.GET("/recurrence/upcoming", scheduleHandler.UpcomingOccurrences)

		// Automation rules
		api.POST("/automation-rules", ruleHandler.Create)
		api.GET("/automation-rules", ruleHandler.List)
		api.PUT("/automation-rules/:id", ruleHandler.Update)
		api.PATCH("/automation-rules/:id/toggle", ruleHandler.Toggle)
		api.DELETE("/automation-rules/:id", ruleHandler.Delete)
		api.POST("/automation-rules/preview", ruleHandler.Preview)

		// Email logs
		api.GET("/email-logs", logHandler.List)
		api.GET("/email-logs/stats", logHandler.Stats)

		// Email accounts
		api.POST("/email-accounts/:id/test-connection", accountHandler.TestConnection)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
