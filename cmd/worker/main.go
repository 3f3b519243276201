// Package main runs the background engines: the scheduled-email poller, the
// inbox watcher and the auto-reply queue processor.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mailpilot/backend/config"
	"github.com/mailpilot/backend/internal/accounts"
	"github.com/mailpilot/backend/internal/automation"
	"github.com/mailpilot/backend/internal/emaillogs"
	"github.com/mailpilot/backend/internal/inbox"
	"github.com/mailpilot/backend/internal/mailer"
	"github.com/mailpilot/backend/internal/schedule"
	"github.com/mailpilot/backend/internal/templates"
	"github.com/mailpilot/backend/internal/worker"
	"github.com/mailpilot/backend/pkg/crypto"
	"github.com/mailpilot/backend/pkg/database"
	"github.com/mailpilot/backend/pkg/queue"
	"github.com/mailpilot/backend/pkg/redis"
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

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	cipher, err := crypto.NewCipher(cfg.Encryption.Key)
	if err != nil {
		logger.Fatal("encryption key", zap.Error(err))
	}

	accountRepo := accounts.NewRepository(pool)
	accountResolver := accounts.NewResolver(accountRepo, cipher)
	templateRepo := templates.NewRepository(pool)
	renderer := templates.NewTextRenderer()
	transport := mailer.NewSMTPTransport()
	logRepo := emaillogs.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	scheduleRepo := schedule.NewRepository(pool)
	scheduler := schedule.NewScheduler(scheduleRepo, templateRepo, accountResolver,
		transport, renderer, logRepo, cfg.Scheduler.PollInterval, cfg.Campaign.SendDelay, logger)

	imapClient := inbox.NewClient()
	ruleRepo := automation.NewRepository(pool)
	executor := automation.NewExecutor(templateRepo, jobQueue, imapClient, renderer, logger)
	watcher := inbox.NewWatcher(accountRepo, accountResolver, ruleRepo, imapClient,
		executor, logRepo, cfg.Inbox.CheckInterval, cfg.Inbox.FetchLimit, logger)

	processor := worker.NewAutoReplyProcessor(accountRepo, accountResolver, transport, logRepo, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler.Start(workerCtx)
	go watcher.Run(workerCtx)
	go processor.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	scheduler.Stop()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
