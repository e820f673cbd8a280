package main

import (
	"context"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	redislib "github.com/redis/go-redis/v9"

	"github.com/egorkasprigorca/afisha-bot/internal/adapters/afisha"
	"github.com/egorkasprigorca/afisha-bot/internal/adapters/repo"
	"github.com/egorkasprigorca/afisha-bot/internal/adapters/telegram"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/cache"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/config"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/db"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/log"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/metrics"
	"github.com/egorkasprigorca/afisha-bot/internal/usecase/dispatch"
	"github.com/egorkasprigorca/afisha-bot/internal/usecase/notify"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("диспетчер: нет подключения к БД")
	}
	defer pool.Close()

	profiles := repo.NewPostgres(pool)
	if err := profiles.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("диспетчер: не удалось подготовить схему БД")
	}

	redisClient := redislib.NewClient(&redislib.Options{Addr: cfg.RedisAddr})
	guard := cache.NewRedis(redisClient)

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("диспетчер: не удалось создать бота")
	}
	sender := telegram.NewSender(botAPI, logger)

	catalog := afisha.NewClient(afisha.Config{
		BaseURL:  cfg.Afisha.BaseURL,
		PageSize: cfg.Afisha.PageSize,
		Timeout:  cfg.Afisha.Timeout,
	})

	notifier := notify.NewService(catalog, sender, logger, cfg.Afisha.SiteURL, cfg.Dispatch.BatchSize)
	dispatcher := dispatch.NewDispatcher(profiles, notifier, guard, logger, cfg.Dispatch.TickPeriod, cfg.Dispatch.Concurrency)

	go metrics.StartServer(ctx, logger, cfg.MetricsAddr)

	logger.Info().Dur("period", cfg.Dispatch.TickPeriod).Msg("диспетчер запущен")
	dispatcher.Run(ctx)
	logger.Info().Msg("диспетчер остановлен")
}
