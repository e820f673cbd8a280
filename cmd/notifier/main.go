package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	redislib "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/egorkasprigorca/afisha-bot/internal/adapters/afisha"
	"github.com/egorkasprigorca/afisha-bot/internal/adapters/repo"
	"github.com/egorkasprigorca/afisha-bot/internal/adapters/telegram"
	"github.com/egorkasprigorca/afisha-bot/internal/domain"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/config"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/db"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/log"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/metrics"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/queue"
	"github.com/egorkasprigorca/afisha-bot/internal/usecase/notify"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("нотификатор: нет подключения к БД")
	}
	defer pool.Close()

	profiles := repo.NewPostgres(pool)

	jobs, err := buildNotifyQueue(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("нотификатор: не удалось подключиться к очереди")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("нотификатор: не удалось создать бота")
	}
	sender := telegram.NewSender(botAPI, logger)

	catalog := afisha.NewClient(afisha.Config{
		BaseURL:  cfg.Afisha.BaseURL,
		PageSize: cfg.Afisha.PageSize,
		Timeout:  cfg.Afisha.Timeout,
	})
	notifier := notify.NewService(catalog, sender, logger, cfg.Afisha.SiteURL, cfg.Dispatch.BatchSize)

	go metrics.StartServer(ctx, logger, cfg.MetricsAddr)

	logger.Info().Str("broker", cfg.Queues.Broker).Msg("нотификатор запущен")
	run(ctx, logger, jobs, profiles, notifier)
	logger.Info().Msg("нотификатор остановлен")
}

const receiveBackoff = time.Second

func run(ctx context.Context, logger zerolog.Logger, jobs domain.NotifyQueue, profiles domain.ProfileRepo, notifier *notify.Service) {
	for {
		job, ack, err := jobs.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error().Err(err).Msg("нотификатор: ошибка получения задачи")
			// Устойчивая ошибка брокера не должна крутить цикл вхолостую.
			select {
			case <-ctx.Done():
				return
			case <-time.After(receiveBackoff):
			}
			continue
		}
		if err := handle(ctx, logger, profiles, notifier, job); err != nil {
			logger.Error().Err(err).Str("job", job.ID).Int64("chat", job.TGChatID).Msg("нотификатор: задача не обработана")
			_ = ack(false)
			continue
		}
		_ = ack(true)
	}
}

func handle(ctx context.Context, logger zerolog.Logger, profiles domain.ProfileRepo, notifier *notify.Service, job domain.NotifyJob) error {
	profile, err := profiles.GetByRecipient(ctx, job.TGChatID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Профиль удалён после постановки задачи, повтор бессмыслен.
			logger.Warn().Str("job", job.ID).Int64("chat", job.TGChatID).Msg("нотификатор: профиль не найден")
			return nil
		}
		return err
	}
	return notifier.Notify(ctx, profile)
}

func buildNotifyQueue(cfg config.AppConfig) (domain.NotifyQueue, error) {
	switch cfg.Queues.Broker {
	case "rabbit":
		return queue.NewRabbitNotifyQueue(cfg.Queues.AMQPURL, cfg.Queues.Notify)
	default:
		client := redislib.NewClient(&redislib.Options{Addr: cfg.RedisAddr})
		return queue.NewRedisNotifyQueue(client, cfg.Queues.Notify), nil
	}
}
