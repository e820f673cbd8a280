package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	chi "github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	redislib "github.com/redis/go-redis/v9"

	"github.com/egorkasprigorca/afisha-bot/internal/adapters/bot"
	"github.com/egorkasprigorca/afisha-bot/internal/adapters/repo"
	"github.com/egorkasprigorca/afisha-bot/internal/adapters/telegram"
	"github.com/egorkasprigorca/afisha-bot/internal/domain"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/config"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/db"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/log"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/metrics"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/queue"
	"github.com/egorkasprigorca/afisha-bot/internal/usecase/dialogue"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
	}
	defer pool.Close()

	profiles := repo.NewPostgres(pool)
	if err := profiles.EnsureSchema(ctx); err != nil {
		logger.Fatal().Err(err).Msg("не удалось подготовить схему БД")
	}

	jobs, err := buildNotifyQueue(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключиться к очереди")
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	sender := telegram.NewSender(botAPI, logger)

	engine := dialogue.NewEngine(profiles, logger)
	h := bot.NewHandler(sender, logger, engine, profiles, jobs)

	go metrics.StartServer(ctx, logger, cfg.MetricsAddr)

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/bot/webhook", func(w http.ResponseWriter, r *http.Request) {
		var update tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.HandleUpdate(r.Context(), update)
		w.WriteHeader(http.StatusOK)
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Port), Handler: r}
	go func() {
		logger.Info().Int("port", cfg.Port).Msg("бот-гейтвей запущен")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("остановка бота")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
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

var _ domain.ProfileRepo = (*repo.Postgres)(nil)
var _ domain.Sender = (*telegram.Sender)(nil)
var _ domain.NotifyQueue = (*queue.RedisNotifyQueue)(nil)
var _ domain.NotifyQueue = (*queue.RabbitNotifyQueue)(nil)
