package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	CatalogErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "catalog_errors_total",
		Help: "Ошибки при выборке событий из каталога",
	})
	BotSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bot_send_errors_total",
		Help: "Ошибки отправки сообщений ботом",
	})
	DispatchTickSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dispatch_tick_seconds",
		Help:    "Время обработки одного тика рассылки",
		Buckets: prometheus.DefBuckets,
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	NotificationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Общее количество отправленных подборок",
	})

	NotificationsByRecipient = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_by_recipient_total",
		Help: "Количество отправленных подборок по получателям",
	}, []string{"chat_id"})
)

func init() {
	MustRegister(prometheus.DefaultRegisterer)
}

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		CatalogErrors,
		BotSendErrors,
		DispatchTickSeconds,
		NetworkRequestDuration,
		NetworkRequestTotal,
		NotificationsTotal,
		NotificationsByRecipient,
	)
}

// StartServer запускает HTTP сервер с эндпоинтом /metrics.
func StartServer(ctx context.Context, logger zerolog.Logger, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: graceful shutdown failed")
		}
	}()

	go func() {
		logger.Info().Str("addr", addr).Msg("metrics: server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics: server stopped")
		}
	}()
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// IncNotification увеличивает счётчики отправленных подборок.
func IncNotification(chatID int64) {
	NotificationsTotal.Inc()
	NotificationsByRecipient.WithLabelValues(strconv.FormatInt(chatID, 10)).Inc()
}
