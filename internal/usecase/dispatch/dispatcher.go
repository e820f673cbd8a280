package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/egorkasprigorca/afisha-bot/internal/domain"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/metrics"
	"github.com/egorkasprigorca/afisha-bot/internal/usecase/notify"
)

const guardTTL = 24 * time.Hour

// Dispatcher раз в тик обходит все профили и рассылает подборки тем,
// чьё время оповещения совпало с текущей минутой.
type Dispatcher struct {
	profiles    domain.ProfileRepo
	notifier    *notify.Service
	guard       domain.Cache
	log         zerolog.Logger
	period      time.Duration
	concurrency int
}

// NewDispatcher создаёт диспетчер рассылки.
func NewDispatcher(profiles domain.ProfileRepo, notifier *notify.Service, guard domain.Cache, log zerolog.Logger, period time.Duration, concurrency int) *Dispatcher {
	if period <= 0 {
		period = time.Minute
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Dispatcher{
		profiles:    profiles,
		notifier:    notifier,
		guard:       guard,
		log:         log,
		period:      period,
		concurrency: concurrency,
	}
}

// Run крутит цикл тиков до отмены контекста. Начатая работа тика
// дорабатывает до конца перед возвратом.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.log.Info().Msg("диспетчер останавливается")
			return
		case <-ticker.C:
			d.Tick(ctx, time.Now())
		}
	}
}

// Tick выполняет один цикл: читает все профили, отбирает подходящих
// по времени и параллельно, с ограничением, рассылает подборки.
// Профили независимы: отказ одного не трогает остальных.
func (d *Dispatcher) Tick(ctx context.Context, now time.Time) {
	started := time.Now()
	defer func() {
		metrics.DispatchTickSeconds.Observe(time.Since(started).Seconds())
	}()

	profiles, err := d.profiles.ListAll(ctx)
	if err != nil {
		d.log.Error().Err(err).Msg("тик: не удалось прочитать профили")
		return
	}

	sem := make(chan struct{}, d.concurrency)
	var wg sync.WaitGroup
	for _, profile := range profiles {
		if !Eligible(now, profile.NotificationTime) {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(profile domain.Profile) {
			defer wg.Done()
			defer func() { <-sem }()
			d.deliver(ctx, profile, now)
		}(profile)
	}
	wg.Wait()
}

// deliver отправляет подборку под суточным замком: не больше одной доставки
// на получателя в день, даже при перекрытии тиков. Неудача снимает замок,
// повтор возможен только на следующем тике.
func (d *Dispatcher) deliver(ctx context.Context, profile domain.Profile, now time.Time) {
	key := fmt.Sprintf("notify:%d:%s", profile.TGChatID, now.Format("2006-01-02"))
	err := d.guard.Once(key, guardTTL, func() error {
		return d.notifier.Notify(ctx, profile)
	})
	if err != nil {
		d.log.Error().Err(err).Int64("chat", profile.TGChatID).Msg("подборка не отправлена")
	}
}

// Eligible сообщает, совпало ли время тика с временем оповещения профиля
// с точностью до минуты.
func Eligible(now, notificationTime time.Time) bool {
	return now.Hour() == notificationTime.Hour() && now.Minute() == notificationTime.Minute()
}
