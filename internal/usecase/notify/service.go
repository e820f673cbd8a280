package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/egorkasprigorca/afisha-bot/internal/domain"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/metrics"
)

const defaultBatchSize = 10

// Service строит и отправляет одну подборку событий для профиля.
type Service struct {
	catalog   domain.CatalogClient
	sender    domain.Sender
	log       zerolog.Logger
	siteURL   string
	batchSize int
}

// NewService создаёт сервис подборок.
func NewService(catalog domain.CatalogClient, sender domain.Sender, log zerolog.Logger, siteURL string, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Service{catalog: catalog, sender: sender, log: log, siteURL: siteURL, batchSize: batchSize}
}

// Notify выбирает события по первой категории профиля и отправляет их пачками.
// Ошибка каталога обрывает доставку целиком — без частичной отправки.
// Ошибка отправки одной пачки не мешает следующим.
func (s *Service) Notify(ctx context.Context, profile domain.Profile) error {
	if len(profile.Categories) == 0 {
		return fmt.Errorf("профиль %d без категорий", profile.TGChatID)
	}
	items, err := s.catalog.FetchItems(ctx, profile.City, profile.Categories[0], profile.EventsInterval)
	if err != nil {
		return fmt.Errorf("выборка событий: %w", err)
	}
	if len(items) == 0 {
		s.log.Debug().Int64("chat", profile.TGChatID).Msg("каталог пуст, подборка не отправлена")
		return nil
	}

	sent := false
	for _, batch := range BatchItems(items, s.batchSize) {
		if err := s.sender.Send(profile.TGChatID, FormatBatch(s.siteURL, batch)); err != nil {
			s.log.Error().Err(err).Int64("chat", profile.TGChatID).Msg("пачка не доставлена")
			continue
		}
		sent = true
	}
	if sent {
		metrics.IncNotification(profile.TGChatID)
	}
	return nil
}

// BatchItems режет события на пачки фиксированного размера, сохраняя порядок.
func BatchItems(items []domain.Item, size int) [][]domain.Item {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	batches := make([][]domain.Item, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[start:end])
	}
	return batches
}
