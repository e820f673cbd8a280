package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/egorkasprigorca/afisha-bot/internal/domain"
	"github.com/egorkasprigorca/afisha-bot/internal/usecase/dialogue"
)

// Handler обслуживает входящие апдейты бота.
type Handler struct {
	sender   domain.Sender
	log      zerolog.Logger
	engine   *dialogue.Engine
	profiles domain.ProfileRepo
	jobs     domain.NotifyQueue
}

// NewHandler создаёт обработчик.
func NewHandler(sender domain.Sender, log zerolog.Logger, engine *dialogue.Engine, profiles domain.ProfileRepo, jobs domain.NotifyQueue) *Handler {
	return &Handler{
		sender:   sender,
		log:      log,
		engine:   engine,
		profiles: profiles,
		jobs:     jobs,
	}
}

// HandleUpdate обрабатывает входящий апдейт.
func (h *Handler) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	h.handleMessage(ctx, upd.Message)
}

func (h *Handler) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch {
	case text == "":
		// Сообщение без текста переспрашивает текущий шаг, не двигая состояние.
		h.reply(chatID, h.engine.Input(ctx, chatID, ""))
	case text == "/cancel":
		h.reply(chatID, h.engine.Cancel(chatID))
	case strings.HasPrefix(text, "/start"):
		h.handleStart(ctx, chatID)
	case strings.HasPrefix(text, "/help"):
		h.reply(chatID, helpMessage())
	case strings.HasPrefix(text, "/info"):
		h.handleInfo(ctx, chatID)
	case strings.HasPrefix(text, "/edit"):
		parameter := strings.TrimSpace(strings.TrimPrefix(text, "/edit"))
		h.handleEdit(ctx, chatID, parameter)
	case strings.HasPrefix(text, "/now"):
		h.handleNow(ctx, chatID)
	case strings.HasPrefix(text, "/"):
		h.reply(chatID, "Неизвестная команда. Используйте /help")
	default:
		h.reply(chatID, h.engine.Input(ctx, chatID, text))
	}
}

func (h *Handler) handleStart(ctx context.Context, chatID int64) {
	profile, err := h.profiles.GetByRecipient(ctx, chatID)
	switch {
	case err == nil:
		h.reply(chatID, dialogue.FormatProfile(profile))
	case errors.Is(err, domain.ErrNotFound):
		h.reply(chatID, h.engine.Begin(chatID))
	default:
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось получить профиль")
		h.reply(chatID, "Не удалось получить профиль, попробуйте позже.")
	}
}

func (h *Handler) handleInfo(ctx context.Context, chatID int64) {
	profile, err := h.profiles.GetByRecipient(ctx, chatID)
	switch {
	case err == nil:
		h.reply(chatID, dialogue.FormatProfile(profile))
	case errors.Is(err, domain.ErrNotFound):
		h.reply(chatID, "У вас пока нет профиля. Отправьте /start")
	default:
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось получить профиль")
		h.reply(chatID, "Не удалось получить профиль, попробуйте позже.")
	}
}

func (h *Handler) handleEdit(ctx context.Context, chatID int64, parameter string) {
	if parameter == "" {
		h.reply(chatID, "Укажите параметр: /edit city, categories, notification_time или events_interval")
		return
	}
	prompt, err := h.engine.StartEdit(ctx, chatID, parameter)
	switch {
	case err == nil:
		h.reply(chatID, prompt)
	case errors.Is(err, dialogue.ErrUnknownParameter):
		h.reply(chatID, "Неправильный параметр")
	case errors.Is(err, domain.ErrNotFound):
		h.reply(chatID, "Сначала создайте профиль командой /start")
	default:
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось начать правку")
		h.reply(chatID, "Не удалось начать правку, попробуйте позже.")
	}
}

func (h *Handler) handleNow(ctx context.Context, chatID int64) {
	if _, err := h.profiles.GetByRecipient(ctx, chatID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			h.reply(chatID, "Сначала создайте профиль командой /start")
			return
		}
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось получить профиль")
		h.reply(chatID, "Не удалось получить профиль, попробуйте позже.")
		return
	}
	job := domain.NotifyJob{
		ID:          uuid.NewString(),
		TGChatID:    chatID,
		RequestedAt: time.Now().UTC(),
		Cause:       domain.NotifyCauseManual,
	}
	if err := h.jobs.Enqueue(ctx, job); err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось поставить задачу подборки")
		h.reply(chatID, "Не удалось поставить подборку в очередь, попробуйте позже")
		return
	}
	h.reply(chatID, "Собираем подборку событий, отправим её в ближайшее время")
}

func (h *Handler) reply(chatID int64, text string) {
	if text == "" {
		return
	}
	if err := h.sender.Send(chatID, text); err != nil {
		h.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось отправить ответ")
	}
}

func helpMessage() string {
	lines := []string{
		"Поддерживаемые команды:",
		"• /start — начать настройку или показать текущий профиль.",
		"• /info — показать текущий профиль.",
		"• /edit city — изменить город.",
		"• /edit categories — изменить категории.",
		"• /edit notification_time — изменить время оповещений.",
		"• /edit events_interval — изменить интервал предстоящих событий.",
		"• /now — получить подборку прямо сейчас.",
		"• /cancel — отменить текущую настройку.",
	}
	return strings.Join(lines, "\n")
}
