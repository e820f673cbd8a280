package dialogue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/egorkasprigorca/afisha-bot/internal/domain"
)

// State идентифицирует шаг диалога настройки.
type State string

const (
	// StateStart — активного диалога нет.
	StateStart State = "start"

	StateAwaitCity             State = "await_city"
	StateAwaitCategories       State = "await_categories"
	StateAwaitNotificationTime State = "await_notification_time"
	StateAwaitEventsInterval   State = "await_events_interval"

	StateAwaitEditCity             State = "await_edit_city"
	StateAwaitEditCategories       State = "await_edit_categories"
	StateAwaitEditNotificationTime State = "await_edit_notification_time"
	StateAwaitEditEventsInterval   State = "await_edit_events_interval"
)

// ErrUnknownParameter возвращается на /edit с неизвестным именем поля.
var ErrUnknownParameter = errors.New("неизвестный параметр")

// session накапливает поля профиля между шагами диалога. Живёт только в памяти.
// Мьютекс сессии держится на весь цикл обработки одного ввода, включая
// обращения к репозиторию: получатель ведёт ровно один диалог за раз.
type session struct {
	mu               sync.Mutex
	state            State
	city             string
	categories       []string
	notificationTime time.Time
}

// clear возвращает сессию в начальное состояние. Вызывается под s.mu.
func (s *session) clear() {
	s.state = StateStart
	s.city = ""
	s.categories = nil
	s.notificationTime = time.Time{}
}

// Engine ведёт пошаговые диалоги регистрации и правки профиля.
// Сессии независимы по получателям: общий мьютекс защищает только карту,
// конкурентные сообщения одного чата сериализуются мьютексом его сессии.
type Engine struct {
	profiles domain.ProfileRepo
	log      zerolog.Logger

	mu       sync.Mutex
	sessions map[int64]*session
}

// NewEngine создаёт движок диалогов.
func NewEngine(profiles domain.ProfileRepo, log zerolog.Logger) *Engine {
	return &Engine{
		profiles: profiles,
		log:      log,
		sessions: make(map[int64]*session),
	}
}

func (e *Engine) session(chatID int64) *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[chatID]
	if !ok {
		s = &session{state: StateStart}
		e.sessions[chatID] = s
	}
	return s
}

// StateOf возвращает текущее состояние диалога получателя.
func (e *Engine) StateOf(chatID int64) State {
	e.mu.Lock()
	s, ok := e.sessions[chatID]
	e.mu.Unlock()
	if !ok {
		return StateStart
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Begin начинает онбординг: переводит сессию к вопросу о городе.
func (e *Engine) Begin(chatID int64) string {
	s := e.session(chatID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
	s.state = StateAwaitCity
	return promptCity
}

// Cancel безусловно возвращает сессию в начальное состояние.
// Накопленные поля отбрасываются, в репозиторий ничего не пишется.
func (e *Engine) Cancel(chatID int64) string {
	s := e.session(chatID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clear()
	return replyCancelled
}

// StartEdit входит в состояние правки одного поля. Профиль обязан существовать:
// его отсутствие на этом пути — логическая ошибка, а не повод завести частичный профиль.
func (e *Engine) StartEdit(ctx context.Context, chatID int64, parameter string) (string, error) {
	var (
		state  State
		prompt string
	)
	switch parameter {
	case "city":
		state, prompt = StateAwaitEditCity, replyEditCity
	case "categories":
		state, prompt = StateAwaitEditCategories, replyEditCats
	case "notification_time":
		state, prompt = StateAwaitEditNotificationTime, replyEditTime
	case "events_interval":
		state, prompt = StateAwaitEditEventsInterval, replyEditInterval
	default:
		return "", ErrUnknownParameter
	}

	s := e.session(chatID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := e.profiles.GetByRecipient(ctx, chatID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("правка без профиля: %w", err)
		}
		return "", fmt.Errorf("получение профиля: %w", err)
	}

	s.clear()
	s.state = state
	return prompt, nil
}

// Input обрабатывает свободный текст в текущем состоянии сессии и возвращает ответ.
// Ошибки валидации оставляют состояние на месте; пустой ввод переспрашивает.
// Сессия заперта на весь цикл: два сообщения одного чата никогда не
// обрабатываются одновременно.
func (e *Engine) Input(ctx context.Context, chatID int64, text string) string {
	if strings.TrimSpace(text) == "/cancel" {
		return e.Cancel(chatID)
	}
	s := e.session(chatID)
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateStart:
		return promptIdle
	case StateAwaitCity:
		return e.receiveCity(s, text)
	case StateAwaitCategories:
		return e.receiveCategories(s, text)
	case StateAwaitNotificationTime:
		return e.receiveNotificationTime(s, text)
	case StateAwaitEventsInterval:
		return e.receiveEventsInterval(ctx, chatID, s, text)
	case StateAwaitEditCity:
		return e.receiveEdit(ctx, chatID, s, text, promptCityRetry, func(text string) (domain.ProfileUpdate, string, error) {
			city, err := domain.ParseCity(text)
			if err != nil {
				return domain.ProfileUpdate{}, "", err
			}
			return domain.ProfileUpdate{City: &city}, fmt.Sprintf("Город обновлён: %s", city), nil
		})
	case StateAwaitEditCategories:
		return e.receiveEdit(ctx, chatID, s, text, promptCategories(), func(text string) (domain.ProfileUpdate, string, error) {
			categories, err := domain.ParseCategories(text)
			if err != nil {
				return domain.ProfileUpdate{}, "", err
			}
			return domain.ProfileUpdate{Categories: categories}, fmt.Sprintf("Категории обновлены: %s", strings.Join(categories, ", ")), nil
		})
	case StateAwaitEditNotificationTime:
		return e.receiveEdit(ctx, chatID, s, text, promptTime, func(text string) (domain.ProfileUpdate, string, error) {
			tm, err := domain.ParseNotificationTime(text)
			if err != nil {
				return domain.ProfileUpdate{}, "", err
			}
			return domain.ProfileUpdate{NotificationTime: &tm}, fmt.Sprintf("Время оповещений обновлено: %s", tm.Format("15:04")), nil
		})
	case StateAwaitEditEventsInterval:
		return e.receiveEdit(ctx, chatID, s, text, promptInterval, func(text string) (domain.ProfileUpdate, string, error) {
			interval, err := domain.ParseEventsInterval(text)
			if err != nil {
				return domain.ProfileUpdate{}, "", err
			}
			return domain.ProfileUpdate{EventsInterval: &interval}, fmt.Sprintf("Интервал обновлён: %d", interval), nil
		})
	}
	return promptIdle
}

func (e *Engine) receiveCity(s *session, text string) string {
	city, err := domain.ParseCity(text)
	if err != nil {
		return promptCityRetry
	}
	s.city = city
	s.state = StateAwaitCategories
	return promptCategories()
}

func (e *Engine) receiveCategories(s *session, text string) string {
	if strings.TrimSpace(text) == "" {
		return "Отправьте категории."
	}
	categories, err := domain.ParseCategories(text)
	if err != nil {
		var badCategory *domain.BadCategoryError
		if errors.As(err, &badCategory) {
			return fmt.Sprintf("%s не категория.", badCategory.Token)
		}
		return promptCategories()
	}
	s.categories = categories
	s.state = StateAwaitNotificationTime
	return promptTime
}

func (e *Engine) receiveNotificationTime(s *session, text string) string {
	tm, err := domain.ParseNotificationTime(text)
	if err != nil {
		return promptTime
	}
	s.notificationTime = tm
	s.state = StateAwaitEventsInterval
	return promptInterval
}

func (e *Engine) receiveEventsInterval(ctx context.Context, chatID int64, s *session, text string) string {
	interval, err := domain.ParseEventsInterval(text)
	if err != nil {
		return promptInterval
	}

	profile := domain.Profile{
		TGChatID:         chatID,
		City:             s.city,
		Categories:       s.categories,
		NotificationTime: s.notificationTime,
		EventsInterval:   interval,
	}
	if _, err := e.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, domain.ErrDuplicateRecipient) {
			// Не должно случаться: онбординг стартует только без профиля.
			e.log.Error().Int64("chat", chatID).Msg("попытка повторного создания профиля")
			s.clear()
			return "Профиль уже существует. Используйте /edit, чтобы изменить настройки."
		}
		e.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось сохранить профиль")
		return "Не удалось сохранить профиль, попробуйте ещё раз."
	}
	s.clear()
	return FormatProfile(profile)
}

func (e *Engine) receiveEdit(ctx context.Context, chatID int64, s *session, text, emptyPrompt string, parse func(string) (domain.ProfileUpdate, string, error)) string {
	if strings.TrimSpace(text) == "" {
		return emptyPrompt
	}
	update, confirmation, err := parse(text)
	if err != nil {
		var badCategory *domain.BadCategoryError
		if errors.As(err, &badCategory) {
			return fmt.Sprintf("%s не категория.", badCategory.Token)
		}
		return emptyPrompt
	}
	if err := e.profiles.Update(ctx, chatID, update); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			e.log.Error().Int64("chat", chatID).Msg("правка без существующего профиля")
			s.clear()
			return "Профиль не найден. Отправьте /start, чтобы создать его."
		}
		e.log.Error().Err(err).Int64("chat", chatID).Msg("не удалось обновить профиль")
		return "Не удалось сохранить изменение, попробуйте ещё раз."
	}
	s.clear()
	return confirmation
}
