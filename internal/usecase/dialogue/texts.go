package dialogue

import (
	"fmt"
	"strings"

	"github.com/egorkasprigorca/afisha-bot/internal/domain"
)

const (
	promptCity        = "Давайте начнем! Из какого вы города?"
	promptCityRetry   = "Отправьте ваш город."
	promptTime        = "Выберите время оповещения. Пример: 19:00"
	promptInterval    = "Выберите интервал для предстоящих событий в днях."
	promptIdle        = "Отправьте /start, чтобы начать настройку, или /help для списка команд."
	replyCancelled    = "Настройка отменена. Введённые данные не сохранены."
	replyEditCity     = "Введите новый город"
	replyEditCats     = "Введите новые категории"
	replyEditTime     = "Введите новое время для уведомлений"
	replyEditInterval = "Введите новый интервал предстоящих событий"
)

func promptCategories() string {
	return "Выберите категории событий через запятую: " + strings.Join(domain.Categories, ", ")
}

// FormatProfile строит сводку профиля для подтверждений и команды /info.
func FormatProfile(profile domain.Profile) string {
	lines := []string{
		"Вы выбрали",
		fmt.Sprintf("Ваш id: %d", profile.TGChatID),
		fmt.Sprintf("Ваш город: %s", profile.City),
		fmt.Sprintf("Категории: %s", strings.Join(profile.Categories, ", ")),
		fmt.Sprintf("Время оповещений: %s", profile.NotificationTime.Format("15:04:05")),
		fmt.Sprintf("Интервал предстоящих событий: %d", profile.EventsInterval),
	}
	return strings.Join(lines, "\n")
}
