package domain

import "time"

// Categories — закрытый словарь категорий афиши.
var Categories = []string{"cinema", "concert", "theatre", "art", "standup", "show", "quest"}

// IsCategory сообщает, входит ли токен в словарь категорий.
func IsCategory(token string) bool {
	for _, c := range Categories {
		if c == token {
			return true
		}
	}
	return false
}

// Profile описывает подписку пользователя на ежедневную подборку событий.
type Profile struct {
	ID               int64
	TGChatID         int64
	City             string
	Categories       []string
	NotificationTime time.Time
	EventsInterval   int
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ProfileUpdate задаёт частичное обновление профиля.
// Nil-поля сохраняют прежние значения — слияние идёт по каждому полю отдельно.
type ProfileUpdate struct {
	City             *string
	Categories       []string
	NotificationTime *time.Time
	EventsInterval   *int
}

// Merge накладывает обновление на прежний профиль поле за полем.
func (u ProfileUpdate) Merge(prev Profile) Profile {
	next := prev
	if u.City != nil {
		next.City = *u.City
	}
	if u.Categories != nil {
		next.Categories = append([]string(nil), u.Categories...)
	}
	if u.NotificationTime != nil {
		next.NotificationTime = *u.NotificationTime
	}
	if u.EventsInterval != nil {
		next.EventsInterval = *u.EventsInterval
	}
	return next
}

// Item представляет событие из каталога. Живёт только внутри одного цикла рассылки.
type Item struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}
