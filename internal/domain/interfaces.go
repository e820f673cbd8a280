package domain

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound возвращается, когда профиль получателя не существует.
var ErrNotFound = errors.New("профиль не найден")

// ErrDuplicateRecipient возвращается при попытке создать второй профиль для того же получателя.
var ErrDuplicateRecipient = errors.New("профиль получателя уже существует")

// ErrCatalogUnavailable возвращается, если каталог не отдал хотя бы одну страницу выборки.
var ErrCatalogUnavailable = errors.New("каталог событий недоступен")

// ProfileRepo управляет профилями подписок.
type ProfileRepo interface {
	Create(ctx context.Context, profile Profile) (int64, error)
	GetByRecipient(ctx context.Context, tgChatID int64) (Profile, error)
	ListAll(ctx context.Context) ([]Profile, error)
	// Update читает текущий профиль, накладывает частичное обновление и пишет
	// результат обратно атомарно по отношению к конкурентным записям того же получателя.
	Update(ctx context.Context, tgChatID int64, update ProfileUpdate) error
}

// CatalogClient выгружает события каталога по городу и одной категории.
// Пагинацию удалённого API клиент вычерпывает целиком и возвращает плоский список
// в порядке, который отдал каталог.
type CatalogClient interface {
	FetchItems(ctx context.Context, city, category string, lookaheadDays int) ([]Item, error)
}

// Sender отправляет текст получателю. Транспортный коллаборатор.
type Sender interface {
	Send(chatID int64, text string) error
}

// Cache используется для простых TTL-хранилищ и одноразовых замков.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}
