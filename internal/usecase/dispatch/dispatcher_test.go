package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/egorkasprigorca/afisha-bot/internal/domain"
	"github.com/egorkasprigorca/afisha-bot/internal/usecase/notify"
)

type stubProfiles struct {
	profiles []domain.Profile
}

func (s *stubProfiles) Create(context.Context, domain.Profile) (int64, error) { return 0, nil }
func (s *stubProfiles) GetByRecipient(context.Context, int64) (domain.Profile, error) {
	return domain.Profile{}, domain.ErrNotFound
}
func (s *stubProfiles) ListAll(context.Context) ([]domain.Profile, error) { return s.profiles, nil }
func (s *stubProfiles) Update(context.Context, int64, domain.ProfileUpdate) error {
	return nil
}

type stubCatalog struct{}

func (stubCatalog) FetchItems(context.Context, string, string, int) ([]domain.Item, error) {
	return []domain.Item{{ID: "e1", URL: "event/1", Title: "Событие"}}, nil
}

type recordingSender struct {
	mu    sync.Mutex
	chats []int64
}

func (s *recordingSender) Send(chatID int64, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats = append(s.chats, chatID)
	return nil
}

// memoryGuard повторяет контракт Once: победитель выполняет fn,
// остальные в пределах TTL пропускаются.
type memoryGuard struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{keys: make(map[string]bool)}
}

func (g *memoryGuard) Once(key string, _ time.Duration, fn func() error) error {
	g.mu.Lock()
	if g.keys[key] {
		g.mu.Unlock()
		return nil
	}
	g.keys[key] = true
	g.mu.Unlock()
	if err := fn(); err != nil {
		g.mu.Lock()
		delete(g.keys, key)
		g.mu.Unlock()
		return err
	}
	return nil
}

func (g *memoryGuard) Set(string, []byte, time.Duration) error { return nil }
func (g *memoryGuard) Get(string) ([]byte, error)              { return nil, nil }

func at(hour, minute int) time.Time {
	return time.Date(0, time.January, 1, hour, minute, 0, 0, time.UTC)
}

func testDispatcher(profiles []domain.Profile, sender domain.Sender, guard domain.Cache) *Dispatcher {
	notifier := notify.NewService(stubCatalog{}, sender, zerolog.Nop(), "https://afisha.yandex.ru", 10)
	return NewDispatcher(&stubProfiles{profiles: profiles}, notifier, guard, zerolog.Nop(), time.Minute, 4)
}

func TestTickMatchesWallClockMinute(t *testing.T) {
	profiles := []domain.Profile{
		{TGChatID: 1, City: "moscow", Categories: []string{"cinema"}, NotificationTime: at(18, 29)},
		{TGChatID: 2, City: "moscow", Categories: []string{"cinema"}, NotificationTime: at(18, 30)},
		{TGChatID: 3, City: "moscow", Categories: []string{"cinema"}, NotificationTime: at(18, 31)},
	}
	sender := &recordingSender{}
	d := testDispatcher(profiles, sender, newMemoryGuard())

	now := time.Date(2026, time.August, 28, 18, 30, 45, 0, time.UTC)
	d.Tick(context.Background(), now)

	if len(sender.chats) != 1 || sender.chats[0] != 2 {
		t.Fatalf("подборку должен получить только профиль 18:30, получили %v", sender.chats)
	}
}

func TestTickDeliversOncePerDay(t *testing.T) {
	profiles := []domain.Profile{
		{TGChatID: 1, City: "moscow", Categories: []string{"cinema"}, NotificationTime: at(18, 30)},
	}
	sender := &recordingSender{}
	d := testDispatcher(profiles, sender, newMemoryGuard())

	now := time.Date(2026, time.August, 28, 18, 30, 0, 0, time.UTC)
	d.Tick(context.Background(), now)
	// Перекрывающийся тик той же минуты.
	d.Tick(context.Background(), now.Add(30*time.Second))

	if len(sender.chats) != 1 {
		t.Fatalf("суточный замок должен пропустить одну доставку, получили %d", len(sender.chats))
	}

	// На следующий день замок с новым ключом.
	d.Tick(context.Background(), now.Add(24*time.Hour))
	if len(sender.chats) != 2 {
		t.Fatalf("на следующий день доставка должна повториться, получили %d", len(sender.chats))
	}
}

func TestEligible(t *testing.T) {
	cases := []struct {
		now      time.Time
		notified time.Time
		want     bool
	}{
		{time.Date(2026, 8, 28, 18, 30, 5, 0, time.UTC), at(18, 30), true},
		{time.Date(2026, 8, 28, 18, 30, 59, 0, time.UTC), at(18, 30), true},
		{time.Date(2026, 8, 28, 18, 31, 0, 0, time.UTC), at(18, 30), false},
		{time.Date(2026, 8, 28, 19, 30, 0, 0, time.UTC), at(18, 30), false},
	}
	for _, c := range cases {
		if got := Eligible(c.now, c.notified); got != c.want {
			t.Fatalf("Eligible(%s, %s) = %v, ожидали %v", c.now.Format("15:04:05"), c.notified.Format("15:04"), got, c.want)
		}
	}
}
