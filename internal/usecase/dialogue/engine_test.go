package dialogue

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/egorkasprigorca/afisha-bot/internal/domain"
)

type stubProfiles struct {
	profile    domain.Profile
	hasProfile bool

	created   []domain.Profile
	updates   []domain.ProfileUpdate
	createErr error
	updateErr error
	getErr    error
}

func (s *stubProfiles) Create(_ context.Context, profile domain.Profile) (int64, error) {
	if s.createErr != nil {
		return 0, s.createErr
	}
	s.created = append(s.created, profile)
	return int64(len(s.created)), nil
}

func (s *stubProfiles) GetByRecipient(context.Context, int64) (domain.Profile, error) {
	if s.getErr != nil {
		return domain.Profile{}, s.getErr
	}
	if !s.hasProfile {
		return domain.Profile{}, domain.ErrNotFound
	}
	return s.profile, nil
}

func (s *stubProfiles) ListAll(context.Context) ([]domain.Profile, error) {
	if s.hasProfile {
		return []domain.Profile{s.profile}, nil
	}
	return nil, nil
}

func (s *stubProfiles) Update(_ context.Context, _ int64, update domain.ProfileUpdate) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, update)
	return nil
}

func newTestEngine(repo domain.ProfileRepo) *Engine {
	return NewEngine(repo, zerolog.Nop())
}

func TestOnboardingFlow(t *testing.T) {
	repo := &stubProfiles{}
	engine := newTestEngine(repo)
	ctx := context.Background()

	if got := engine.Begin(42); got != promptCity {
		t.Fatalf("ожидали вопрос о городе, получили %q", got)
	}
	engine.Input(ctx, 42, "Москва")
	engine.Input(ctx, 42, "cinema, concert")
	engine.Input(ctx, 42, "19:00")
	summary := engine.Input(ctx, 42, "3")

	if len(repo.created) != 1 {
		t.Fatalf("ожидали один созданный профиль, получили %d", len(repo.created))
	}
	created := repo.created[0]
	if created.TGChatID != 42 || created.City != "Москва" || created.EventsInterval != 3 {
		t.Fatalf("профиль собран неверно: %+v", created)
	}
	if len(created.Categories) != 2 || created.Categories[0] != "cinema" || created.Categories[1] != "concert" {
		t.Fatalf("категории собраны неверно: %v", created.Categories)
	}
	if created.NotificationTime.Hour() != 19 || created.NotificationTime.Minute() != 0 {
		t.Fatalf("время собрано неверно: %s", created.NotificationTime.Format("15:04"))
	}
	if !strings.Contains(summary, "Ваш город: Москва") {
		t.Fatalf("ожидали сводку профиля, получили %q", summary)
	}
	if engine.StateOf(42) != StateStart {
		t.Fatalf("после онбординга сессия должна сброситься, состояние %s", engine.StateOf(42))
	}
}

func TestOnboardingRejectsUnknownCategory(t *testing.T) {
	repo := &stubProfiles{}
	engine := newTestEngine(repo)
	ctx := context.Background()

	engine.Begin(42)
	engine.Input(ctx, 42, "Москва")
	reply := engine.Input(ctx, 42, "cinema, opera")

	if reply != "opera не категория." {
		t.Fatalf("ожидали отказ по первому чужому токену, получили %q", reply)
	}
	if engine.StateOf(42) != StateAwaitCategories {
		t.Fatalf("ошибка валидации не должна двигать состояние, получили %s", engine.StateOf(42))
	}
}

func TestOnboardingRejectsBadTime(t *testing.T) {
	repo := &stubProfiles{}
	engine := newTestEngine(repo)
	ctx := context.Background()

	engine.Begin(42)
	engine.Input(ctx, 42, "Москва")
	engine.Input(ctx, 42, "cinema")
	for _, bad := range []string{"25:00", "19", "19:60", "вечером"} {
		if reply := engine.Input(ctx, 42, bad); reply != promptTime {
			t.Fatalf("вход %q: ожидали повтор вопроса о времени, получили %q", bad, reply)
		}
		if engine.StateOf(42) != StateAwaitNotificationTime {
			t.Fatalf("вход %q: состояние сместилось на %s", bad, engine.StateOf(42))
		}
	}
}

func TestCancelDiscardsSession(t *testing.T) {
	repo := &stubProfiles{}
	engine := newTestEngine(repo)
	ctx := context.Background()

	engine.Begin(42)
	engine.Input(ctx, 42, "Москва")
	if reply := engine.Input(ctx, 42, "/cancel"); reply != replyCancelled {
		t.Fatalf("ожидали подтверждение отмены, получили %q", reply)
	}
	if engine.StateOf(42) != StateStart {
		t.Fatalf("после отмены ожидали начальное состояние, получили %s", engine.StateOf(42))
	}
	if len(repo.created) != 0 {
		t.Fatalf("отмена не должна сохранять профиль")
	}
}

func TestConcurrentInputsSameChat(t *testing.T) {
	repo := &stubProfiles{}
	engine := newTestEngine(repo)
	ctx := context.Background()

	engine.Begin(42)

	// Вебхук обрабатывает каждое сообщение в своей горутине: быстрые
	// сообщения одного чата приходят одновременно. Город принимает ровно
	// одно из них, остальные отвечают уже на шаге категорий.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			engine.Input(ctx, 42, "Москва")
		}()
	}
	wg.Wait()

	if engine.StateOf(42) != StateAwaitCategories {
		t.Fatalf("после конкурентного ввода города ожидали шаг категорий, получили %s", engine.StateOf(42))
	}

	engine.Input(ctx, 42, "cinema")
	engine.Input(ctx, 42, "19:00")
	engine.Input(ctx, 42, "3")

	if len(repo.created) != 1 {
		t.Fatalf("ожидали один созданный профиль, получили %d", len(repo.created))
	}
	if repo.created[0].City != "Москва" {
		t.Fatalf("город потерян при конкурентном вводе: %+v", repo.created[0])
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	repo := &stubProfiles{}
	engine := newTestEngine(repo)
	ctx := context.Background()

	engine.Begin(1)
	engine.Begin(2)
	engine.Input(ctx, 1, "Москва")

	if engine.StateOf(1) != StateAwaitCategories {
		t.Fatalf("первый диалог должен продвинуться, состояние %s", engine.StateOf(1))
	}
	if engine.StateOf(2) != StateAwaitCity {
		t.Fatalf("второй диалог не должен сместиться, состояние %s", engine.StateOf(2))
	}
}

func TestEditSingleField(t *testing.T) {
	repo := &stubProfiles{hasProfile: true, profile: domain.Profile{TGChatID: 42, City: "Москва"}}
	engine := newTestEngine(repo)
	ctx := context.Background()

	prompt, err := engine.StartEdit(ctx, 42, "city")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if prompt != replyEditCity {
		t.Fatalf("ожидали приглашение к вводу города, получили %q", prompt)
	}

	reply := engine.Input(ctx, 42, "Казань")
	if reply != "Город обновлён: Казань" {
		t.Fatalf("ожидали подтверждение, получили %q", reply)
	}
	if len(repo.updates) != 1 {
		t.Fatalf("ожидали одно обновление, получили %d", len(repo.updates))
	}
	update := repo.updates[0]
	if update.City == nil || *update.City != "Казань" {
		t.Fatalf("обновление города собрано неверно: %+v", update)
	}
	if update.Categories != nil || update.NotificationTime != nil || update.EventsInterval != nil {
		t.Fatalf("правка одного поля не должна трогать остальные: %+v", update)
	}
}

func TestEditIntervalParsesValue(t *testing.T) {
	repo := &stubProfiles{hasProfile: true, profile: domain.Profile{TGChatID: 42}}
	engine := newTestEngine(repo)
	ctx := context.Background()

	if _, err := engine.StartEdit(ctx, 42, "events_interval"); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if reply := engine.Input(ctx, 42, "0"); reply != replyEditInterval {
		t.Fatalf("нулевой интервал должен переспросить, получили %q", reply)
	}
	reply := engine.Input(ctx, 42, "7")
	if reply != "Интервал обновлён: 7" {
		t.Fatalf("ожидали подтверждение, получили %q", reply)
	}
	if len(repo.updates) != 1 || repo.updates[0].EventsInterval == nil || *repo.updates[0].EventsInterval != 7 {
		t.Fatalf("обновление интервала собрано неверно: %+v", repo.updates)
	}
}

func TestStartEditUnknownParameter(t *testing.T) {
	engine := newTestEngine(&stubProfiles{hasProfile: true})
	if _, err := engine.StartEdit(context.Background(), 42, "nickname"); !errors.Is(err, ErrUnknownParameter) {
		t.Fatalf("ожидали ErrUnknownParameter, получили %v", err)
	}
}

func TestStartEditWithoutProfile(t *testing.T) {
	engine := newTestEngine(&stubProfiles{})
	if _, err := engine.StartEdit(context.Background(), 42, "city"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("ожидали ErrNotFound, получили %v", err)
	}
}

func TestDuplicateCreateResetsSession(t *testing.T) {
	repo := &stubProfiles{createErr: domain.ErrDuplicateRecipient}
	engine := newTestEngine(repo)
	ctx := context.Background()

	engine.Begin(42)
	engine.Input(ctx, 42, "Москва")
	engine.Input(ctx, 42, "cinema")
	engine.Input(ctx, 42, "19:00")
	reply := engine.Input(ctx, 42, "3")

	if !strings.Contains(reply, "Профиль уже существует") {
		t.Fatalf("ожидали сообщение о дубликате, получили %q", reply)
	}
	if engine.StateOf(42) != StateStart {
		t.Fatalf("после дубликата сессия должна сброситься, состояние %s", engine.StateOf(42))
	}
}
