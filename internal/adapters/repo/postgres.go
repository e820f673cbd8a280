package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/egorkasprigorca/afisha-bot/internal/domain"
	"github.com/egorkasprigorca/afisha-bot/internal/infra/metrics"
)

// Postgres реализует domain.ProfileRepo на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ domain.ProfileRepo = (*Postgres)(nil)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// EnsureSchema создаёт таблицу профилей, если её ещё нет.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS profiles (
    id bigserial PRIMARY KEY,
    tg_chat_id bigint NOT NULL UNIQUE,
    city text NOT NULL,
    categories text[] NOT NULL,
    notification_time time NOT NULL,
    events_interval int NOT NULL,
    created_at timestamptz NOT NULL DEFAULT now(),
    updated_at timestamptz NOT NULL DEFAULT now()
)
`)
	metrics.ObserveNetworkRequest("postgres", "profiles_ensure_schema", "profiles", start, err)
	return err
}

// Create сохраняет новый профиль и возвращает его идентификатор.
func (p *Postgres) Create(ctx context.Context, profile domain.Profile) (int64, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var id int64
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO profiles (tg_chat_id, city, categories, notification_time, events_interval)
VALUES ($1, $2, $3, $4, $5)
RETURNING id
`, profile.TGChatID, profile.City, profile.Categories, profile.NotificationTime.Format("15:04:05"), profile.EventsInterval).Scan(&id)
	metrics.ObserveNetworkRequest("postgres", "profiles_insert", "profiles", start, err)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, domain.ErrDuplicateRecipient
		}
		return 0, err
	}
	return id, nil
}

// GetByRecipient возвращает профиль по идентификатору чата.
func (p *Postgres) GetByRecipient(ctx context.Context, tgChatID int64) (domain.Profile, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	row := p.pool.QueryRow(ctx, `
SELECT id, tg_chat_id, city, categories, notification_time, events_interval, created_at, updated_at
FROM profiles WHERE tg_chat_id=$1
`, tgChatID)
	profile, err := scanProfile(row)
	metrics.ObserveNetworkRequest("postgres", "profiles_get_by_recipient", "profiles", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Profile{}, domain.ErrNotFound
	}
	return profile, err
}

// ListAll возвращает все профили.
func (p *Postgres) ListAll(ctx context.Context) ([]domain.Profile, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, tg_chat_id, city, categories, notification_time, events_interval, created_at, updated_at
FROM profiles
ORDER BY id
`)
	metrics.ObserveNetworkRequest("postgres", "profiles_list_all", "profiles", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// Update читает профиль с блокировкой, накладывает частичное обновление и
// пишет результат обратно. Конкурентные записи того же получателя сериализуются
// блокировкой строки.
func (p *Postgres) Update(ctx context.Context, tgChatID int64, update domain.ProfileUpdate) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	metrics.ObserveNetworkRequest("postgres", "begin_tx", "profiles", start, err)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	start = time.Now()
	row := tx.QueryRow(ctx, `
SELECT id, tg_chat_id, city, categories, notification_time, events_interval, created_at, updated_at
FROM profiles WHERE tg_chat_id=$1 FOR UPDATE
`, tgChatID)
	prev, err := scanProfile(row)
	metrics.ObserveNetworkRequest("postgres", "profiles_get_for_update", "profiles", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}

	next := update.Merge(prev)

	start = time.Now()
	_, err = tx.Exec(ctx, `
UPDATE profiles
SET city=$2, categories=$3, notification_time=$4, events_interval=$5, updated_at=now()
WHERE tg_chat_id=$1
`, tgChatID, next.City, next.Categories, next.NotificationTime.Format("15:04:05"), next.EventsInterval)
	metrics.ObserveNetworkRequest("postgres", "profiles_update", "profiles", start, err)
	if err != nil {
		return err
	}

	start = time.Now()
	err = tx.Commit(ctx)
	metrics.ObserveNetworkRequest("postgres", "commit", "profiles", start, err)
	if err != nil {
		return fmt.Errorf("фиксация обновления профиля: %w", err)
	}
	return nil
}

func scanProfile(row pgx.Row) (domain.Profile, error) {
	var profile domain.Profile
	err := row.Scan(
		&profile.ID,
		&profile.TGChatID,
		&profile.City,
		&profile.Categories,
		&profile.NotificationTime,
		&profile.EventsInterval,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	return profile, err
}
