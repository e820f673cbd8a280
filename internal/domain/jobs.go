package domain

import (
	"context"
	"time"
)

// NotifyJobCause описывает источник запроса на подборку.
type NotifyJobCause string

const (
	// NotifyCauseManual — пользователь запросил подборку вручную.
	NotifyCauseManual NotifyJobCause = "manual"
	// NotifyCauseScheduled — подборка отправлена по расписанию.
	NotifyCauseScheduled NotifyJobCause = "scheduled"
)

// NotifyJob содержит информацию о задаче на отправку подборки.
type NotifyJob struct {
	ID          string         `json:"job_id,omitempty"`
	TGChatID    int64          `json:"tg_chat_id"`
	RequestedAt time.Time      `json:"requested_at"`
	Cause       NotifyJobCause `json:"cause"`
}

// NotifyAckFunc подтверждает обработку задачи; success=false возвращает её в очередь.
type NotifyAckFunc func(success bool) error

// NotifyQueue описывает очередь задач на отправку подборок.
type NotifyQueue interface {
	Enqueue(ctx context.Context, job NotifyJob) error
	Receive(ctx context.Context) (NotifyJob, NotifyAckFunc, error)
}
