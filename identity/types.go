package identity

import (
	"context"
	"errors"
	"time"
)

// Record - локальная запись личности, связанная с пользователем платформы.
// Единственное изменяемое поле - Username.
type Record struct {
	LocalID        string    `json:"local_id"`
	PlatformUserID int64     `json:"platform_user_id"`
	Username       *string   `json:"username"`
	CreatedAt      time.Time `json:"created_at"`
}

// Outcome описывает, что сделал upsert с записью.
type Outcome int

const (
	OutcomeUnchanged Outcome = iota
	OutcomeCreated
	OutcomeUpdated
)

// String возвращает строковое представление исхода
func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unchanged"
	}
}

// Store - хранилище записей с ограничением уникальности по PlatformUserID.
type Store interface {
	// UpsertByPlatformID атомарно создает запись, обновляет username
	// или возвращает запись без изменений. Одновременные вызовы для одного id
	// создают не более одной записи.
	UpsertByPlatformID(ctx context.Context, platformUserID int64, username *string) (*Record, Outcome, error)

	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error

	// Close освобождает ресурсы драйвера.
	Close() error
}

// ErrStore - хранилище недоступно или вернуло ошибку.
var ErrStore = errors.New("identity store failure")

// SameUsername сравнивает имена с учетом отсутствия значения.
func SameUsername(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// CloneUsername возвращает независимую копию указателя.
func CloneUsername(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
