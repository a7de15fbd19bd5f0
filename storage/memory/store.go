package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"webappauth/identity"
)

// Store хранит записи в памяти процесса. Подходит для разработки и тестов.
type Store struct {
	mu      sync.Mutex
	records map[int64]*identity.Record
	now     func() time.Time
}

// New создает пустое хранилище в памяти
func New() *Store {
	return &Store{
		records: make(map[int64]*identity.Record),
		now:     time.Now,
	}
}

// UpsertByPlatformID реализует identity.Store. Вся операция выполняется под одним мьютексом.
func (s *Store) UpsertByPlatformID(ctx context.Context, platformUserID int64, username *string) (*identity.Record, identity.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, identity.OutcomeUnchanged, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[platformUserID]
	if !ok {
		rec = &identity.Record{
			LocalID:        uuid.NewString(),
			PlatformUserID: platformUserID,
			Username:       identity.CloneUsername(username),
			CreatedAt:      s.now().UTC(),
		}
		s.records[platformUserID] = rec
		return clone(rec), identity.OutcomeCreated, nil
	}

	if identity.SameUsername(rec.Username, username) {
		return clone(rec), identity.OutcomeUnchanged, nil
	}

	rec.Username = identity.CloneUsername(username)
	return clone(rec), identity.OutcomeUpdated, nil
}

// Ping реализует identity.Store
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close реализует identity.Store
func (s *Store) Close() error {
	return nil
}

// Len возвращает количество записей
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func clone(rec *identity.Record) *identity.Record {
	out := *rec
	out.Username = identity.CloneUsername(rec.Username)
	return &out
}
