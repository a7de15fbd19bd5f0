package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"webappauth/initdata"
)

// Verifier - универсальный интерфейс проверки подписи init payload.
type Verifier interface {
	// Verify проверяет подпись payload по его канонической строке.
	// Возвращает nil, если payload пришел от платформы без изменений.
	Verify(p *initdata.Payload) error
}

// Environment определяет, каким публичным ключом платформы проверяется
// асимметричная подпись. Выбирается конфигурацией развертывания, а не payload.
type Environment string

const (
	EnvProduction Environment = "production"
	EnvTest       Environment = "test"
)

// ParseEnvironment парсит строку в Environment
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(s))) {
	case EnvProduction:
		return EnvProduction, nil
	case EnvTest:
		return EnvTest, nil
	default:
		return "", fmt.Errorf("unknown environment %q", s)
	}
}

// VerifiedIdentity представляет подтвержденную личность пользователя платформы.
// Существует только после успешной проверки и в хранилище как есть не попадает.
type VerifiedIdentity struct {
	PlatformUserID int64
	Username       *string
	FirstName      *string
	LastName       *string

	// AuthDate - момент выдачи payload платформой
	AuthDate time.Time
	// VerifiedAt - момент проверки на нашей стороне
	VerifiedAt time.Time

	Scheme initdata.Scheme
}

// Пользовательские ошибки для точной диагностики
var (
	// ErrSignatureMismatch - вычисленная подпись не совпадает с предоставленной.
	ErrSignatureMismatch = errors.New("signature does not match")
	// ErrUnknownKey - для схемы подписи не настроен ключ. Ошибка конфигурации, а не клиента.
	ErrUnknownKey = errors.New("verification key is not configured")
	// ErrExpired - payload старше допустимого возраста.
	ErrExpired = errors.New("init payload has expired")
	// ErrFutureDated - auth_date находится в будущем дальше допустимого расхождения часов.
	ErrFutureDated = errors.New("init payload is dated in the future")
	// ErrInvalidConfig - некорректная конфигурация аутентификации.
	ErrInvalidConfig = errors.New("invalid auth configuration")
)
