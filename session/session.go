package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"webappauth/identity"
)

// ErrInvalidToken - токен не прошел проверку подписи, срока или издателя.
var ErrInvalidToken = errors.New("invalid session token")

const minSecretLength = 32

// Config содержит настройки выдачи сессионных токенов
type Config struct {
	// Secret - ключ HS256. Пустое значение отключает выдачу токенов.
	Secret string        `yaml:"secret" json:"-"`
	TTL    time.Duration `yaml:"ttl" json:"ttl"`
	Issuer string        `yaml:"issuer" json:"issuer"`
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		TTL:    24 * time.Hour,
		Issuer: "webappauth",
	}
}

// Enabled сообщает, включена ли выдача токенов
func (c *Config) Enabled() bool {
	return c.Secret != ""
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if len(c.Secret) < minSecretLength {
		return fmt.Errorf("session.secret must be at least %d bytes", minSecretLength)
	}
	if c.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.Issuer == "" {
		return fmt.Errorf("session.issuer cannot be empty")
	}
	return nil
}

// Claims - содержимое сессионного токена. Subject - локальный id записи.
type Claims struct {
	UID      int64   `json:"uid"`
	Username *string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Manager выдает и проверяет сессионные токены
type Manager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

// NewManager создает Manager по конфигурации
func NewManager(cfg Config) (*Manager, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("session tokens are disabled")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Manager{
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		issuer: cfg.Issuer,
		now:    time.Now,
	}, nil
}

// Issue подписывает токен для записи личности
func (m *Manager) Issue(rec *identity.Record) (string, time.Time, error) {
	issuedAt := m.now()
	expiresAt := issuedAt.Add(m.ttl)

	claims := &Claims{
		UID:      rec.PlatformUserID,
		Username: rec.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   rec.LocalID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// Validate проверяет токен и возвращает его содержимое
func (m *Manager) Validate(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims, nil
}
