package auth

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// webAppDataKey - фиксированный ключ, которым платформа выводит ключ подписи из секрета приложения.
const webAppDataKey = "WebAppData"

// KeyMaterial хранит ключи проверки. Создается один раз при старте и дальше только читается.
type KeyMaterial struct {
	legacyKey  []byte
	appID      string
	publicKeys map[Environment]ed25519.PublicKey
}

// NewKeyMaterial выводит ключ legacy-схемы из секрета приложения и копирует публичные ключи.
// Пустой секрет означает, что legacy-схема не настроена.
func NewKeyMaterial(appSecret, appID string, publicKeys map[Environment]ed25519.PublicKey) *KeyMaterial {
	k := &KeyMaterial{
		appID:      appID,
		publicKeys: make(map[Environment]ed25519.PublicKey, len(publicKeys)),
	}
	if appSecret != "" {
		k.legacyKey = DeriveLegacyKey(appSecret)
	}
	for env, key := range publicKeys {
		k.publicKeys[env] = append(ed25519.PublicKey(nil), key...)
	}
	return k
}

// DeriveLegacyKey вычисляет HMAC-SHA256(key="WebAppData", msg=appSecret).
func DeriveLegacyKey(appSecret string) []byte {
	return hmacSHA256([]byte(webAppDataKey), []byte(appSecret))
}

// LegacyKey возвращает выведенный ключ legacy-схемы.
func (k *KeyMaterial) LegacyKey() ([]byte, bool) {
	return k.legacyKey, len(k.legacyKey) > 0
}

// AppID возвращает идентификатор приложения.
func (k *KeyMaterial) AppID() string {
	return k.appID
}

// PublicKey возвращает публичный ключ платформы для окружения.
func (k *KeyMaterial) PublicKey(env Environment) (ed25519.PublicKey, bool) {
	key, ok := k.publicKeys[env]
	return key, ok
}

// ParsePublicKey декодирует hex-представление публичного ключа Ed25519.
func ParsePublicKey(s string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("public key is not hex: %w", err)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// ParsePrivateKey принимает hex-представление seed (32 байта) или полного ключа (64 байта).
func ParsePrivateKey(s string) (ed25519.PrivateKey, error) {
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("private key is not hex: %w", err)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, fmt.Errorf("private key must be %d or %d bytes, got %d", ed25519.SeedSize, ed25519.PrivateKeySize, len(raw))
	}
}

// currentMessage строит сообщение для асимметричной схемы: "{appID}:WebAppData\n" + canonical.
func currentMessage(appID string, canonical []byte) []byte {
	msg := make([]byte, 0, len(appID)+len(webAppDataKey)+2+len(canonical))
	msg = append(msg, appID...)
	msg = append(msg, ':')
	msg = append(msg, webAppDataKey...)
	msg = append(msg, '\n')
	return append(msg, canonical...)
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}
