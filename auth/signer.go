package auth

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"

	"webappauth/initdata"
)

// SignLegacy подписывает поля секретом приложения и возвращает готовую строку payload с полем hash.
// Используется командой sign и тестами.
func SignLegacy(fields []initdata.Field, appSecret string) string {
	fields = withoutSignature(fields)
	sum := hmacSHA256(DeriveLegacyKey(appSecret), initdata.CanonicalFields(fields))
	return initdata.Encode(append(fields, initdata.Field{Key: initdata.KeyHash, Value: hex.EncodeToString(sum)}))
}

// SignCurrent подписывает поля ключом Ed25519 и возвращает строку payload с полем signature.
func SignCurrent(fields []initdata.Field, appID string, privateKey ed25519.PrivateKey) string {
	fields = withoutSignature(fields)
	sig := ed25519.Sign(privateKey, currentMessage(appID, initdata.CanonicalFields(fields)))
	return initdata.Encode(append(fields, initdata.Field{Key: initdata.KeySignature, Value: base64.RawURLEncoding.EncodeToString(sig)}))
}

func withoutSignature(fields []initdata.Field) []initdata.Field {
	out := make([]initdata.Field, 0, len(fields)+1)
	for _, f := range fields {
		if f.Key == initdata.KeyHash || f.Key == initdata.KeySignature {
			continue
		}
		out = append(out, f)
	}
	return out
}
