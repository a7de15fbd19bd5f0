package initdata

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	hashSize      = 32
	signatureSize = 64
)

// Parse разбирает строку вида key=value&key=value в Payload.
// Проверка чисто синтаксическая: подпись здесь не вычисляется.
func Parse(raw string) (*Payload, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrEmpty
	}
	if len(raw) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: payload exceeds %d bytes", ErrMalformed, MaxPayloadSize)
	}

	p := &Payload{}
	seen := make(map[string]struct{})

	for _, segment := range strings.Split(raw, "&") {
		if segment == "" {
			continue
		}

		rawKey, rawValue, _ := strings.Cut(segment, "=")
		key, err := url.QueryUnescape(rawKey)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot decode key: %v", ErrMalformed, err)
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot decode value of %q: %v", ErrMalformed, key, err)
		}
		if key == "" {
			return nil, fmt.Errorf("%w: empty key", ErrMalformed)
		}

		// Повторяющиеся ключи делают каноническую строку неоднозначной
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate key %q", ErrMalformed, key)
		}
		seen[key] = struct{}{}

		p.fields = append(p.fields, Field{Key: key, Value: value})
	}

	if _, ok := seen[KeyAuthDate]; !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrMalformed, KeyAuthDate)
	}

	hashValue, hasHash := p.Get(KeyHash)
	sigValue, hasSig := p.Get(KeySignature)

	switch {
	case hasHash && hasSig:
		return nil, fmt.Errorf("%w: both %s and %s present", ErrMalformed, KeyHash, KeySignature)
	case hasHash:
		sig, err := decodeHash(hashValue)
		if err != nil {
			return nil, err
		}
		p.scheme = SchemeLegacy
		p.signature = sig
	case hasSig:
		sig, err := decodeSignature(sigValue)
		if err != nil {
			return nil, err
		}
		p.scheme = SchemeCurrent
		p.signature = sig
	default:
		return nil, fmt.Errorf("%w: missing %s or %s", ErrMalformed, KeyHash, KeySignature)
	}

	return p, nil
}

func decodeHash(value string) ([]byte, error) {
	sig, err := hex.DecodeString(value)
	if err != nil || len(sig) != hashSize {
		return nil, fmt.Errorf("%w: %s must be %d hex-encoded bytes", ErrMalformed, KeyHash, hashSize)
	}
	return sig, nil
}

// decodeSignature принимает base64url как с паддингом, так и без него.
func decodeSignature(value string) ([]byte, error) {
	sig, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(value, "="))
	if err != nil || len(sig) != signatureSize {
		return nil, fmt.Errorf("%w: %s must be %d base64url-encoded bytes", ErrMalformed, KeySignature, signatureSize)
	}
	return sig, nil
}

// Decode строит типизированное представление payload.
// Вызывается после проверки подписи.
func (p *Payload) Decode() (*InitData, error) {
	data := &InitData{
		Scheme:    p.scheme,
		Signature: p.Signature(),
	}

	authDate, _ := p.Get(KeyAuthDate)
	seconds, err := strconv.ParseInt(authDate, 10, 64)
	if err != nil || seconds < 0 {
		return nil, fmt.Errorf("%w: %s must be a unix timestamp", ErrMalformed, KeyAuthDate)
	}
	data.AuthDate = time.Unix(seconds, 0).UTC()

	if queryID, ok := p.Get(KeyQueryID); ok {
		data.QueryID = queryID
	}

	if rawUser, ok := p.Get(KeyUser); ok {
		var user User
		if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
			return nil, fmt.Errorf("%w: %s is not a valid user object: %v", ErrMalformed, KeyUser, err)
		}
		data.User = &user
	}

	return data, nil
}
