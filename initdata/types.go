package initdata

import (
	"errors"
	"time"
)

// Ключи init payload, которые имеют значение для проверки
const (
	KeyHash      = "hash"
	KeySignature = "signature"
	KeyAuthDate  = "auth_date"
	KeyUser      = "user"
	KeyQueryID   = "query_id"
)

// MaxPayloadSize ограничивает размер сырой строки init payload.
const MaxPayloadSize = 16 << 10

// Scheme определяет схему подписи, выбранную по набору полей.
type Scheme int

const (
	SchemeUnknown Scheme = iota
	// SchemeLegacy - симметричная HMAC-SHA256 подпись в поле hash
	SchemeLegacy
	// SchemeCurrent - асимметричная Ed25519 подпись в поле signature
	SchemeCurrent
)

// String возвращает строковое представление схемы
func (s Scheme) String() string {
	switch s {
	case SchemeLegacy:
		return "legacy"
	case SchemeCurrent:
		return "current"
	default:
		return "unknown"
	}
}

// Field - одна пара ключ/значение в порядке получения.
type Field struct {
	Key   string
	Value string
}

// Payload - разобранный, но еще не проверенный init payload.
// Неизменяем после Parse.
type Payload struct {
	fields    []Field
	scheme    Scheme
	signature []byte
}

// Fields возвращает копию полей в исходном порядке.
func (p *Payload) Fields() []Field {
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out
}

// Get возвращает значение поля по ключу.
func (p *Payload) Get(key string) (string, bool) {
	for _, f := range p.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Scheme возвращает схему подписи payload.
func (p *Payload) Scheme() Scheme {
	return p.scheme
}

// Signature возвращает декодированные байты подписи (копию).
func (p *Payload) Signature() []byte {
	out := make([]byte, len(p.signature))
	copy(out, p.signature)
	return out
}

// User - профиль пользователя платформы из поля user.
type User struct {
	ID              int64  `json:"id"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Username        string `json:"username,omitempty"`
	LanguageCode    string `json:"language_code,omitempty"`
	IsPremium       bool   `json:"is_premium,omitempty"`
	PhotoURL        string `json:"photo_url,omitempty"`
	AllowsWriteToPM bool   `json:"allows_write_to_pm,omitempty"`
}

// InitData - типизированное представление Payload.
type InitData struct {
	User      *User
	AuthDate  time.Time
	QueryID   string
	Scheme    Scheme
	Signature []byte
}

// PlatformUserID возвращает идентификатор пользователя платформы, если он есть.
func (d *InitData) PlatformUserID() (int64, bool) {
	if d.User == nil || d.User.ID == 0 {
		return 0, false
	}
	return d.User.ID, true
}

// Username возвращает имя пользователя или nil, если его нет.
func (d *InitData) Username() *string {
	if d.User == nil || d.User.Username == "" {
		return nil
	}
	name := d.User.Username
	return &name
}

// FirstName возвращает имя или nil.
func (d *InitData) FirstName() *string {
	if d.User == nil || d.User.FirstName == "" {
		return nil
	}
	v := d.User.FirstName
	return &v
}

// LastName возвращает фамилию или nil.
func (d *InitData) LastName() *string {
	if d.User == nil || d.User.LastName == "" {
		return nil
	}
	v := d.User.LastName
	return &v
}

var (
	// ErrEmpty - init payload отсутствует или пуст.
	ErrEmpty = errors.New("init payload is empty")
	// ErrMalformed - init payload не удалось разобрать.
	ErrMalformed = errors.New("init payload is malformed")
)
