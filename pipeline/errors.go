package pipeline

import (
	"errors"
	"fmt"
)

// Kind определяет этап конвейера, на котором произошла ошибка
type Kind int

const (
	KindParse Kind = iota + 1
	KindVerification
	KindStale
	KindMissingSubject
	KindStore
)

// String возвращает строковое представление этапа
func (k Kind) String() string {
	switch k {
	case KindParse:
		return "parse"
	case KindVerification:
		return "verification"
	case KindStale:
		return "stale"
	case KindMissingSubject:
		return "missing_subject"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// AuthError - типизированная ошибка конвейера. Err содержит исходную причину,
// поэтому errors.Is(err, auth.ErrExpired) и подобные проверки работают сквозь нее.
type AuthError struct {
	Kind Kind
	Err  error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ErrMissingSubject - payload проверен, но в нем нет пользователя.
var ErrMissingSubject = errors.New("init payload has no user")

// KindOf возвращает этап ошибки или 0, если это не AuthError
func KindOf(err error) Kind {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return 0
}

func newError(kind Kind, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}
