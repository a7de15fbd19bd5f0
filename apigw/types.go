package apigw

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Route определяет тип запроса к шлюзу.
type Route int

const (
	UnsupportedRoute Route = iota
	// AuthInit - POST /auth/init, обмен init payload на запись личности
	AuthInit
	// AuthMe - GET /auth/me, проверка сессионного токена
	AuthMe
	// Health - GET /healthz
	Health
)

// String возвращает строковое представление маршрута
func (r Route) String() string {
	switch r {
	case AuthInit:
		return "AUTH_INIT"
	case AuthMe:
		return "AUTH_ME"
	case Health:
		return "HEALTH"
	default:
		return "UNSUPPORTED_ROUTE"
	}
}

// AuthRequest - внутреннее представление запроса к шлюзу.
// Создается парсером из http.Request.
type AuthRequest struct {
	// Маршрут, определенный парсером.
	Route Route

	// Сырой init payload (только для AuthInit). Может быть пустым,
	// тогда конвейер вернет ошибку разбора.
	InitData string

	// Токен из заголовка Authorization: Bearer (только для AuthMe).
	BearerToken string

	// Адрес клиента для журналов.
	RemoteAddr string

	// Момент получения запроса. Используется как "сейчас" для проверки свежести.
	ReceivedAt time.Time

	// Контекст запроса с дедлайном шлюза.
	Context context.Context
}

// AuthResponse - внутреннее представление ответа.
// Body сериализуется в JSON.
type AuthResponse struct {
	StatusCode int
	Headers    http.Header
	Body       interface{}
	Error      error
}

// ErrorBody - JSON тело ответа об ошибке.
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RequestHandler - интерфейс для модуля, который будет обрабатывать запросы.
type RequestHandler interface {
	Handle(req *AuthRequest) *AuthResponse
}

// Ошибки уровня шлюза: запрос не дошел до обработчика
var (
	ErrRouteNotFound    = errors.New("route not found")
	ErrMethodNotAllowed = errors.New("method not allowed")
	ErrInvalidBody      = errors.New("invalid request body")
)
