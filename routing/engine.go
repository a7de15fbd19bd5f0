package routing

import (
	"errors"
	"net/http"
	"strconv"

	"webappauth/apigw"
	"webappauth/auth"
	"webappauth/logger"
	"webappauth/pipeline"
)

// Сообщения, которые видит клиент. Подробности остаются в журналах.
const (
	messageInvalidData = "invalid authentication data"
	messageAuthFailed  = "authentication failed"
	messageReopen      = "please reopen the app"
	messageUnavailable = "service temporarily unavailable"
	messageInternal    = "internal error"
	messageNoSessions  = "session tokens are disabled"
)

// Engine направляет запросы шлюза в конвейер аутентификации и модуль сессий
type Engine struct {
	// Зависимости, внедряемые при создании
	auth     pipeline.Authenticator // Конвейер проверки или обход для разработки
	sessions SessionIssuer          // Может быть nil, если токены отключены

	retryAfter string
}

// NewEngine создает новый экземпляр Engine
func NewEngine(authenticator pipeline.Authenticator, sessions SessionIssuer, config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}

	return &Engine{
		auth:       authenticator,
		sessions:   sessions,
		retryAfter: strconv.Itoa(int(config.RetryAfter.Seconds())),
	}
}

// Handle - реализация интерфейса RequestHandler. Это точка входа в модуль
func (e *Engine) Handle(req *apigw.AuthRequest) *apigw.AuthResponse {
	logger.Debug("Routing Engine: handling request - Route: %s", req.Route)

	switch req.Route {
	case apigw.AuthInit:
		return e.handleInit(req)
	case apigw.AuthMe:
		return e.handleMe(req)
	case apigw.Health:
		return &apigw.AuthResponse{
			StatusCode: http.StatusOK,
			Body:       map[string]string{"status": "ok"},
		}
	default:
		logger.Warn("Unsupported route: %s", req.Route)
		return errorResponse(http.StatusNotFound, "not_found", http.StatusText(http.StatusNotFound), nil)
	}
}

func (e *Engine) handleInit(req *apigw.AuthRequest) *apigw.AuthResponse {
	record, err := e.auth.Authenticate(req.Context, req.InitData, req.ReceivedAt)
	if err != nil {
		return e.createAuthErrorResponse(err, req)
	}

	logger.Debug("Authenticated platform user %d as %s", record.PlatformUserID, record.LocalID)

	body := &InitResponse{Identity: record}
	if e.sessions != nil {
		token, expiresAt, err := e.sessions.Issue(record)
		if err != nil {
			logger.Error("Failed to issue session token: %v", err)
			return errorResponse(http.StatusInternalServerError, "internal_error", messageInternal, err)
		}
		body.Token = token
		body.ExpiresAt = &expiresAt
	}

	return &apigw.AuthResponse{
		StatusCode: http.StatusOK,
		Body:       body,
	}
}

func (e *Engine) handleMe(req *apigw.AuthRequest) *apigw.AuthResponse {
	if e.sessions == nil {
		return errorResponse(http.StatusNotFound, "not_found", messageNoSessions, nil)
	}

	claims, err := e.sessions.Validate(req.BearerToken)
	if err != nil {
		logger.Debug("Session token rejected: %v", err)
		resp := errorResponse(http.StatusUnauthorized, "authentication_failed", messageAuthFailed, err)
		resp.Headers.Set("WWW-Authenticate", `Bearer realm="webappauth"`)
		return resp
	}

	return &apigw.AuthResponse{
		StatusCode: http.StatusOK,
		Body: &MeResponse{
			LocalID:        claims.Subject,
			PlatformUserID: claims.UID,
			Username:       claims.Username,
			ExpiresAt:      claims.ExpiresAt.Time,
		},
	}
}

// createAuthErrorResponse преобразует ошибку конвейера в ответ
func (e *Engine) createAuthErrorResponse(err error, req *apigw.AuthRequest) *apigw.AuthResponse {
	switch pipeline.KindOf(err) {
	case pipeline.KindParse, pipeline.KindMissingSubject:
		logger.Debug("Rejected init payload from %s: %v", req.RemoteAddr, err)
		return errorResponse(http.StatusBadRequest, "invalid_request", messageInvalidData, err)

	case pipeline.KindVerification:
		// Отсутствующий ключ - ошибка конфигурации, а не клиента.
		// Верификатор уже записал ее в журнал на уровне ERROR.
		if errors.Is(err, auth.ErrUnknownKey) {
			return errorResponse(http.StatusInternalServerError, "internal_error", messageAuthFailed, err)
		}
		logger.Debug("Signature check failed for request from %s: %v", req.RemoteAddr, err)
		return errorResponse(http.StatusUnauthorized, "authentication_failed", messageAuthFailed, err)

	case pipeline.KindStale:
		logger.Debug("Stale init payload from %s: %v", req.RemoteAddr, err)
		return errorResponse(http.StatusUnauthorized, "stale", messageReopen, err)

	case pipeline.KindStore:
		logger.Warn("Identity store unavailable: %v", err)
		resp := errorResponse(http.StatusServiceUnavailable, "unavailable", messageUnavailable, err)
		resp.Headers.Set("Retry-After", e.retryAfter)
		return resp

	default:
		logger.Error("Unexpected authentication error: %v", err)
		return errorResponse(http.StatusInternalServerError, "internal_error", messageInternal, err)
	}
}

func errorResponse(status int, code, message string, err error) *apigw.AuthResponse {
	return &apigw.AuthResponse{
		StatusCode: status,
		Headers:    make(http.Header),
		Body:       apigw.ErrorBody{Error: message, Code: code},
		Error:      err,
	}
}
