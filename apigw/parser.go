package apigw

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"webappauth/initdata"
	"webappauth/logger"
)

const (
	// HeaderInitData - заголовок, в котором клиент передает init payload как есть
	HeaderInitData = "X-Init-Data"

	authSchemeInitData = "tma"
	authSchemeBearer   = "bearer"

	// Тело больше самого payload из-за JSON-обертки и экранирования
	maxBodySize = 4 * initdata.MaxPayloadSize
)

// RequestParser отвечает за парсинг HTTP запросов в AuthRequest
type RequestParser struct {
	now func() time.Time
}

// NewRequestParser создает новый экземпляр парсера
func NewRequestParser() *RequestParser {
	return &RequestParser{now: time.Now}
}

// Parse определяет маршрут и извлекает из запроса init payload или токен
func (p *RequestParser) Parse(r *http.Request) (*AuthRequest, error) {
	logger.Debug("Parsing HTTP request: %s %s", r.Method, r.URL.Path)

	route, err := p.determineRoute(r.Method, r.URL.Path)
	if err != nil {
		logger.Debug("Failed to determine route: %v", err)
		return nil, err
	}

	req := &AuthRequest{
		Route:      route,
		RemoteAddr: r.RemoteAddr,
		ReceivedAt: p.now(),
		Context:    r.Context(),
	}

	switch route {
	case AuthInit:
		initData, err := p.extractInitData(r)
		if err != nil {
			return nil, err
		}
		req.InitData = initData
	case AuthMe:
		req.BearerToken = authorizationCredentials(r, authSchemeBearer)
	}

	logger.Debug("Determined route: %s", route)
	return req, nil
}

// determineRoute сопоставляет метод и путь с маршрутом
func (p *RequestParser) determineRoute(method, path string) (Route, error) {
	path = strings.TrimSuffix(path, "/")

	var route Route
	var allowed string
	switch path {
	case "/auth/init":
		route, allowed = AuthInit, http.MethodPost
	case "/auth/me":
		route, allowed = AuthMe, http.MethodGet
	case "/healthz":
		route, allowed = Health, http.MethodGet
	default:
		return UnsupportedRoute, fmt.Errorf("%w: %s", ErrRouteNotFound, path)
	}

	if method != allowed {
		return UnsupportedRoute, fmt.Errorf("%w: %s %s", ErrMethodNotAllowed, method, path)
	}
	return route, nil
}

// extractInitData ищет payload по порядку: заголовок X-Init-Data,
// Authorization: tma, затем тело запроса (JSON или форма).
func (p *RequestParser) extractInitData(r *http.Request) (string, error) {
	if v := r.Header.Get(HeaderInitData); v != "" {
		logger.Debug("Init payload taken from %s header", HeaderInitData)
		return v, nil
	}

	if v := authorizationCredentials(r, authSchemeInitData); v != "" {
		logger.Debug("Init payload taken from Authorization header")
		return v, nil
	}

	if r.Body == nil || r.Body == http.NoBody {
		return "", nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidBody, err)
	}
	if len(body) > maxBodySize {
		return "", fmt.Errorf("%w: body exceeds %d bytes", ErrInvalidBody, maxBodySize)
	}
	if len(body) == 0 {
		return "", nil
	}

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		mediaType = "application/json"
	}

	switch mediaType {
	case "application/x-www-form-urlencoded":
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		logger.Debug("Init payload taken from form body")
		return form.Get("init_data"), nil
	default:
		var payload struct {
			InitData string `json:"init_data"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidBody, err)
		}
		logger.Debug("Init payload taken from JSON body")
		return payload.InitData, nil
	}
}

// authorizationCredentials возвращает значение Authorization для заданной схемы
// (без учета регистра) или пустую строку.
func authorizationCredentials(r *http.Request, scheme string) string {
	header := r.Header.Get("Authorization")
	name, credentials, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(name, scheme) {
		return ""
	}
	return strings.TrimSpace(credentials)
}
