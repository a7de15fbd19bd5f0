package apigw

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"webappauth/logger"
)

// ResponseWriter отвечает за формирование HTTP ответов из AuthResponse
type ResponseWriter struct{}

// NewResponseWriter создает новый экземпляр writer'а ответов
func NewResponseWriter() *ResponseWriter {
	return &ResponseWriter{}
}

// WriteResponse записывает AuthResponse в http.ResponseWriter
func (rw *ResponseWriter) WriteResponse(w http.ResponseWriter, resp *AuthResponse) error {
	logger.Debug("Writing response: status=%d, hasBody=%t, hasError=%t",
		resp.StatusCode, resp.Body != nil, resp.Error != nil)

	// Ошибка без тела - ошибка уровня шлюза
	if resp.Error != nil && resp.Body == nil {
		return rw.writeErrorResponse(w, resp)
	}

	for key, values := range resp.Headers {
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	if resp.Body == nil {
		w.WriteHeader(resp.StatusCode)
		return nil
	}

	return writeJSON(w, resp.StatusCode, resp.Body)
}

// writeErrorResponse записывает JSON ответ об ошибке шлюза и проставляет
// итоговый код в resp, чтобы метрики видели реальный статус.
func (rw *ResponseWriter) writeErrorResponse(w http.ResponseWriter, resp *AuthResponse) error {
	code, status := rw.mapError(resp.Error)
	logger.Debug("Mapped gateway error %v to %s/%d", resp.Error, code, status)

	resp.StatusCode = status
	return writeJSON(w, status, ErrorBody{
		Error: http.StatusText(status),
		Code:  code,
	})
}

// mapError сопоставляет ошибки шлюза с кодами ответа
func (rw *ResponseWriter) mapError(err error) (string, int) {
	switch {
	case errors.Is(err, ErrRouteNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, ErrMethodNotAllowed):
		return "method_not_allowed", http.StatusMethodNotAllowed
	case errors.Is(err, ErrInvalidBody):
		return "invalid_request", http.StatusBadRequest
	default:
		return "internal_error", http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(status)

	_, err = w.Write(data)
	return err
}
